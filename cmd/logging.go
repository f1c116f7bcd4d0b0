package cmd

import (
	"io"

	"gopkg.in/natefinch/lumberjack.v2"
)

func newLogRotator(path string) io.Writer {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    20,
		MaxBackups: 5,
		MaxAge:     28,
		Compress:   true,
	}
}
