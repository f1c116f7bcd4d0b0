package cmd

import (
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/cc-switch/proxy/internal/config"
)

const (
	AppName = "cc-switch"
	Version = "0.1.0"
)

var (
	logger *slog.Logger
	cfgMgr *config.Manager
)

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	logger = slog.New(handler)

	mgr, err := config.NewManager()
	if err != nil {
		logger.Error("failed to resolve config directory", "error", err)
		os.Exit(1)
	}
	cfgMgr = mgr
}

var rootCmd = &cobra.Command{
	Use:     "cc-switch",
	Short:   "cc-switch - multi-provider AI coding assistant proxy",
	Long:    `A local reverse proxy that lets Claude Code, Codex, and Gemini CLI clients switch between upstream providers without restarting, translating between their wire dialects as needed.`,
	Version: Version,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().BoolP("log-file", "l", false, "enable file logging")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(providersCmd)
}

func setupLogging(verbose, logFile bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}

	if logFile {
		logPath := cfgMgr.BaseDir() + "/proxy.log"
		rotator := newLogRotator(logPath)
		logger = slog.New(slog.NewTextHandler(rotator, opts))
		return
	}

	logger = slog.New(slog.NewTextHandler(os.Stdout, opts))
}

func ensureConfigExists() error {
	if cfgMgr.Exists() {
		return nil
	}

	color.Yellow("No configuration found at %s, scaffolding a minimal one...", cfgMgr.GetPath())

	return cfgMgr.Load()
}
