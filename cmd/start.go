package cmd

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/cc-switch/proxy/internal/process"
	"github.com/cc-switch/proxy/internal/server"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the proxy service",
	Long:  `Start the AI coding assistant proxy in the foreground.`,
	RunE:  runStart,
}

func runStart(cmd *cobra.Command, _ []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	logFile, _ := cmd.Flags().GetBool("log-file")
	setupLogging(verbose, logFile)

	if err := ensureConfigExists(); err != nil {
		return err
	}

	if err := cfgMgr.Load(); err != nil {
		return err
	}

	snapshot := cfgMgr.Snapshot()

	color.Green("Starting %s v%s...", AppName, Version)
	logger.Info("starting server",
		"host", snapshot.Host,
		"port", snapshot.Port,
		"providers", len(snapshot.Providers),
	)

	procMgr := process.NewManager(cfgMgr.BaseDir())
	if err := procMgr.WritePID(); err != nil {
		return err
	}
	defer procMgr.CleanupPID()

	srv := server.New(cfgMgr, logger)
	return srv.Start()
}
