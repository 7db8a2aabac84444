package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"insights-backend/internal/shared/config"
	"insights-backend/internal/shared/telemetry"
)

var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "insights-api",
	Short: "Insights dashboard backend",
	Long:  "Serves the insights library and the document ingestion workflow.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c
		if err := telemetry.Init(cfg.LogLevel, cfg.LogFormat); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		telemetry.Sync()
	},
	// Running without a subcommand serves the API.
	RunE: func(cmd *cobra.Command, args []string) error {
		return serveCmd.RunE(cmd, args)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
