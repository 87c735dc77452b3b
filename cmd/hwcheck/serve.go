package main

import (
	"github.com/spf13/cobra"

	"github.com/go-tangra/go-tangra-hwcheck/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve fresh snapshots and the report archive over HTTP",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("listen", "", "HTTP listen address (default :9560)")
	serveCmd.Flags().String("api-secret", "", "secret required in X-API-Key (empty = no auth)")
	serveCmd.Flags().Int("retention-days", 0, "purge archived reports older than this many days (0 = keep)")
	serveCmd.Flags().Duration("snapshot-interval", 0, "archive a snapshot at this interval (0 = off)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// CLI flag overrides.
	if v, _ := cmd.Flags().GetString("listen"); v != "" {
		cfg.Listen = v
	}
	if v, _ := cmd.Flags().GetString("api-secret"); v != "" {
		cfg.ApiSecret = v
	}
	if cmd.Flags().Changed("retention-days") {
		cfg.RetentionDays, _ = cmd.Flags().GetInt("retention-days")
	}
	if cmd.Flags().Changed("snapshot-interval") {
		cfg.SnapshotInterval, _ = cmd.Flags().GetDuration("snapshot-interval")
	}

	logger, closeLog, err := newLogger(cfg, false)
	if err != nil {
		return err
	}
	defer closeLog()

	return server.Run(cmd.Context(), cfg, newCollector(cfg, logger), logger)
}
