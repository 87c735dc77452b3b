// Package server exposes fresh snapshots and the report archive over HTTP.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-kratos/kratos/v2/middleware/recovery"
	kratoshttp "github.com/go-kratos/kratos/v2/transport/http"

	_ "github.com/go-tangra/go-tangra-hwcheck/internal/codec"
	"github.com/go-tangra/go-tangra-hwcheck/internal/config"
	"github.com/go-tangra/go-tangra-hwcheck/internal/daemon"
	"github.com/go-tangra/go-tangra-hwcheck/internal/store"
)

const requestTimeout = 30 * time.Second

// NewHTTPServer builds the kratos HTTP server with the API key middleware
// and the report routes.
func NewHTTPServer(cfg *config.Config, snap Snapshotter, db *store.Store, logger *slog.Logger) *kratoshttp.Server {
	srv := kratoshttp.NewServer(
		kratoshttp.Address(cfg.Listen),
		kratoshttp.Timeout(requestTimeout),
		kratoshttp.Middleware(
			recovery.Recovery(),
			APIKeyMiddleware(cfg.ApiSecret, logger),
		),
	)
	NewHandler(snap, db, logger).Register(srv)
	return srv
}

// Run serves HTTP until ctx is cancelled.
func Run(ctx context.Context, cfg *config.Config, snap Snapshotter, logger *slog.Logger) error {
	db, err := store.New(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	srv := NewHTTPServer(cfg, snap, db, logger)

	if cfg.RetentionDays > 0 {
		go runPurgeLoop(ctx, db, cfg.RetentionDays, cfg.PurgeInterval, logger)
		logger.Info("retention enabled", "days", cfg.RetentionDays, "interval", cfg.PurgeInterval)
	}

	if cfg.SnapshotInterval > 0 {
		go func() {
			if err := daemon.Run(ctx, cfg.SnapshotInterval, snap, db, logger); err != nil {
				logger.Error("snapshot daemon", "error", err)
			}
		}()
		logger.Info("periodic snapshots enabled", "interval", cfg.SnapshotInterval)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	logger.Info("hwcheck HTTP listening", "addr", cfg.Listen, "database", cfg.DatabasePath)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve HTTP on %s: %w", cfg.Listen, err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Stop(stopCtx); err != nil {
		return fmt.Errorf("stop HTTP server: %w", err)
	}
	return <-errCh
}

func runPurgeLoop(ctx context.Context, db *store.Store, retentionDays int, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purgeOnce(ctx, db, retentionDays, logger)
		}
	}
}

func purgeOnce(ctx context.Context, db *store.Store, retentionDays int, logger *slog.Logger) {
	olderThan := time.Duration(retentionDays) * 24 * time.Hour
	n, err := db.Purge(ctx, olderThan)
	if err != nil {
		logger.Error("purge failed", "error", err)
	} else if n > 0 {
		logger.Info("purged reports", "count", n, "older_than_days", retentionDays)
	}
}
