// Package daemon archives a snapshot of the host at a fixed interval.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/go-tangra/go-tangra-hwcheck/internal/collector"
	"github.com/go-tangra/go-tangra-hwcheck/internal/convert"
	"github.com/go-tangra/go-tangra-hwcheck/internal/store"
)

const baseBackoff = 1 * time.Second

// Snapshotter produces a fresh hardware report.
type Snapshotter interface {
	Collect(ctx context.Context) collector.HardwareReport
}

// Archiver stores converted report records.
type Archiver interface {
	Insert(ctx context.Context, rec *store.ReportRecord) (int64, time.Time, error)
}

// Run archives one snapshot immediately and then one per interval until ctx
// is cancelled. A failed write is retried with exponential backoff, capped
// at the interval.
func Run(ctx context.Context, interval time.Duration, snap Snapshotter, db Archiver, logger *slog.Logger) error {
	if interval <= 0 {
		return fmt.Errorf("snapshot interval must be positive, got %s", interval)
	}

	attempt := 0
	wait := time.Duration(0)
	for {
		select {
		case <-ctx.Done():
			logger.Info("snapshot daemon stopped")
			return nil
		case <-time.After(wait):
		}

		if err := snapshotOnce(ctx, snap, db, logger); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			attempt++
			wait = calcBackoff(attempt, interval)
			logger.Warn("snapshot failed", "attempt", attempt, "error", err, "retry_in", wait)
			continue
		}
		attempt = 0
		wait = interval
	}
}

func snapshotOnce(ctx context.Context, snap Snapshotter, db Archiver, logger *slog.Logger) error {
	report := snap.Collect(ctx)
	rec, err := convert.ReportToRecord(&report)
	if err != nil {
		return err
	}
	id, _, err := db.Insert(ctx, rec)
	if err != nil {
		return err
	}
	logger.Info("snapshot archived", "id", id, "snapshot_id", rec.SnapshotID, "hostname", rec.Hostname)
	return nil
}

func calcBackoff(attempt int, limit time.Duration) time.Duration {
	if attempt > 30 {
		return limit
	}
	d := baseBackoff * time.Duration(math.Pow(2, float64(attempt-1)))
	if d > limit {
		d = limit
	}
	return d
}
