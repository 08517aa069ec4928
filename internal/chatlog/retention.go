package chatlog

import (
	"context"
	"log/slog"
	"time"

	"github.com/ashureev/agentdeck/internal/store"
)

const retentionWorkerInterval = 1 * time.Hour

// StartRetentionWorker runs a background goroutine that periodically
// sweeps ended sessions older than the retention window. A retention of
// zero disables the worker.
func StartRetentionWorker(ctx context.Context, repo store.Repository, retention time.Duration) {
	if retention <= 0 {
		slog.Info("Session retention worker disabled")
		return
	}

	ticker := time.NewTicker(retentionWorkerInterval)
	go func() {
		defer ticker.Stop()
		slog.Info("Session retention worker started", "interval", retentionWorkerInterval, "retention", retention)

		for {
			select {
			case <-ticker.C:
				if deleted, err := repo.CleanupEndedSessions(ctx, retention); err != nil {
					slog.Error("Retention worker failed to cleanup sessions", "error", err)
				} else if deleted > 0 {
					slog.Info("Retention worker removed ended sessions", "count", deleted)
				}
			case <-ctx.Done():
				slog.Info("Session retention worker shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}
