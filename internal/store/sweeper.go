package store

import (
	"context"
	"log/slog"
	"time"
)

// DefaultSweepInterval is how often expired sessions are purged.
const DefaultSweepInterval = 5 * time.Minute

// StartSweeper runs a background goroutine that periodically purges expired
// sessions until ctx is cancelled. The returned channel is closed when the
// goroutine has exited.
func StartSweeper(ctx context.Context, s SessionStore, interval time.Duration, logger *slog.Logger) <-chan struct{} {
	if logger == nil {
		logger = slog.Default()
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	done := make(chan struct{})
	ticker := time.NewTicker(interval)
	go func() {
		defer close(done)
		defer ticker.Stop()
		logger.Info("Session sweeper started", "interval", interval)

		for {
			select {
			case <-ticker.C:
				sweep(ctx, s, logger)
			case <-ctx.Done():
				logger.Info("Session sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
	return done
}

func sweep(ctx context.Context, s SessionStore, logger *slog.Logger) {
	deleted, err := s.PurgeExpired(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		logger.Error("Session sweeper failed to purge expired sessions", "error", err)
		return
	}
	if deleted > 0 {
		logger.Info("Session sweeper purged expired sessions", "count", deleted)
	}
}
