package cache

import (
	"context"
	"log/slog"
	"time"
)

type expirer interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// Janitor periodically deletes expired entries.
type Janitor struct {
	store    expirer
	logger   *slog.Logger
	interval time.Duration
}

func NewJanitor(store expirer, logger *slog.Logger, interval time.Duration) *Janitor {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Janitor{store: store, logger: logger, interval: interval}
}

// Run blocks until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.logger.Info("cache janitor started", "interval", j.interval)

	for {
		select {
		case <-ctx.Done():
			j.logger.Info("cache janitor stopped")
			return
		case <-ticker.C:
			j.cleanup(ctx)
		}
	}
}

func (j *Janitor) cleanup(ctx context.Context) {
	n, err := j.store.CleanupExpired(ctx)
	if err != nil {
		j.logger.Error("failed to cleanup cache", "error", err)
		return
	}
	if n > 0 {
		j.logger.Debug("expired cache entries removed", "count", n)
	}
}
