package db

import (
	"context"
	"time"

	"go.uber.org/zap"
	"k8s.io/utils/clock"

	"githubtray/logger"
)

// RunRetention starts a goroutine that prunes rows older than maxAge every
// interval until ctx is done. A non-positive maxAge disables pruning.
func (db *DB) RunRetention(ctx context.Context, clk clock.WithTicker, interval, maxAge time.Duration) {
	if maxAge <= 0 || interval <= 0 {
		return
	}
	go func() {
		ticker := clk.NewTicker(interval)
		defer ticker.Stop()

		db.pruneOnce(ctx, clk, maxAge)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C():
				db.pruneOnce(ctx, clk, maxAge)
			}
		}
	}()
}

func (db *DB) pruneOnce(ctx context.Context, clk clock.PassiveClock, maxAge time.Duration) {
	if _, err := db.Prune(ctx, clk.Now().Add(-maxAge)); err != nil && ctx.Err() == nil {
		logger.Warn("Error pruning delivery history", zap.Error(err))
	}
}
