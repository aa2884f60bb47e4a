package worker

import (
	"context"
	"log/slog"
	"time"
)

// runSweeper periodically returns jobs of dead workers to the queue
func (w *Worker) runSweeper(ctx context.Context) {
	ticker := time.NewTicker(w.sweepInterval)
	defer ticker.Stop()

	w.sweepOnce(ctx)
	for {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweepOnce(ctx)
		}
	}
}

func (w *Worker) sweepOnce(ctx context.Context) int64 {
	n, err := w.store.ResetStaleJobs(ctx, w.now().Add(-w.staleAfter))
	if err != nil {
		w.logger.Error("Failed to reset stale jobs", slog.Any("error", err))
		return 0
	}
	if n > 0 {
		w.logger.Info("Reset stale jobs", slog.Int64("count", n))
		w.wake(int(n))
	}
	return n
}
