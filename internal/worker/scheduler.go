package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cuongbtq/content-i18n/internal/domain"
	"github.com/cuongbtq/content-i18n/internal/pipeline"
)

// runScheduler triggers a full sync every syncInterval
func (w *Worker) runScheduler(ctx context.Context) {
	ticker := time.NewTicker(w.syncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.syncOnce(ctx)
		}
	}
}

func (w *Worker) syncOnce(ctx context.Context) {
	summary, err := w.syncer.Run(ctx, pipeline.Options{})
	if errors.Is(err, domain.ErrSyncInProgress) {
		w.logger.Debug("Scheduled sync skipped, another run is in progress")
		return
	}
	if err != nil {
		w.logger.Error("Scheduled sync failed", slog.Any("error", err))
		return
	}
	if jobs := summary.JobsCreated + summary.JobsUpdated; jobs > 0 {
		w.wake(jobs)
	}
}
