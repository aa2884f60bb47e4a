package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/content-i18n/internal/domain"
)

// spawnWorkerPool spawns N worker goroutines based on concurrency configuration
func (w *Worker) spawnWorkerPool(ctx context.Context) {
	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.workerLoop(ctx, i)
	}

	w.logger.Info("Worker pool spawned",
		slog.Int("worker_count", w.concurrency),
	)
}

// workerLoop claims jobs until none is available, then sleeps until the
// next poll tick or a wake-up.
func (w *Worker) workerLoop(ctx context.Context, workerNum int) {
	defer w.wg.Done()

	workerName := fmt.Sprintf("%s-%d", w.workerID, workerNum)
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		if w.stopping(ctx) {
			w.logger.Debug("Worker goroutine stopping", slog.String("worker_name", workerName))
			return
		}

		processed, err := w.processNext(ctx, workerName)
		if err != nil {
			w.logger.Error("Failed to claim job",
				slog.String("worker_name", workerName),
				slog.Any("error", err),
			)
		}
		if processed {
			continue
		}

		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		case <-w.wakeChan:
		case <-ticker.C:
		}
	}
}

func (w *Worker) stopping(ctx context.Context) bool {
	select {
	case <-w.stopChan:
		return true
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// processNext claims and processes one job. It reports false when there was
// nothing to claim.
func (w *Worker) processNext(ctx context.Context, workerName string) (bool, error) {
	job, err := w.store.ClaimNextJob(ctx, workerName)
	if errors.Is(err, domain.ErrNoJobAvailable) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	w.processJob(ctx, workerName, job)
	return true, nil
}
