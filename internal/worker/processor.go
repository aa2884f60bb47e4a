package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/content-i18n/internal/domain"
	"github.com/cuongbtq/content-i18n/internal/provider"
)

// finalizeTimeout bounds the store write that records a job's outcome
const finalizeTimeout = 10 * time.Second

// processJob translates a claimed job and records the outcome
func (w *Worker) processJob(ctx context.Context, workerName string, job *domain.TranslationJob) {
	w.logger.Info("Job claimed",
		slog.String("worker_name", workerName),
		slog.String("job_id", job.JobID),
		slog.String("content_type", job.ContentType),
		slog.String("content_id", job.ContentID),
		slog.String("field", job.Field),
		slog.Int64("language_id", job.LanguageID),
		slog.Int("attempt", job.Attempts),
	)

	jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
	defer cancel()

	heartbeatDone := make(chan struct{})
	go w.sendJobHeartbeat(jobCtx, job.JobID, workerName, heartbeatDone)
	defer close(heartbeatDone)

	result, err := w.executeJob(jobCtx, job)

	// The outcome is written even while shutting down so the job does not
	// wait for the sweeper.
	storeCtx, storeCancel := context.WithTimeout(context.WithoutCancel(ctx), finalizeTimeout)
	defer storeCancel()

	if err != nil {
		w.handleFailure(storeCtx, ctx.Err() != nil, workerName, job, err)
		return
	}

	if err := w.store.CompleteJob(storeCtx, job, result.Text, result.Provider); err != nil {
		if errors.Is(err, domain.ErrJobSuperseded) {
			w.logger.Info("Job superseded while translating, result discarded",
				slog.String("worker_name", workerName),
				slog.String("job_id", job.JobID),
			)
			return
		}
		w.logger.Error("Failed to store translation",
			slog.String("worker_name", workerName),
			slog.String("job_id", job.JobID),
			slog.Any("error", err),
		)
		return
	}

	w.logger.Info("Job completed",
		slog.String("worker_name", workerName),
		slog.String("job_id", job.JobID),
		slog.String("provider", result.Provider),
	)
}

// executeJob resolves the job's languages and translates its text
func (w *Worker) executeJob(ctx context.Context, job *domain.TranslationJob) (provider.Result, error) {
	source, err := w.languages.Source(ctx)
	if err != nil {
		if errors.Is(err, domain.ErrSourceLanguageMissing) {
			return provider.Result{}, &domain.ConfigurationError{Reason: "source language unavailable", Err: err}
		}
		return provider.Result{}, err
	}

	target, err := w.languages.ByID(ctx, job.LanguageID)
	if err != nil {
		if errors.Is(err, domain.ErrLanguageNotFound) {
			return provider.Result{}, &domain.ConfigurationError{Reason: "target language unavailable", Err: err}
		}
		return provider.Result{}, err
	}

	return w.translator.Translate(ctx, provider.Request{
		Text:   job.OriginalText,
		Source: source,
		Target: target,
	})
}

// handleFailure returns the job to PENDING with a backoff, or fails it for
// good when the error is a configuration problem or attempts are exhausted.
// A job interrupted by shutdown is released for immediate pickup.
func (w *Worker) handleFailure(ctx context.Context, shuttingDown bool, workerName string, job *domain.TranslationJob, jobErr error) {
	msg := jobErr.Error()
	log := w.logger.With(
		slog.String("worker_name", workerName),
		slog.String("job_id", job.JobID),
		slog.Int("attempt", job.Attempts),
		slog.Any("error", jobErr),
	)

	var err error
	switch {
	case shuttingDown:
		log.Info("Job interrupted by shutdown, releasing")
		err = w.store.RetryJob(ctx, job.JobID, workerName, msg, w.now())

	case domain.IsConfigurationError(jobErr):
		log.Error("Job failed: translation is not configured for this language")
		err = w.store.FailJob(ctx, job.JobID, workerName, msg)

	case w.retry.Exhausted(job.Attempts, job.MaxAttempts):
		log.Error("Job failed: max attempts reached")
		err = w.store.FailJob(ctx, job.JobID, workerName, fmt.Sprintf("%v: %s", domain.ErrMaxRetriesExceeded, msg))

	default:
		delay := w.retry.Delay(job.Attempts)
		log.Warn("Job failed, will retry", slog.Duration("retry_in", delay))
		err = w.store.RetryJob(ctx, job.JobID, workerName, msg, w.now().Add(delay))
	}

	if err != nil {
		log.Error("Failed to record job failure", slog.Any("store_error", err))
	}
}

// sendJobHeartbeat refreshes the job's heartbeat until done is closed
func (w *Worker) sendJobHeartbeat(ctx context.Context, jobID, workerName string, done <-chan struct{}) {
	ticker := time.NewTicker(w.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return

		case <-ctx.Done():
			return

		case <-ticker.C:
			err := w.store.HeartbeatJob(ctx, jobID, workerName)
			if errors.Is(err, domain.ErrJobAlreadyClaimed) || errors.Is(err, domain.ErrJobNotFound) {
				w.logger.Warn("Lost ownership of job, stopping heartbeat",
					slog.String("job_id", jobID),
					slog.String("worker_name", workerName),
				)
				return
			}
			if err != nil {
				w.logger.Warn("Failed to update job heartbeat",
					slog.String("job_id", jobID),
					slog.Any("error", err),
				)
			}
		}
	}
}
