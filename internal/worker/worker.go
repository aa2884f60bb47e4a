// Package worker drains the translation job queue: a pool of goroutines
// claims jobs, translates them and stores the result, while a sweeper
// recovers jobs from crashed workers and a scheduler runs periodic syncs.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/cuongbtq/content-i18n/internal/domain"
	"github.com/cuongbtq/content-i18n/internal/pipeline"
	"github.com/cuongbtq/content-i18n/internal/provider"
)

// Store is the job persistence the worker needs
type Store interface {
	ClaimNextJob(ctx context.Context, workerID string) (*domain.TranslationJob, error)
	HeartbeatJob(ctx context.Context, jobID, workerID string) error
	CompleteJob(ctx context.Context, job *domain.TranslationJob, value, provider string) error
	RetryJob(ctx context.Context, jobID, workerID, errMsg string, availableAt time.Time) error
	FailJob(ctx context.Context, jobID, workerID, errMsg string) error
	ResetStaleJobs(ctx context.Context, staleBefore time.Time) (int64, error)
}

// Translator translates one text
type Translator interface {
	Translate(ctx context.Context, req provider.Request) (provider.Result, error)
}

// LanguageSource resolves the languages of a job
type LanguageSource interface {
	Source(ctx context.Context) (domain.Language, error)
	ByID(ctx context.Context, id int64) (domain.Language, error)
}

// Syncer runs a sync pipeline
type Syncer interface {
	Run(ctx context.Context, opts pipeline.Options) (*pipeline.Summary, error)
}

// Consumer delivers wake-up messages
type Consumer interface {
	Consume(consumerTag string, prefetch int) (<-chan amqp.Delivery, error)
}

// Config holds worker configuration
type Config struct {
	Logger     *slog.Logger
	Store      Store
	Translator Translator
	Languages  LanguageSource
	// Syncer and Consumer are optional.
	Syncer   Syncer
	Consumer Consumer

	WorkerID          string
	Concurrency       int
	PollInterval      time.Duration
	JobTimeout        time.Duration
	HeartbeatInterval time.Duration
	StaleAfter        time.Duration
	SweepInterval     time.Duration
	SyncInterval      time.Duration
	PrefetchCount     int
	Retry             RetryPolicy
}

// Worker represents the background job worker
type Worker struct {
	logger     *slog.Logger
	store      Store
	translator Translator
	languages  LanguageSource
	syncer     Syncer
	consumer   Consumer

	workerID          string
	concurrency       int
	pollInterval      time.Duration
	jobTimeout        time.Duration
	heartbeatInterval time.Duration
	staleAfter        time.Duration
	sweepInterval     time.Duration
	syncInterval      time.Duration
	prefetchCount     int
	retry             RetryPolicy

	now      func() time.Time
	wakeChan chan struct{}
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	w := &Worker{
		logger:            cfg.Logger,
		store:             cfg.Store,
		translator:        cfg.Translator,
		languages:         cfg.Languages,
		syncer:            cfg.Syncer,
		consumer:          cfg.Consumer,
		workerID:          cfg.WorkerID,
		concurrency:       cfg.Concurrency,
		pollInterval:      cfg.PollInterval,
		jobTimeout:        cfg.JobTimeout,
		heartbeatInterval: cfg.HeartbeatInterval,
		staleAfter:        cfg.StaleAfter,
		sweepInterval:     cfg.SweepInterval,
		syncInterval:      cfg.SyncInterval,
		prefetchCount:     cfg.PrefetchCount,
		retry:             cfg.Retry.withDefaults(),
		now:               time.Now,
		stopChan:          make(chan struct{}),
	}

	if w.logger == nil {
		w.logger = slog.Default()
	}
	if w.workerID == "" {
		w.workerID = "worker-" + uuid.NewString()[:8]
	}
	if w.concurrency <= 0 {
		w.concurrency = 1
	}
	if w.pollInterval <= 0 {
		w.pollInterval = 5 * time.Second
	}
	if w.jobTimeout <= 0 {
		w.jobTimeout = 2 * time.Minute
	}
	if w.heartbeatInterval <= 0 {
		w.heartbeatInterval = 15 * time.Second
	}
	if w.staleAfter <= 0 {
		w.staleAfter = 2 * time.Minute
	}
	if w.sweepInterval <= 0 {
		w.sweepInterval = time.Minute
	}
	if w.prefetchCount <= 0 {
		w.prefetchCount = w.concurrency
	}
	w.wakeChan = make(chan struct{}, w.concurrency)

	return w
}

// ID returns the worker's id; pool goroutines append their index to it
func (w *Worker) ID() string {
	return w.workerID
}

// Start launches the pool, the sweeper, the scheduler and the wake-up
// consumer, then blocks until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
		slog.Duration("poll_interval", w.pollInterval),
		slog.Duration("job_timeout", w.jobTimeout),
	)

	w.spawnWorkerPool(ctx)
	w.startBackground(ctx, "sweeper", w.runSweeper)

	if w.syncer != nil && w.syncInterval > 0 {
		w.startBackground(ctx, "scheduler", w.runScheduler)
	}

	if w.consumer != nil {
		deliveries, err := w.setupConsumer()
		if err != nil {
			w.logger.Warn("Wake-up consumer unavailable, relying on polling",
				slog.Any("error", err),
			)
		} else {
			w.startBackground(ctx, "dispatcher", func(ctx context.Context) {
				w.startMessageDispatcher(ctx, deliveries)
			})
		}
	}

	<-ctx.Done()
	w.logger.Info("Worker context canceled, stopping...")

	return nil
}

// Stop signals every goroutine to finish and waits for in-flight jobs
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	w.stopOnce.Do(func() { close(w.stopChan) })
	w.wg.Wait()
	w.logger.Info("Worker stopped")
}

func (w *Worker) startBackground(ctx context.Context, name string, run func(ctx context.Context)) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		run(ctx)
		w.logger.Debug("Background task stopped", slog.String("task", name))
	}()
}

// wake nudges up to n idle pool goroutines
func (w *Worker) wake(n int) {
	if n <= 0 {
		n = 1
	}
	for i := 0; i < n && i < w.concurrency; i++ {
		select {
		case w.wakeChan <- struct{}{}:
		default:
			return
		}
	}
}
