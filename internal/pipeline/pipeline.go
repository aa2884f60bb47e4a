// Package pipeline runs a sync: scan the content, detect changes against
// every target language, and queue translation jobs.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/content-i18n/internal/detector"
	"github.com/cuongbtq/content-i18n/internal/domain"
	"github.com/cuongbtq/content-i18n/internal/queue"
	"github.com/cuongbtq/content-i18n/internal/scanner"
)

// ReasonSync is the wake-up reason published after a sync run
const ReasonSync = "sync"

// Options narrows a run
type Options struct {
	// LanguageID limits detection to one target language; zero means all.
	LanguageID int64
}

// Summary reports what a run did
type Summary struct {
	Languages      []string      `json:"languages"`
	Scanned        int           `json:"scanned"`
	New            int           `json:"new"`
	Changed        int           `json:"changed"`
	Unchanged      int           `json:"unchanged"`
	JobsCreated    int           `json:"jobs_created"`
	JobsUpdated    int           `json:"jobs_updated"`
	InFlight       int           `json:"in_flight"`
	HeldFailed     int           `json:"held_failed"`
	MarkedOutdated int           `json:"marked_outdated"`
	ScanErrors     []string      `json:"scan_errors,omitempty"`
	Duration       time.Duration `json:"duration"`
}

// Preview is the result of a dry run
type Preview struct {
	Summary
	Changes []domain.ChangedContent `json:"changes"`
}

// Deps are the collaborators of a Pipeline
type Deps struct {
	Scanner  *scanner.Scanner
	Detector *detector.Detector
	Queue    *queue.Manager
	Lock     Locker
	Notifier Notifier
	Logger   *slog.Logger
}

// Pipeline wires the scanner, detector and queue manager together
type Pipeline struct {
	scanner  *scanner.Scanner
	detector *detector.Detector
	queue    *queue.Manager
	lock     Locker
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// New creates a new Pipeline
func New(deps Deps) *Pipeline {
	lock := deps.Lock
	if lock == nil {
		lock = NewLocalLock()
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Pipeline{
		scanner:  deps.Scanner,
		detector: deps.Detector,
		queue:    deps.Queue,
		lock:     lock,
		notifier: notifier,
		logger:   deps.Logger,
		now:      time.Now,
	}
}

// Run executes a full sync. Only one run may hold the lock at a time; a
// concurrent call fails fast with domain.ErrSyncInProgress.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Summary, error) {
	unlock, err := p.lock.TryLock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	start := p.now()
	preview, err := p.detect(ctx, opts)
	if err != nil {
		return nil, err
	}
	summary := &preview.Summary

	queued, err := p.queue.Enqueue(ctx, preview.Changes)
	if queued != nil {
		summary.JobsCreated = queued.Created
		summary.JobsUpdated = queued.Updated
		summary.InFlight = queued.InFlight
		summary.HeldFailed = queued.HeldFailed
		summary.MarkedOutdated = queued.MarkedOutdated
	}
	if err != nil {
		return summary, fmt.Errorf("failed to queue jobs: %w", err)
	}

	if jobs := queued.Jobs(); jobs > 0 {
		if err := p.notifier.Notify(ctx, domain.JobMessage{Reason: ReasonSync, Jobs: jobs}); err != nil {
			p.logger.Warn("Failed to notify workers, they will pick jobs up on their next poll",
				slog.Int("jobs", jobs),
				slog.Any("error", err),
			)
		}
	}

	summary.Duration = p.now().Sub(start)
	p.logger.Info("Sync run complete",
		slog.Any("languages", summary.Languages),
		slog.Int("scanned", summary.Scanned),
		slog.Int("new", summary.New),
		slog.Int("changed", summary.Changed),
		slog.Int("unchanged", summary.Unchanged),
		slog.Int("jobs_created", summary.JobsCreated),
		slog.Int("jobs_updated", summary.JobsUpdated),
		slog.Int("in_flight", summary.InFlight),
		slog.Int("held_failed", summary.HeldFailed),
		slog.Int("marked_outdated", summary.MarkedOutdated),
		slog.Int("scan_errors", len(summary.ScanErrors)),
		slog.Duration("duration", summary.Duration),
	)

	return summary, nil
}

// Detect scans and classifies without writing anything
func (p *Pipeline) Detect(ctx context.Context, opts Options) (*Preview, error) {
	return p.detect(ctx, opts)
}

func (p *Pipeline) detect(ctx context.Context, opts Options) (*Preview, error) {
	// Resolve targets first so a bad language id fails before any scanning.
	if _, err := p.detector.TargetLanguages(ctx, opts.LanguageID); err != nil {
		return nil, err
	}

	scan, err := p.scanner.Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan aborted: %w", err)
	}

	detected, err := p.detector.Detect(ctx, scan.Fields, opts.LanguageID)
	if err != nil {
		return nil, fmt.Errorf("failed to detect changes: %w", err)
	}

	preview := &Preview{
		Summary: Summary{
			Scanned:   len(scan.Fields),
			New:       detected.New,
			Changed:   detected.Changed,
			Unchanged: detected.Unchanged,
		},
		Changes: detected.Changes,
	}
	for _, lang := range detected.Languages {
		preview.Languages = append(preview.Languages, lang.Code)
	}
	for _, scanErr := range scan.Errors {
		preview.ScanErrors = append(preview.ScanErrors, scanErr.Error())
	}
	return preview, nil
}
