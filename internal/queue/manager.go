// Package queue turns change classifications into translation jobs.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cuongbtq/content-i18n/internal/domain"
)

// Store is the persistence the manager needs
type Store interface {
	MarkOutdated(ctx context.Context, key domain.TranslationKey) error
	FindActiveJob(ctx context.Context, key domain.TranslationKey) (*domain.TranslationJob, error)
	LatestFailedJob(ctx context.Context, key domain.TranslationKey) (*domain.TranslationJob, error)
	CreateJob(ctx context.Context, job *domain.TranslationJob) error
	RefreshJob(ctx context.Context, jobID, text, hash string, priority int) error
}

// Policy decides which classifications produce jobs
type Policy struct {
	CreateJobsForNew     bool
	CreateJobsForChanged bool
	MaxAttempts          int
}

// DefaultPolicy queues both NEW and CHANGED fields
func DefaultPolicy() Policy {
	return Policy{
		CreateJobsForNew:     true,
		CreateJobsForChanged: true,
		MaxAttempts:          3,
	}
}

// Result counts what one Enqueue call did
type Result struct {
	Created        int
	Updated        int
	InFlight       int
	MarkedOutdated int
	Skipped        int
	// HeldFailed counts keys whose last job failed on the same source text.
	// They are also counted in Skipped.
	HeldFailed int
}

// Jobs is the number of jobs that are now waiting to be claimed
func (r *Result) Jobs() int {
	return r.Created + r.Updated
}

// Manager keeps at most one active job per translation key
type Manager struct {
	store  Store
	policy Policy
	logger *slog.Logger
}

// NewManager creates a new Manager
func NewManager(store Store, policy Policy, logger *slog.Logger) *Manager {
	if policy.MaxAttempts <= 0 {
		policy.MaxAttempts = 3
	}
	return &Manager{
		store:  store,
		policy: policy,
		logger: logger,
	}
}

// Priority returns the job priority for a change
func Priority(c domain.ChangedContent) int {
	if c.Change == domain.ChangeChanged {
		return c.Priority + domain.ChangedPriorityBoost
	}
	return c.Priority
}

// Enqueue applies each change in order. A persistence error stops the run
// and is returned with the counts so far.
func (m *Manager) Enqueue(ctx context.Context, changes []domain.ChangedContent) (*Result, error) {
	result := &Result{}

	for _, c := range changes {
		if err := m.enqueueOne(ctx, c, result); err != nil {
			return result, fmt.Errorf("enqueue %s/%s/%s lang=%d: %w",
				c.ContentType, c.ContentID, c.Field, c.LanguageID, err)
		}
	}

	m.logger.Debug("Enqueue complete",
		slog.Int("changes", len(changes)),
		slog.Int("created", result.Created),
		slog.Int("updated", result.Updated),
		slog.Int("in_flight", result.InFlight),
		slog.Int("marked_outdated", result.MarkedOutdated),
		slog.Int("skipped", result.Skipped),
		slog.Int("held_failed", result.HeldFailed),
	)

	return result, nil
}

func (m *Manager) enqueueOne(ctx context.Context, c domain.ChangedContent, result *Result) error {
	key := c.Key()

	if c.HasTranslation {
		if err := m.store.MarkOutdated(ctx, key); err != nil {
			return err
		}
		result.MarkedOutdated++
	}

	if !m.shouldQueue(c) || strings.TrimSpace(c.Value) == "" {
		result.Skipped++
		return nil
	}

	priority := Priority(c)

	// A concurrent writer can create or finish the active job between the
	// lookup and the write; one retry settles it.
	for attempt := 0; attempt < 2; attempt++ {
		job, err := m.store.FindActiveJob(ctx, key)
		switch {
		case err == nil:
			// Same text: keep its attempts and backoff.
			if job.SourceHash == c.NewHash {
				result.InFlight++
				return nil
			}
			err = m.store.RefreshJob(ctx, job.JobID, c.Value, c.NewHash, priority)
			if err == nil {
				result.Updated++
				return nil
			}
			if !errors.Is(err, domain.ErrJobNotFound) {
				return err
			}

		case errors.Is(err, domain.ErrJobNotFound):
			held, heldErr := m.failedOnSameSource(ctx, key, c.NewHash)
			if heldErr != nil {
				return heldErr
			}
			if held {
				result.Skipped++
				result.HeldFailed++
				return nil
			}

			err = m.store.CreateJob(ctx, &domain.TranslationJob{
				LanguageID:   c.LanguageID,
				ContentType:  c.ContentType,
				ContentID:    c.ContentID,
				Field:        c.Field,
				OriginalText: c.Value,
				SourceHash:   c.NewHash,
				Priority:     priority,
				Status:       domain.JobStatusPending,
				MaxAttempts:  m.policy.MaxAttempts,
			})
			if err == nil {
				result.Created++
				return nil
			}
			if !errors.Is(err, domain.ErrDuplicateActiveJob) {
				return err
			}

		default:
			return err
		}
	}

	return domain.ErrDuplicateActiveJob
}

// failedOnSameSource reports whether the key's latest job failed on hash.
// Such keys wait for a source edit or an operator retry.
func (m *Manager) failedOnSameSource(ctx context.Context, key domain.TranslationKey, hash string) (bool, error) {
	job, err := m.store.LatestFailedJob(ctx, key)
	if errors.Is(err, domain.ErrJobNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return job.SourceHash == hash, nil
}

func (m *Manager) shouldQueue(c domain.ChangedContent) bool {
	switch c.Change {
	case domain.ChangeNew:
		return m.policy.CreateJobsForNew
	case domain.ChangeChanged:
		return m.policy.CreateJobsForChanged
	default:
		return false
	}
}
