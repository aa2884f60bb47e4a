package memory

import (
	"context"
	"sort"
	"time"

	"github.com/cuongbtq/content-i18n/internal/domain"
)

func isActive(job *domain.TranslationJob) bool {
	return job.Status == domain.JobStatusPending || job.Status == domain.JobStatusProcessing
}

func (s *Store) activeJobLocked(key domain.TranslationKey) *domain.TranslationJob {
	for _, job := range s.jobs {
		if isActive(job) && job.Key() == key {
			return job
		}
	}
	return nil
}

// FindActiveJob returns the PENDING or PROCESSING job for key
func (s *Store) FindActiveJob(_ context.Context, key domain.TranslationKey) (*domain.TranslationJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job := s.activeJobLocked(key)
	if job == nil {
		return nil, domain.ErrJobNotFound
	}
	cp := *job
	return &cp, nil
}

// LatestFailedJob returns the most recently failed job for key
func (s *Store) LatestFailedJob(_ context.Context, key domain.TranslationKey) (*domain.TranslationJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest *domain.TranslationJob
	for _, job := range s.jobs {
		if job.Status != domain.JobStatusFailed || job.Key() != key {
			continue
		}
		if latest == nil || job.UpdatedAt.After(latest.UpdatedAt) ||
			(job.UpdatedAt.Equal(latest.UpdatedAt) && job.CreatedAt.After(latest.CreatedAt)) {
			latest = job
		}
	}
	if latest == nil {
		return nil, domain.ErrJobNotFound
	}
	cp := *latest
	return &cp, nil
}

// CreateJob inserts a new job, failing with ErrDuplicateActiveJob when the
// key already has an active job.
func (s *Store) CreateJob(_ context.Context, job *domain.TranslationJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeJobLocked(job.Key()) != nil {
		return domain.ErrDuplicateActiveJob
	}

	now := s.now()
	if job.JobID == "" {
		job.JobID = newJobID()
	}
	if job.Status == "" {
		job.Status = domain.JobStatusPending
	}
	if job.AvailableAt.IsZero() {
		job.AvailableAt = now
	}
	job.CreatedAt = now
	job.UpdatedAt = now

	cp := *job
	s.jobs[job.JobID] = &cp
	return nil
}

// RefreshJob resets an active job to PENDING with new source text
func (s *Store) RefreshJob(_ context.Context, jobID, text, hash string, priority int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok || !isActive(job) {
		return domain.ErrJobNotFound
	}

	now := s.now()
	job.OriginalText = text
	job.SourceHash = hash
	job.Priority = priority
	job.Status = domain.JobStatusPending
	job.Attempts = 0
	job.LastError = nil
	job.WorkerID = nil
	job.StartedAt = nil
	job.LastHeartbeatAt = nil
	job.AvailableAt = now
	job.UpdatedAt = now
	return nil
}

// ClaimNextJob moves the highest-priority available PENDING job to PROCESSING
func (s *Store) ClaimNextJob(_ context.Context, workerID string) (*domain.TranslationJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var next *domain.TranslationJob
	for _, job := range s.jobs {
		if job.Status != domain.JobStatusPending || job.AvailableAt.After(now) {
			continue
		}
		if next == nil || claimsBefore(job, next) {
			next = job
		}
	}
	if next == nil {
		return nil, domain.ErrNoJobAvailable
	}

	next.Status = domain.JobStatusProcessing
	next.WorkerID = &workerID
	next.Attempts++
	next.StartedAt = &now
	next.LastHeartbeatAt = &now
	next.UpdatedAt = now

	cp := *next
	return &cp, nil
}

func claimsBefore(a, b *domain.TranslationJob) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.JobID < b.JobID
}

func (s *Store) ownedJobLocked(jobID, workerID string) (*domain.TranslationJob, error) {
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	if job.Status != domain.JobStatusProcessing || job.WorkerID == nil || *job.WorkerID != workerID {
		return nil, domain.ErrJobAlreadyClaimed
	}
	return job, nil
}

// HeartbeatJob records that workerID is still processing the job
func (s *Store) HeartbeatJob(_ context.Context, jobID, workerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.ownedJobLocked(jobID, workerID)
	if err != nil {
		return err
	}
	now := s.now()
	job.LastHeartbeatAt = &now
	return nil
}

// CompleteJob marks the job TRANSLATED and upserts its translation in one
// step. It fails with ErrJobSuperseded when the job was refreshed or
// reclaimed since job was read.
func (s *Store) CompleteJob(_ context.Context, job *domain.TranslationJob, value, provider string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.jobs[job.JobID]
	if !ok {
		return domain.ErrJobNotFound
	}
	if current.Status != domain.JobStatusProcessing ||
		current.SourceHash != job.SourceHash ||
		current.WorkerID == nil || job.WorkerID == nil || *current.WorkerID != *job.WorkerID {
		return domain.ErrJobSuperseded
	}

	now := s.now()
	current.Status = domain.JobStatusTranslated
	current.LastError = nil
	current.CompletedAt = &now
	current.UpdatedAt = now

	s.putTranslationLocked(domain.Translation{
		LanguageID:  job.LanguageID,
		ContentType: job.ContentType,
		ContentID:   job.ContentID,
		Field:       job.Field,
		Value:       value,
		SourceHash:  job.SourceHash,
		Status:      domain.TranslationStatusTranslated,
		IsOutdated:  false,
		Provider:    provider,
	})
	return nil
}

// RetryJob returns a PROCESSING job to PENDING, available again at availableAt
func (s *Store) RetryJob(_ context.Context, jobID, workerID, errMsg string, availableAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.ownedJobLocked(jobID, workerID)
	if err != nil {
		return err
	}
	job.Status = domain.JobStatusPending
	job.LastError = &errMsg
	job.WorkerID = nil
	job.AvailableAt = availableAt
	job.UpdatedAt = s.now()
	return nil
}

// FailJob moves a PROCESSING job to the terminal FAILED status
func (s *Store) FailJob(_ context.Context, jobID, workerID, errMsg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.ownedJobLocked(jobID, workerID)
	if err != nil {
		return err
	}
	now := s.now()
	job.Status = domain.JobStatusFailed
	job.LastError = &errMsg
	job.CompletedAt = &now
	job.UpdatedAt = now
	return nil
}

// ResetStaleJobs returns PROCESSING jobs whose last heartbeat is older than
// staleBefore to PENDING.
func (s *Store) ResetStaleJobs(_ context.Context, staleBefore time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var n int64
	for _, job := range s.jobs {
		if job.Status != domain.JobStatusProcessing {
			continue
		}
		if job.LastHeartbeatAt != nil && !job.LastHeartbeatAt.Before(staleBefore) {
			continue
		}
		job.Status = domain.JobStatusPending
		job.WorkerID = nil
		job.AvailableAt = now
		job.UpdatedAt = now
		n++
	}
	return n, nil
}

// GetJob returns a job by id
func (s *Store) GetJob(_ context.Context, jobID string) (*domain.TranslationJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	cp := *job
	return &cp, nil
}

// ListJobs returns up to PageSize+1 jobs ordered by created_at DESC, job_id DESC
func (s *Store) ListJobs(_ context.Context, filter domain.JobFilter) ([]domain.TranslationJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []domain.TranslationJob
	for _, job := range s.jobs {
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		if filter.LanguageID != 0 && job.LanguageID != filter.LanguageID {
			continue
		}
		if filter.ContentType != "" && job.ContentType != filter.ContentType {
			continue
		}
		if c := filter.Cursor; c != nil {
			if job.CreatedAt.After(c.CreatedAt) ||
				(job.CreatedAt.Equal(c.CreatedAt) && job.JobID >= c.JobID) {
				continue
			}
		}
		out = append(out, *job)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].JobID > out[j].JobID
	})

	if filter.PageSize > 0 && len(out) > filter.PageSize+1 {
		out = out[:filter.PageSize+1]
	}
	return out, nil
}

// RetryFailedJob resets a FAILED job to PENDING with a fresh attempt budget
func (s *Store) RetryFailedJob(_ context.Context, jobID string) (*domain.TranslationJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok {
		return nil, domain.ErrJobNotFound
	}
	if job.Status != domain.JobStatusFailed {
		return nil, domain.ErrJobNotFailed
	}
	if s.activeJobLocked(job.Key()) != nil {
		return nil, domain.ErrDuplicateActiveJob
	}

	now := s.now()
	job.Status = domain.JobStatusPending
	job.Attempts = 0
	job.WorkerID = nil
	job.CompletedAt = nil
	job.AvailableAt = now
	job.UpdatedAt = now

	cp := *job
	return &cp, nil
}

// Jobs returns a snapshot of every job, highest priority first
func (s *Store) Jobs() []domain.TranslationJob {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.TranslationJob, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, *job)
	}
	sort.Slice(out, func(i, j int) bool { return claimsBefore(&out[i], &out[j]) })
	return out
}
