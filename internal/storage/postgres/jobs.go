package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/cuongbtq/content-i18n/internal/domain"
)

var jobColumns = []string{
	"job_id", "language_id", "content_type", "content_id", "field", "original_text",
	"source_hash", "priority", "status", "attempts", "max_attempts", "last_error",
	"worker_id", "available_at", "started_at", "last_heartbeat_at", "completed_at",
	"created_at", "updated_at",
}

var activeStatuses = []string{domain.JobStatusPending, domain.JobStatusProcessing}

// FindActiveJob returns the PENDING or PROCESSING job for key
func (s *Store) FindActiveJob(ctx context.Context, key domain.TranslationKey) (*domain.TranslationJob, error) {
	query, args, err := s.sq.Select(jobColumns...).
		From("translation_jobs").
		Where(keyPredicate(key)).
		Where(sq.Eq{"status": activeStatuses}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var job domain.TranslationJob
	if err := s.db.GetContext(ctx, &job, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to find active job: %w", err)
	}
	return &job, nil
}

// LatestFailedJob returns the most recently failed job for key
func (s *Store) LatestFailedJob(ctx context.Context, key domain.TranslationKey) (*domain.TranslationJob, error) {
	query, args, err := latestFailedJobQuery(s.sq, key).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var job domain.TranslationJob
	if err := s.db.GetContext(ctx, &job, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to find failed job: %w", err)
	}
	return &job, nil
}

func latestFailedJobQuery(b sq.StatementBuilderType, key domain.TranslationKey) sq.SelectBuilder {
	return b.Select(jobColumns...).
		From("translation_jobs").
		Where(keyPredicate(key)).
		Where(sq.Eq{"status": domain.JobStatusFailed}).
		OrderBy("updated_at DESC", "created_at DESC").
		Limit(1)
}

// CreateJob inserts a new PENDING job. The partial unique index on active
// keys turns a concurrent duplicate into ErrDuplicateActiveJob.
func (s *Store) CreateJob(ctx context.Context, job *domain.TranslationJob) error {
	if job.JobID == "" {
		job.JobID = uuid.New().String()
	}
	if job.Status == "" {
		job.Status = domain.JobStatusPending
	}

	query, args, err := s.sq.Insert("translation_jobs").
		Columns("job_id", "language_id", "content_type", "content_id", "field",
			"original_text", "source_hash", "priority", "status", "attempts", "max_attempts",
			"available_at", "created_at", "updated_at").
		Values(job.JobID, job.LanguageID, job.ContentType, job.ContentID, job.Field,
			job.OriginalText, job.SourceHash, job.Priority, job.Status, job.Attempts, job.MaxAttempts,
			sq.Expr("NOW()"), sq.Expr("NOW()"), sq.Expr("NOW()")).
		Suffix(`ON CONFLICT (language_id, content_type, content_id, field)
			WHERE status IN ('PENDING', 'PROCESSING') DO NOTHING
			RETURNING available_at, created_at, updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	row := s.db.QueryRowxContext(ctx, query, args...)
	if err := row.Scan(&job.AvailableAt, &job.CreatedAt, &job.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.ErrDuplicateActiveJob
		}
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

// RefreshJob resets an active job to PENDING with new source text and a
// fresh attempt budget.
func (s *Store) RefreshJob(ctx context.Context, jobID, text, hash string, priority int) error {
	query, args, err := s.sq.Update("translation_jobs").
		Set("original_text", text).
		Set("source_hash", hash).
		Set("priority", priority).
		Set("status", domain.JobStatusPending).
		Set("attempts", 0).
		Set("last_error", nil).
		Set("worker_id", nil).
		Set("started_at", nil).
		Set("last_heartbeat_at", nil).
		Set("available_at", sq.Expr("NOW()")).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"job_id": jobID, "status": activeStatuses}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	return s.execOne(ctx, query, args, domain.ErrJobNotFound)
}

const claimNextJobQuery = `
	UPDATE translation_jobs
	SET status = $1,
	    worker_id = $2,
	    attempts = attempts + 1,
	    started_at = NOW(),
	    last_heartbeat_at = NOW(),
	    updated_at = NOW()
	WHERE job_id = (
		SELECT job_id FROM translation_jobs
		WHERE status = $3 AND available_at <= NOW()
		ORDER BY priority DESC, created_at ASC
		LIMIT 1
		FOR UPDATE SKIP LOCKED
	)
	RETURNING `

// ClaimNextJob atomically moves the highest-priority available PENDING job
// to PROCESSING for workerID.
func (s *Store) ClaimNextJob(ctx context.Context, workerID string) (*domain.TranslationJob, error) {
	query := claimNextJobQuery + strings.Join(jobColumns, ", ")

	var job domain.TranslationJob
	err := s.db.GetContext(ctx, &job, query, domain.JobStatusProcessing, workerID, domain.JobStatusPending)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNoJobAvailable
		}
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}

	s.logger.Debug("Job claimed",
		slog.String("job_id", job.JobID),
		slog.String("worker_id", workerID),
		slog.Int("attempt", job.Attempts),
	)

	return &job, nil
}

func ownedBy(jobID, workerID string) sq.Eq {
	return sq.Eq{"job_id": jobID, "worker_id": workerID, "status": domain.JobStatusProcessing}
}

// HeartbeatJob records that workerID is still processing the job
func (s *Store) HeartbeatJob(ctx context.Context, jobID, workerID string) error {
	query, args, err := s.sq.Update("translation_jobs").
		Set("last_heartbeat_at", sq.Expr("NOW()")).
		Where(ownedBy(jobID, workerID)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}
	return s.execOne(ctx, query, args, domain.ErrJobAlreadyClaimed)
}

// CompleteJob marks the job TRANSLATED and upserts its translation in one
// transaction. Nothing is written when the job was refreshed with new source
// text or reclaimed since it was read.
func (s *Store) CompleteJob(ctx context.Context, job *domain.TranslationJob, value, provider string) error {
	if job.WorkerID == nil {
		return domain.ErrJobSuperseded
	}

	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		query, args, err := s.sq.Update("translation_jobs").
			Set("status", domain.JobStatusTranslated).
			Set("last_error", nil).
			Set("completed_at", sq.Expr("NOW()")).
			Set("updated_at", sq.Expr("NOW()")).
			Where(ownedBy(job.JobID, *job.WorkerID)).
			Where(sq.Eq{"source_hash": job.SourceHash}).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build query: %w", err)
		}

		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to complete job: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.ErrJobSuperseded
		}

		return upsertTranslation(ctx, s.sq, tx, job, value, provider)
	})
}

// RetryJob returns a PROCESSING job to PENDING, claimable again at availableAt
func (s *Store) RetryJob(ctx context.Context, jobID, workerID, errMsg string, availableAt time.Time) error {
	query, args, err := s.sq.Update("translation_jobs").
		Set("status", domain.JobStatusPending).
		Set("last_error", errMsg).
		Set("worker_id", nil).
		Set("available_at", availableAt).
		Set("updated_at", sq.Expr("NOW()")).
		Where(ownedBy(jobID, workerID)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}
	return s.execOne(ctx, query, args, domain.ErrJobAlreadyClaimed)
}

// FailJob moves a PROCESSING job to the terminal FAILED status
func (s *Store) FailJob(ctx context.Context, jobID, workerID, errMsg string) error {
	query, args, err := s.sq.Update("translation_jobs").
		Set("status", domain.JobStatusFailed).
		Set("last_error", errMsg).
		Set("completed_at", sq.Expr("NOW()")).
		Set("updated_at", sq.Expr("NOW()")).
		Where(ownedBy(jobID, workerID)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}
	return s.execOne(ctx, query, args, domain.ErrJobAlreadyClaimed)
}

// ResetStaleJobs returns PROCESSING jobs whose heartbeat is older than
// staleBefore to PENDING.
func (s *Store) ResetStaleJobs(ctx context.Context, staleBefore time.Time) (int64, error) {
	query, args, err := s.sq.Update("translation_jobs").
		Set("status", domain.JobStatusPending).
		Set("worker_id", nil).
		Set("available_at", sq.Expr("NOW()")).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"status": domain.JobStatusProcessing}).
		Where(sq.Or{
			sq.Eq{"last_heartbeat_at": nil},
			sq.Lt{"last_heartbeat_at": staleBefore},
		}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build query: %w", err)
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to reset stale jobs: %w", err)
	}
	return res.RowsAffected()
}

// GetJob returns a job by id
func (s *Store) GetJob(ctx context.Context, jobID string) (*domain.TranslationJob, error) {
	query, args, err := s.sq.Select(jobColumns...).
		From("translation_jobs").
		Where(sq.Eq{"job_id": jobID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var job domain.TranslationJob
	if err := s.db.GetContext(ctx, &job, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

func listJobsQuery(b sq.StatementBuilderType, filter domain.JobFilter) sq.SelectBuilder {
	q := b.Select(jobColumns...).From("translation_jobs")

	if filter.Status != "" {
		q = q.Where(sq.Eq{"status": filter.Status})
	}
	if filter.LanguageID != 0 {
		q = q.Where(sq.Eq{"language_id": filter.LanguageID})
	}
	if filter.ContentType != "" {
		q = q.Where(sq.Eq{"content_type": filter.ContentType})
	}
	if filter.Cursor != nil {
		q = q.Where("(created_at, job_id) < (?, ?)", filter.Cursor.CreatedAt, filter.Cursor.JobID)
	}

	// one extra row tells the caller whether another page exists
	return q.OrderBy("created_at DESC", "job_id DESC").Limit(uint64(filter.PageSize + 1))
}

// ListJobs returns up to PageSize+1 jobs ordered by created_at DESC, job_id DESC
func (s *Store) ListJobs(ctx context.Context, filter domain.JobFilter) ([]domain.TranslationJob, error) {
	var jobs []domain.TranslationJob
	if err := s.selectContext(ctx, listJobsQuery(s.sq, filter), &jobs); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobs, nil
}

// RetryFailedJob resets a FAILED job to PENDING with a fresh attempt budget
func (s *Store) RetryFailedJob(ctx context.Context, jobID string) (*domain.TranslationJob, error) {
	query, args, err := s.sq.Update("translation_jobs").
		Set("status", domain.JobStatusPending).
		Set("attempts", 0).
		Set("worker_id", nil).
		Set("completed_at", nil).
		Set("available_at", sq.Expr("NOW()")).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"job_id": jobID, "status": domain.JobStatusFailed}).
		Suffix("RETURNING " + strings.Join(jobColumns, ", ")).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	var job domain.TranslationJob
	err = s.db.GetContext(ctx, &job, query, args...)
	if err == nil {
		return &job, nil
	}
	if isUniqueViolation(err) {
		return nil, domain.ErrDuplicateActiveJob
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to retry job: %w", err)
	}

	if _, getErr := s.GetJob(ctx, jobID); getErr != nil {
		return nil, getErr
	}
	return nil, domain.ErrJobNotFailed
}

func (s *Store) execOne(ctx context.Context, query string, args []any, notFound error) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
