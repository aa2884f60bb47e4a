package domain

import "time"

// TranslationJob is one unit of pending translation work for a
// (content item, field, language) triple.
type TranslationJob struct {
	JobID           string     `db:"job_id" json:"job_id"`
	LanguageID      int64      `db:"language_id" json:"language_id"`
	ContentType     string     `db:"content_type" json:"content_type"`
	ContentID       string     `db:"content_id" json:"content_id"`
	Field           string     `db:"field" json:"field"`
	OriginalText    string     `db:"original_text" json:"original_text"`
	SourceHash      string     `db:"source_hash" json:"source_hash"`
	Priority        int        `db:"priority" json:"priority"`
	Status          string     `db:"status" json:"status"`
	Attempts        int        `db:"attempts" json:"attempts"`
	MaxAttempts     int        `db:"max_attempts" json:"max_attempts"`
	LastError       *string    `db:"last_error" json:"last_error,omitempty"`
	WorkerID        *string    `db:"worker_id" json:"worker_id,omitempty"`
	AvailableAt     time.Time  `db:"available_at" json:"available_at"`
	StartedAt       *time.Time `db:"started_at" json:"started_at,omitempty"`
	LastHeartbeatAt *time.Time `db:"last_heartbeat_at" json:"last_heartbeat_at,omitempty"`
	CompletedAt     *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// Key returns the composite key of the job.
func (j TranslationJob) Key() TranslationKey {
	return TranslationKey{
		LanguageID:  j.LanguageID,
		ContentType: j.ContentType,
		ContentID:   j.ContentID,
		Field:       j.Field,
	}
}

// JobMessage is the wake-up notification published to RabbitMQ after jobs
// are enqueued. Workers treat it as a hint; the database is the source of truth.
type JobMessage struct {
	Reason      string `json:"reason"`
	Jobs        int    `json:"jobs"`
	DeliveryTag uint64 `json:"-"`
}

// JobCursor marks a position in the (created_at DESC, job_id DESC) job listing.
type JobCursor struct {
	CreatedAt time.Time
	JobID     string
}

// JobFilter selects jobs for listing. Zero values mean "any".
type JobFilter struct {
	Status      string
	LanguageID  int64
	ContentType string
	PageSize    int
	Cursor      *JobCursor
}
