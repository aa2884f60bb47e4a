package dto

import (
	"time"

	"github.com/cuongbtq/content-i18n/internal/domain"
)

type ListJobsRequest struct {
	Status      string `form:"status"`
	LanguageID  int64  `form:"language_id"`
	ContentType string `form:"content_type"`
	PageSize    int    `form:"page_size"`
	Cursor      string `form:"cursor"`
}

type ListJobsResponse struct {
	Jobs       []JobDTO `json:"jobs"`
	NextCursor string   `json:"next_cursor,omitempty"`
}

type JobDTO struct {
	JobID         string  `json:"job_id"`
	LanguageID    int64   `json:"language_id"`
	ContentType   string  `json:"content_type"`
	ContentID     string  `json:"content_id"`
	Field         string  `json:"field"`
	OriginalText  string  `json:"original_text"`
	Priority      int     `json:"priority"`
	Status        string  `json:"status"`
	Attempts      int     `json:"attempts"`
	MaxAttempts   int     `json:"max_attempts"`
	LastError     *string `json:"last_error,omitempty"`
	WorkerID      *string `json:"worker_id,omitempty"`
	AvailableAt   string  `json:"available_at"`
	LastHeartbeat string  `json:"last_heartbeat_at,omitempty"`
	CompletedAt   string  `json:"completed_at,omitempty"`
	CreatedAt     string  `json:"created_at"`
	UpdatedAt     string  `json:"updated_at"`
}

// NewJobDTO converts a job for the wire
func NewJobDTO(job domain.TranslationJob) JobDTO {
	return JobDTO{
		JobID:         job.JobID,
		LanguageID:    job.LanguageID,
		ContentType:   job.ContentType,
		ContentID:     job.ContentID,
		Field:         job.Field,
		OriginalText:  job.OriginalText,
		Priority:      job.Priority,
		Status:        job.Status,
		Attempts:      job.Attempts,
		MaxAttempts:   job.MaxAttempts,
		LastError:     job.LastError,
		WorkerID:      job.WorkerID,
		AvailableAt:   job.AvailableAt.Format(time.RFC3339),
		LastHeartbeat: formatOptional(job.LastHeartbeatAt),
		CompletedAt:   formatOptional(job.CompletedAt),
		CreatedAt:     job.CreatedAt.Format(time.RFC3339),
		UpdatedAt:     job.UpdatedAt.Format(time.RFC3339),
	}
}

func formatOptional(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
