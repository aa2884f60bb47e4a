package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cuongbtq/content-i18n/internal/api/dto"
	"github.com/cuongbtq/content-i18n/internal/domain"
	"github.com/cuongbtq/content-i18n/internal/pipeline"
)

// ReasonRetry is the wake-up reason published when an operator retries a job
const ReasonRetry = "retry"

// JobHandler handles job-related HTTP requests
type JobHandler struct {
	logger   *slog.Logger
	jobs     JobStore
	notifier pipeline.Notifier
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(deps *Dependencies) *JobHandler {
	notifier := deps.Notifier
	if notifier == nil {
		notifier = pipeline.NopNotifier{}
	}
	return &JobHandler{
		logger:   deps.Logger,
		jobs:     deps.Jobs,
		notifier: notifier,
	}
}

func validJobID(c *gin.Context) (string, bool) {
	jobID := c.Param("job_id")
	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "job_id must be a valid UUID"})
		return "", false
	}
	return jobID, true
}

// GetJob handles GET /api/v1/jobs/:job_id
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID, ok := validJobID(c)
	if !ok {
		return
	}

	job, err := h.jobs.GetJob(c.Request.Context(), jobID)
	if err != nil {
		respondError(c, h.logger, err, "Failed to get job")
		return
	}

	c.JSON(http.StatusOK, dto.NewJobDTO(*job))
}

// ListJobs handles GET /api/v1/jobs
// Lists jobs newest first with optional filters and cursor pagination
func (h *JobHandler) ListJobs(c *gin.Context) {
	var req dto.ListJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters"})
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = 20
	}
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	switch req.Status {
	case "", domain.JobStatusPending, domain.JobStatusProcessing, domain.JobStatusTranslated, domain.JobStatusFailed:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		return
	}

	cursor, err := DecodeJobCursor(req.Cursor)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid cursor"})
		return
	}

	jobs, err := h.jobs.ListJobs(c.Request.Context(), domain.JobFilter{
		Status:      req.Status,
		LanguageID:  req.LanguageID,
		ContentType: req.ContentType,
		PageSize:    req.PageSize,
		Cursor:      cursor,
	})
	if err != nil {
		respondError(c, h.logger, err, "Failed to list jobs")
		return
	}

	hasMore := len(jobs) > req.PageSize
	if hasMore {
		jobs = jobs[:req.PageSize]
	}

	resp := dto.ListJobsResponse{Jobs: make([]dto.JobDTO, len(jobs))}
	for i, job := range jobs {
		resp.Jobs[i] = dto.NewJobDTO(job)
	}
	if hasMore {
		last := jobs[len(jobs)-1]
		resp.NextCursor = EncodeJobCursor(domain.JobCursor{CreatedAt: last.CreatedAt, JobID: last.JobID})
	}

	c.JSON(http.StatusOK, resp)
}

// RetryJob handles POST /api/v1/jobs/:job_id/retry
// Puts a FAILED job back in the queue with a fresh attempt budget
func (h *JobHandler) RetryJob(c *gin.Context) {
	jobID, ok := validJobID(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	job, err := h.jobs.RetryFailedJob(ctx, jobID)
	if err != nil {
		respondError(c, h.logger, err, "Failed to retry job")
		return
	}

	h.logger.Info("Job reset by operator", slog.String("job_id", jobID))
	if err := h.notifier.Notify(ctx, domain.JobMessage{Reason: ReasonRetry, Jobs: 1}); err != nil {
		h.logger.Warn("Failed to notify workers", slog.Any("error", err))
	}

	c.JSON(http.StatusOK, dto.NewJobDTO(*job))
}
