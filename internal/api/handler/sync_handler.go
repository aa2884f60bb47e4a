package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/content-i18n/internal/api/dto"
	"github.com/cuongbtq/content-i18n/internal/pipeline"
)

// SyncHandler triggers and previews sync runs
type SyncHandler struct {
	logger *slog.Logger
	syncer Syncer
}

// NewSyncHandler creates a new SyncHandler instance
func NewSyncHandler(deps *Dependencies) *SyncHandler {
	return &SyncHandler{
		logger: deps.Logger,
		syncer: deps.Syncer,
	}
}

// RunSync handles POST /api/v1/sync
// Runs a sync synchronously and returns its summary
func (h *SyncHandler) RunSync(c *gin.Context) {
	var req dto.SyncRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
			return
		}
	} else if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters"})
		return
	}

	summary, err := h.syncer.Run(c.Request.Context(), pipeline.Options{LanguageID: req.LanguageID})
	if err != nil {
		respondError(c, h.logger, err, "Sync failed")
		return
	}

	h.logger.Info("Sync triggered via API",
		slog.Int("jobs_created", summary.JobsCreated),
		slog.Int("jobs_updated", summary.JobsUpdated),
	)
	c.JSON(http.StatusOK, summary)
}

// GetChanges handles GET /api/v1/sync/changes
// Lists what a sync would queue without writing anything
func (h *SyncHandler) GetChanges(c *gin.Context) {
	var req dto.SyncRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters"})
		return
	}

	preview, err := h.syncer.Detect(c.Request.Context(), pipeline.Options{LanguageID: req.LanguageID})
	if err != nil {
		respondError(c, h.logger, err, "Change detection failed")
		return
	}

	c.JSON(http.StatusOK, preview)
}
