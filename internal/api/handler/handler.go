package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/content-i18n/internal/domain"
	"github.com/cuongbtq/content-i18n/internal/locale"
	"github.com/cuongbtq/content-i18n/internal/pipeline"
	"github.com/cuongbtq/content-i18n/internal/provider"
	"github.com/cuongbtq/content-i18n/internal/scanner"
)

// JobStore is the job persistence used by the operator endpoints
type JobStore interface {
	GetJob(ctx context.Context, jobID string) (*domain.TranslationJob, error)
	ListJobs(ctx context.Context, filter domain.JobFilter) ([]domain.TranslationJob, error)
	RetryFailedJob(ctx context.Context, jobID string) (*domain.TranslationJob, error)
}

// ContentStore reads one source record
type ContentStore interface {
	GetRecord(ctx context.Context, ct scanner.ContentType, id string) (domain.Record, error)
}

// Applier overlays translations onto a record
type Applier interface {
	ApplyOne(ctx context.Context, item domain.Record, contentType, locale string, fields []string) (domain.Record, error)
}

// Syncer runs or previews a sync
type Syncer interface {
	Run(ctx context.Context, opts pipeline.Options) (*pipeline.Summary, error)
	Detect(ctx context.Context, opts pipeline.Options) (*pipeline.Preview, error)
}

// Translator is the translation provider as seen by the API
type Translator interface {
	TranslateBatch(ctx context.Context, reqs []provider.Request, progress func(completed, total int)) []provider.BatchItem
	Settings(ctx context.Context) (provider.Settings, error)
	UpdateSettings(ctx context.Context, update provider.SettingsUpdate) error
	Invalidate()
}

// HealthCheck reports whether one dependency is reachable
type HealthCheck func(ctx context.Context) error

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger       *slog.Logger
	Jobs         JobStore
	Content      ContentStore
	Registry     *scanner.Registry
	Languages    *locale.Languages
	Resolver     *locale.Resolver
	Applier      Applier
	Syncer       Syncer
	Translator   Translator
	Notifier     pipeline.Notifier
	HealthChecks map[string]HealthCheck
}

// respondError maps domain errors to HTTP statuses. Unmapped errors are
// logged and reported as 500 with fallback as the message.
func respondError(c *gin.Context, logger *slog.Logger, err error, fallback string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrJobNotFound),
		errors.Is(err, domain.ErrLanguageNotFound),
		errors.Is(err, domain.ErrContentNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrSyncInProgress),
		errors.Is(err, domain.ErrJobNotFailed),
		errors.Is(err, domain.ErrDuplicateActiveJob):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrNotTargetLanguage),
		domain.IsConfigurationError(err):
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		logger.Error(fallback, slog.Any("error", err))
		c.JSON(status, gin.H{"error": fallback})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
