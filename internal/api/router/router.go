package router

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/content-i18n/internal/api/handler"
)

// ServiceName is reported by the health endpoint
const ServiceName = "i18n-api-service"

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	r.GET("/health", healthHandler(deps.HealthChecks))

	contentHandler := handler.NewContentHandler(deps)
	jobHandler := handler.NewJobHandler(deps)
	syncHandler := handler.NewSyncHandler(deps)
	providerHandler := handler.NewProviderHandler(deps)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", healthHandler(deps.HealthChecks))

		v1.GET("/translations", contentHandler.GetTranslations)
		v1.GET("/languages", contentHandler.ListLanguages)
		v1.GET("/locale", contentHandler.GetLocale)
		v1.GET("/alternates", contentHandler.GetAlternates)

		v1.POST("/sync", syncHandler.RunSync)
		v1.GET("/sync/changes", syncHandler.GetChanges)

		jobs := v1.Group("/jobs")
		{
			jobs.GET("", jobHandler.ListJobs)
			jobs.GET("/:job_id", jobHandler.GetJob)
			jobs.POST("/:job_id/retry", jobHandler.RetryJob)
		}

		v1.POST("/translate", providerHandler.Translate)

		settings := v1.Group("/settings")
		{
			settings.GET("/provider", providerHandler.GetSettings)
			settings.PUT("/provider", providerHandler.UpdateSettings)
			settings.POST("/invalidate", providerHandler.InvalidateSettings)
		}
	}

	return r
}

func healthHandler(checks map[string]handler.HealthCheck) gin.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		status := http.StatusOK
		results := make(gin.H, len(names))
		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				status = http.StatusServiceUnavailable
				results[name] = err.Error()
				continue
			}
			results[name] = "ok"
		}

		state := "healthy"
		if status != http.StatusOK {
			state = "unhealthy"
		}
		c.JSON(status, gin.H{
			"status":  state,
			"service": ServiceName,
			"checks":  results,
		})
	}
}
