package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/content-i18n/internal/api/dto"
	"github.com/cuongbtq/content-i18n/internal/domain"
	"github.com/cuongbtq/content-i18n/internal/locale"
	"github.com/cuongbtq/content-i18n/internal/scanner"
)

// ContentHandler serves translated content and locale utilities
type ContentHandler struct {
	logger    *slog.Logger
	content   ContentStore
	registry  *scanner.Registry
	languages *locale.Languages
	resolver  *locale.Resolver
	applier   Applier
}

// NewContentHandler creates a new ContentHandler instance
func NewContentHandler(deps *Dependencies) *ContentHandler {
	return &ContentHandler{
		logger:    deps.Logger,
		content:   deps.Content,
		registry:  deps.Registry,
		languages: deps.Languages,
		resolver:  deps.Resolver,
		applier:   deps.Applier,
	}
}

// GetTranslations handles GET /api/v1/translations
// Returns every registered field of one item in the requested or resolved
// locale, falling back to the source value per field. The body is the bare
// field map; the locale served is in the Content-Language header.
func (h *ContentHandler) GetTranslations(c *gin.Context) {
	var req dto.TranslationsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "contentType and contentId are required"})
		return
	}

	ct, ok := h.registry.Lookup(req.ContentType)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown content type"})
		return
	}

	ctx := c.Request.Context()
	code := req.Locale
	if code == "" {
		resolved, err := h.resolver.ResolveRequest(c.Request)
		if err != nil {
			respondError(c, h.logger, err, "Failed to resolve locale")
			return
		}
		code = resolved
	}

	record, err := h.content.GetRecord(ctx, ct, req.ContentID)
	if err != nil {
		respondError(c, h.logger, err, "Failed to load content")
		return
	}

	translated, err := h.applier.ApplyOne(ctx, record, ct.Name, code, ct.FieldNames())
	if err != nil {
		// Source content is still a valid answer.
		h.logger.Warn("Serving source content, translations unavailable",
			slog.String("content_type", ct.Name),
			slog.String("content_id", req.ContentID),
			slog.String("locale", code),
			slog.Any("error", err),
		)
		translated = record
	}

	c.Header("Content-Language", code)
	c.JSON(http.StatusOK, translated.Fields)
}

// ListLanguages handles GET /api/v1/languages
// Lists active languages, or all of them with ?all=true.
func (h *ContentHandler) ListLanguages(c *gin.Context) {
	ctx := c.Request.Context()

	var (
		langs []domain.Language
		err   error
	)
	if c.Query("all") == "true" {
		langs, err = h.languages.All(ctx)
	} else {
		langs, err = h.languages.Active(ctx)
	}
	if err != nil {
		respondError(c, h.logger, err, "Failed to list languages")
		return
	}

	c.JSON(http.StatusOK, gin.H{"languages": langs})
}

// GetLocale handles GET /api/v1/locale
func (h *ContentHandler) GetLocale(c *gin.Context) {
	code, err := h.resolver.ResolveRequest(c.Request)
	if err != nil {
		respondError(c, h.logger, err, "Failed to resolve locale")
		return
	}
	c.JSON(http.StatusOK, gin.H{"locale": code})
}

// GetAlternates handles GET /api/v1/alternates?path=
func (h *ContentHandler) GetAlternates(c *gin.Context) {
	alternates, err := h.resolver.Alternates(c.Request.Context(), c.DefaultQuery("path", "/"))
	if err != nil {
		respondError(c, h.logger, err, "Failed to build alternates")
		return
	}
	c.JSON(http.StatusOK, gin.H{"alternates": alternates})
}
