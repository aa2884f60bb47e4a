package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/content-i18n/internal/api/dto"
	"github.com/cuongbtq/content-i18n/internal/domain"
	"github.com/cuongbtq/content-i18n/internal/locale"
	"github.com/cuongbtq/content-i18n/internal/provider"
)

// ProviderHandler exposes ad-hoc translation and provider settings
type ProviderHandler struct {
	logger     *slog.Logger
	translator Translator
	languages  *locale.Languages
}

// NewProviderHandler creates a new ProviderHandler instance
func NewProviderHandler(deps *Dependencies) *ProviderHandler {
	return &ProviderHandler{
		logger:     deps.Logger,
		translator: deps.Translator,
		languages:  deps.Languages,
	}
}

// Translate handles POST /api/v1/translate
// Translates a batch of texts; each item succeeds or fails on its own
func (h *ProviderHandler) Translate(c *gin.Context) {
	var req dto.TranslateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "texts (1-100) and to are required"})
		return
	}

	ctx := c.Request.Context()
	target, err := h.languages.ByCode(ctx, req.To)
	if err != nil {
		respondError(c, h.logger, err, "Failed to resolve target language")
		return
	}

	var source domain.Language
	if req.From != "" {
		source, err = h.languages.ByCode(ctx, req.From)
	} else {
		source, err = h.languages.Source(ctx)
	}
	if err != nil {
		respondError(c, h.logger, err, "Failed to resolve source language")
		return
	}

	reqs := make([]provider.Request, len(req.Texts))
	for i, text := range req.Texts {
		reqs[i] = provider.Request{Text: text, Source: source, Target: target}
	}

	items := h.translator.TranslateBatch(ctx, reqs, nil)
	c.JSON(http.StatusOK, dto.NewTranslateResponse(source.Code, target.Code, items))
}

// GetSettings handles GET /api/v1/settings/provider
func (h *ProviderHandler) GetSettings(c *gin.Context) {
	settings, err := h.translator.Settings(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, "Failed to load provider settings")
		return
	}
	c.JSON(http.StatusOK, settings.View())
}

// UpdateSettings handles PUT /api/v1/settings/provider
func (h *ProviderHandler) UpdateSettings(c *gin.Context) {
	var update provider.SettingsUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	ctx := c.Request.Context()
	if err := h.translator.UpdateSettings(ctx, update); err != nil {
		respondError(c, h.logger, err, "Failed to update provider settings")
		return
	}

	settings, err := h.translator.Settings(ctx)
	if err != nil {
		respondError(c, h.logger, err, "Failed to load provider settings")
		return
	}
	c.JSON(http.StatusOK, settings.View())
}

// InvalidateSettings handles POST /api/v1/settings/invalidate
// Drops cached provider settings and the cached language list
func (h *ProviderHandler) InvalidateSettings(c *gin.Context) {
	h.translator.Invalidate()
	h.languages.Invalidate()
	c.JSON(http.StatusOK, gin.H{"status": "invalidated"})
}
