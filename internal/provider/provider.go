// Package provider translates text through a machine-translation backend and
// an AI backend, choosing and falling back between them per request.
package provider

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/cuongbtq/content-i18n/internal/config"
	"github.com/cuongbtq/content-i18n/internal/domain"
	"github.com/cuongbtq/content-i18n/shared/ttlcache"
)

// Request is one text to translate
type Request struct {
	Text   string
	Source domain.Language
	Target domain.Language
}

// Result is a translated text and the backend that produced it.
// Provider is empty when nothing had to be translated.
type Result struct {
	Text     string `json:"text"`
	Provider string `json:"provider,omitempty"`
}

// Options configures a Provider
type Options struct {
	Store       SettingsStore
	Defaults    Settings
	SettingsTTL time.Duration
	MT          Strategy
	AI          Strategy
	BatchDelay  time.Duration
	Logger      *slog.Logger
}

// Provider is the translation entry point used by workers and the API
type Provider struct {
	store      SettingsStore
	settings   *ttlcache.Cache[Settings]
	mt         Strategy
	ai         Strategy
	batchDelay time.Duration
	logger     *slog.Logger
}

// New creates a new Provider
func New(opts Options) *Provider {
	ttl := opts.SettingsTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	store, defaults := opts.Store, opts.Defaults
	return &Provider{
		store: store,
		settings: ttlcache.New(ttl, func(ctx context.Context) (Settings, error) {
			return loadSettings(ctx, store, defaults)
		}),
		mt:         opts.MT,
		ai:         opts.AI,
		batchDelay: opts.BatchDelay,
		logger:     logger,
	}
}

// Settings returns the effective settings
func (p *Provider) Settings(ctx context.Context) (Settings, error) {
	return p.settings.Get(ctx)
}

// Invalidate drops cached settings so the next call reloads them
func (p *Provider) Invalidate() {
	p.settings.Invalidate()
	p.logger.Info("Provider settings invalidated")
}

// UpdateSettings validates and stores operator settings, then invalidates the cache
func (p *Provider) UpdateSettings(ctx context.Context, update SettingsUpdate) error {
	values, err := update.Values()
	if err != nil {
		return domain.NewConfigurationError("%v", err)
	}
	if p.store == nil {
		return domain.NewConfigurationError("settings store is not available")
	}
	if err := p.store.PutSettings(ctx, values); err != nil {
		return fmt.Errorf("failed to save provider settings: %w", err)
	}
	p.Invalidate()
	return nil
}

// Translate translates one text. Blank text is returned unchanged without
// contacting any backend.
func (p *Provider) Translate(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.Text) == "" {
		return Result{Text: req.Text}, nil
	}

	settings, err := p.settings.Get(ctx)
	if err != nil {
		return Result{}, err
	}

	plan, err := p.plan(settings, req.Target)
	if err != nil {
		return Result{}, err
	}

	var errs []error
	for i, strategy := range plan {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		text, err := strategy.Translate(ctx, settings, req)
		if err == nil {
			return Result{Text: text, Provider: strategy.Name()}, nil
		}
		errs = append(errs, err)

		if i+1 < len(plan) {
			p.logger.Warn("Translation backend failed, falling back",
				slog.String("from", strategy.Name()),
				slog.String("to", plan[i+1].Name()),
				slog.String("target", req.Target.Code),
				slog.Any("error", err),
			)
		}
	}

	return Result{}, &domain.TranslationFailedError{Errors: errs}
}

// plan returns the backends to try in order. A locale machine translation
// cannot handle never reaches the MT backend.
func (p *Provider) plan(s Settings, target domain.Language) ([]Strategy, error) {
	if _, ok := s.Capabilities.Lookup(target.Code); !ok {
		if p.configured(p.ai, s) {
			return []Strategy{p.ai}, nil
		}
		return nil, &domain.ConfigurationError{
			Reason: fmt.Sprintf("locale %q is not supported by machine translation and no AI backend is configured", target.Code),
			Err:    domain.ErrNoBackend,
		}
	}

	order := []Strategy{p.mt, p.ai}
	if s.Preference == config.PreferenceAIForced {
		order = []Strategy{p.ai, p.mt}
	}

	plan := make([]Strategy, 0, len(order))
	for _, strategy := range order {
		if p.configured(strategy, s) {
			plan = append(plan, strategy)
		}
	}
	if len(plan) == 0 {
		return nil, &domain.ConfigurationError{
			Reason: "no translation backend is configured",
			Err:    domain.ErrNoBackend,
		}
	}
	return plan, nil
}

func (p *Provider) configured(strategy Strategy, s Settings) bool {
	return strategy != nil && strategy.Configured(s)
}

func (p *Provider) limiter() *rate.Limiter {
	if p.batchDelay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(p.batchDelay), 1)
}
