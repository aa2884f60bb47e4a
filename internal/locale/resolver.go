// Package locale resolves the locale of a request and builds hreflang
// alternates from the active language list.
package locale

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/text/language"

	"github.com/cuongbtq/content-i18n/internal/domain"
)

// Config holds resolution settings
type Config struct {
	CookieName     string
	FallbackLocale string
	BaseURL        string
}

// Resolver picks the locale for a request
type Resolver struct {
	languages *Languages
	cfg       Config
	logger    *slog.Logger
}

// NewResolver creates a new Resolver
func NewResolver(languages *Languages, cfg Config, logger *slog.Logger) *Resolver {
	if cfg.CookieName == "" {
		cfg.CookieName = "locale"
	}
	return &Resolver{
		languages: languages,
		cfg:       cfg,
		logger:    logger,
	}
}

// CookieName returns the name of the locale preference cookie
func (r *Resolver) CookieName() string {
	return r.cfg.CookieName
}

// ResolveRequest resolves the locale from the request's cookie and
// Accept-Language header.
func (r *Resolver) ResolveRequest(req *http.Request) (string, error) {
	var cookie string
	if c, err := req.Cookie(r.cfg.CookieName); err == nil {
		cookie = c.Value
	}
	return r.Resolve(req.Context(), cookie, req.Header.Get("Accept-Language"))
}

// Resolve applies the precedence: stored preference, best Accept-Language
// match, configured fallback, source locale.
func (r *Resolver) Resolve(ctx context.Context, cookie, acceptLanguage string) (string, error) {
	active, err := r.languages.Active(ctx)
	if err != nil {
		return "", err
	}

	if code, ok := findCode(active, cookie); ok {
		return code, nil
	}

	if code, ok := matchAcceptLanguage(active, acceptLanguage); ok {
		return code, nil
	}

	if code, ok := findCode(active, r.cfg.FallbackLocale); ok {
		return code, nil
	}

	source, err := r.languages.Source(ctx)
	if err != nil {
		return "", err
	}
	return source.Code, nil
}

func findCode(langs []domain.Language, code string) (string, bool) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", false
	}
	for _, lang := range langs {
		if strings.EqualFold(lang.Code, code) {
			return lang.Code, true
		}
	}
	return "", false
}

// matchAcceptLanguage walks the header's tags by descending quality and
// returns the first supported code. A tag matches a language exactly or by
// its base language ("de-AT" matches "de").
func matchAcceptLanguage(langs []domain.Language, header string) (string, bool) {
	if strings.TrimSpace(header) == "" {
		return "", false
	}

	tags, q, err := language.ParseAcceptLanguage(header)
	if err != nil {
		return "", false
	}

	for i, tag := range tags {
		if q[i] <= 0 {
			continue
		}
		if code, ok := findCode(langs, tag.String()); ok {
			return code, true
		}
		base, conf := tag.Base()
		if conf != language.Exact {
			continue
		}
		for _, lang := range langs {
			langBase, _ := language.Make(lang.Code).Base()
			if langBase == base {
				return lang.Code, true
			}
		}
	}
	return "", false
}
