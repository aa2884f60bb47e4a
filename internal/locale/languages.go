package locale

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cuongbtq/content-i18n/internal/domain"
	"github.com/cuongbtq/content-i18n/shared/ttlcache"
)

// LanguageStore lists every known language
type LanguageStore interface {
	ListLanguages(ctx context.Context) ([]domain.Language, error)
}

// Languages is the TTL-cached language registry shared by the resolver, the
// applier, the workers and the HTTP handlers.
type Languages struct {
	cache *ttlcache.Cache[[]domain.Language]
}

// NewLanguages creates a registry view that reloads from store after ttl
func NewLanguages(store LanguageStore, ttl time.Duration, opts ...ttlcache.Option[[]domain.Language]) *Languages {
	load := func(ctx context.Context) ([]domain.Language, error) {
		langs, err := store.ListLanguages(ctx)
		if err != nil {
			return nil, err
		}
		sort.SliceStable(langs, func(i, j int) bool {
			if langs[i].SortOrder != langs[j].SortOrder {
				return langs[i].SortOrder < langs[j].SortOrder
			}
			return langs[i].ID < langs[j].ID
		})
		return langs, nil
	}
	return &Languages{cache: ttlcache.New(ttl, load, opts...)}
}

// All returns every language, active or not, in sort order
func (l *Languages) All(ctx context.Context) ([]domain.Language, error) {
	langs, err := l.cache.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load languages: %w", err)
	}
	return langs, nil
}

// Active returns the active languages, source included, in sort order
func (l *Languages) Active(ctx context.Context) ([]domain.Language, error) {
	return l.filter(ctx, func(lang domain.Language) bool { return lang.IsActive })
}

// Targets returns the active languages content is translated into
func (l *Languages) Targets(ctx context.Context) ([]domain.Language, error) {
	return l.filter(ctx, func(lang domain.Language) bool { return lang.IsActive && !lang.IsDefault })
}

func (l *Languages) filter(ctx context.Context, keep func(domain.Language) bool) ([]domain.Language, error) {
	all, err := l.All(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Language, 0, len(all))
	for _, lang := range all {
		if keep(lang) {
			out = append(out, lang)
		}
	}
	return out, nil
}

// Source returns the default (authoring) language
func (l *Languages) Source(ctx context.Context) (domain.Language, error) {
	all, err := l.All(ctx)
	if err != nil {
		return domain.Language{}, err
	}
	for _, lang := range all {
		if lang.IsDefault {
			return lang, nil
		}
	}
	return domain.Language{}, domain.ErrSourceLanguageMissing
}

// ByID returns a language by id, active or not
func (l *Languages) ByID(ctx context.Context, id int64) (domain.Language, error) {
	all, err := l.All(ctx)
	if err != nil {
		return domain.Language{}, err
	}
	for _, lang := range all {
		if lang.ID == id {
			return lang, nil
		}
	}
	return domain.Language{}, fmt.Errorf("language %d: %w", id, domain.ErrLanguageNotFound)
}

// ByCode returns a language by its code, compared case-insensitively
func (l *Languages) ByCode(ctx context.Context, code string) (domain.Language, error) {
	all, err := l.All(ctx)
	if err != nil {
		return domain.Language{}, err
	}
	for _, lang := range all {
		if strings.EqualFold(lang.Code, code) {
			return lang, nil
		}
	}
	return domain.Language{}, fmt.Errorf("language %q: %w", code, domain.ErrLanguageNotFound)
}

// Invalidate drops the cached list so the next read reloads it
func (l *Languages) Invalidate() {
	l.cache.Invalidate()
}
