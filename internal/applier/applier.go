// Package applier overlays stored translations onto source content at read
// time.
package applier

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/cuongbtq/content-i18n/internal/domain"
)

// TranslationStore loads translations in batches
type TranslationStore interface {
	FindTranslations(ctx context.Context, q domain.TranslationQuery) ([]domain.Translation, error)
}

// LanguageSource resolves locale codes
type LanguageSource interface {
	Source(ctx context.Context) (domain.Language, error)
	ByCode(ctx context.Context, code string) (domain.Language, error)
}

// Applier serves translated content with per-field fallback to the source value
type Applier struct {
	store     TranslationStore
	languages LanguageSource
	logger    *slog.Logger
}

// New creates a new Applier
func New(store TranslationStore, languages LanguageSource, logger *slog.Logger) *Applier {
	return &Applier{
		store:     store,
		languages: languages,
		logger:    logger,
	}
}

// Apply returns items with every requested field replaced by its TRANSLATED
// value for locale. Outdated translations are still served. Fields without a
// translation keep their source value.
//
// The source locale, inactive locales and unknown locales return items
// untouched without querying the translation store. When the store fails,
// the source items are returned along with the error.
func (a *Applier) Apply(ctx context.Context, items []domain.Record, contentType, locale string, fields []string) ([]domain.Record, error) {
	if len(items) == 0 || len(fields) == 0 {
		return items, nil
	}

	lang, ok, err := a.targetLanguage(ctx, locale)
	if err != nil || !ok {
		return items, err
	}

	ids := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		if !seen[item.ID] {
			seen[item.ID] = true
			ids = append(ids, item.ID)
		}
	}

	translations, err := a.store.FindTranslations(ctx, domain.TranslationQuery{
		LanguageID:  lang.ID,
		ContentType: contentType,
		ContentIDs:  ids,
		Fields:      fields,
	})
	if err != nil {
		a.logger.Warn("Failed to load translations, serving source content",
			slog.String("content_type", contentType),
			slog.String("locale", locale),
			slog.Any("error", err),
		)
		return items, err
	}

	byItem := make(map[string]map[string]string, len(ids))
	for _, tr := range translations {
		if tr.Status != domain.TranslationStatusTranslated {
			continue
		}
		m, ok := byItem[tr.ContentID]
		if !ok {
			m = make(map[string]string)
			byItem[tr.ContentID] = m
		}
		m[tr.Field] = tr.Value
	}

	out := make([]domain.Record, len(items))
	for i, item := range items {
		overlay := byItem[item.ID]
		if len(overlay) == 0 {
			out[i] = item
			continue
		}
		rec := item.Clone()
		for _, f := range fields {
			if v, ok := overlay[f]; ok {
				rec.Fields[f] = v
			}
		}
		out[i] = rec
	}
	return out, nil
}

// ApplyOne overlays translations onto a single item, such as a site-wide
// settings object.
func (a *Applier) ApplyOne(ctx context.Context, item domain.Record, contentType, locale string, fields []string) (domain.Record, error) {
	out, err := a.Apply(ctx, []domain.Record{item}, contentType, locale, fields)
	if len(out) == 0 {
		return item, err
	}
	return out[0], err
}

// targetLanguage returns the language to overlay, or ok=false when the
// content should be served as authored.
func (a *Applier) targetLanguage(ctx context.Context, locale string) (domain.Language, bool, error) {
	source, err := a.languages.Source(ctx)
	if err != nil {
		return domain.Language{}, false, err
	}
	if locale == "" || strings.EqualFold(locale, source.Code) {
		return domain.Language{}, false, nil
	}

	lang, err := a.languages.ByCode(ctx, locale)
	if errors.Is(err, domain.ErrLanguageNotFound) {
		a.logger.Debug("Unknown locale, serving source content", slog.String("locale", locale))
		return domain.Language{}, false, nil
	}
	if err != nil {
		return domain.Language{}, false, err
	}
	if !lang.IsActive {
		a.logger.Debug("Inactive locale, serving source content", slog.String("locale", locale))
		return domain.Language{}, false, nil
	}
	return lang, true, nil
}
