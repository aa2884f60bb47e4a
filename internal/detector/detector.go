// Package detector classifies scanned fields against stored translations by
// comparing source hashes.
package detector

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/content-i18n/internal/domain"
)

// HashStore returns stored source hashes per (content id, field)
type HashStore interface {
	TranslationHashes(ctx context.Context, languageID int64, contentType string) (map[domain.FieldRef]string, error)
}

// LanguageSource provides the target languages
type LanguageSource interface {
	Targets(ctx context.Context) ([]domain.Language, error)
	ByID(ctx context.Context, id int64) (domain.Language, error)
}

// Result holds the NEW and CHANGED classifications of one run
type Result struct {
	Changes   []domain.ChangedContent
	New       int
	Changed   int
	Unchanged int
	Languages []domain.Language
}

// Detector is read-only: running it never writes.
type Detector struct {
	store     HashStore
	languages LanguageSource
	logger    *slog.Logger
}

// New creates a new Detector
func New(store HashStore, languages LanguageSource, logger *slog.Logger) *Detector {
	return &Detector{
		store:     store,
		languages: languages,
		logger:    logger,
	}
}

// TargetLanguages returns the active non-default languages, or only the
// language with languageID when it is non-zero.
func (d *Detector) TargetLanguages(ctx context.Context, languageID int64) ([]domain.Language, error) {
	if languageID == 0 {
		return d.languages.Targets(ctx)
	}

	lang, err := d.languages.ByID(ctx, languageID)
	if err != nil {
		return nil, err
	}
	if lang.IsDefault {
		return nil, fmt.Errorf("language %s: %w", lang.Code, domain.ErrNotTargetLanguage)
	}
	return []domain.Language{lang}, nil
}

// Detect classifies every field for every target language. Hashes are loaded
// once per (language, content type). UNCHANGED fields are counted but left
// out of Changes.
func (d *Detector) Detect(ctx context.Context, fields []domain.TranslatableField, languageID int64) (*Result, error) {
	langs, err := d.TargetLanguages(ctx, languageID)
	if err != nil {
		return nil, err
	}

	result := &Result{Languages: langs}
	hashes := make(map[string]string, len(fields))
	for _, f := range fields {
		if _, ok := hashes[f.Value]; !ok {
			hashes[f.Value] = domain.HashValue(f.Value)
		}
	}

	for _, lang := range langs {
		stored := make(map[string]map[domain.FieldRef]string)

		for _, f := range fields {
			existing, ok := stored[f.ContentType]
			if !ok {
				existing, err = d.store.TranslationHashes(ctx, lang.ID, f.ContentType)
				if err != nil {
					return nil, fmt.Errorf("failed to load hashes for %s/%s: %w", lang.Code, f.ContentType, err)
				}
				stored[f.ContentType] = existing
			}

			change := classify(f, lang.ID, hashes[f.Value], existing)
			switch change.Change {
			case domain.ChangeUnchanged:
				result.Unchanged++
				continue
			case domain.ChangeNew:
				result.New++
			case domain.ChangeChanged:
				result.Changed++
			}
			result.Changes = append(result.Changes, change)
		}
	}

	d.logger.Debug("Change detection complete",
		slog.Int("languages", len(langs)),
		slog.Int("fields", len(fields)),
		slog.Int("new", result.New),
		slog.Int("changed", result.Changed),
		slog.Int("unchanged", result.Unchanged),
	)

	return result, nil
}

func classify(f domain.TranslatableField, languageID int64, hash string, stored map[domain.FieldRef]string) domain.ChangedContent {
	c := domain.ChangedContent{
		TranslatableField: f,
		LanguageID:        languageID,
		NewHash:           hash,
	}

	old, ok := stored[domain.FieldRef{ContentID: f.ContentID, Field: f.Field}]
	switch {
	case !ok:
		c.Change = domain.ChangeNew
	case old != hash:
		c.Change = domain.ChangeChanged
		c.OldHash = old
		c.HasTranslation = true
	default:
		c.Change = domain.ChangeUnchanged
		c.OldHash = old
		c.HasTranslation = true
	}
	return c
}
