package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/cuongbtq/content-i18n/internal/domain"
)

var translationColumns = []string{
	"id", "language_id", "content_type", "content_id", "field", "value",
	"source_hash", "status", "is_outdated", "provider", "created_at", "updated_at",
}

// TranslationHashes returns the stored source hash per (content id, field)
// for one language and content type.
func (s *Store) TranslationHashes(ctx context.Context, languageID int64, contentType string) (map[domain.FieldRef]string, error) {
	q := s.sq.Select("content_id", "field", "source_hash").
		From("translations").
		Where(sq.Eq{"language_id": languageID, "content_type": contentType})

	var rows []struct {
		ContentID  string `db:"content_id"`
		Field      string `db:"field"`
		SourceHash string `db:"source_hash"`
	}
	if err := s.selectContext(ctx, q, &rows); err != nil {
		return nil, fmt.Errorf("failed to load translation hashes: %w", err)
	}

	out := make(map[domain.FieldRef]string, len(rows))
	for _, r := range rows {
		out[domain.FieldRef{ContentID: r.ContentID, Field: r.Field}] = r.SourceHash
	}
	return out, nil
}

func findTranslationsQuery(b sq.StatementBuilderType, q domain.TranslationQuery) sq.SelectBuilder {
	return b.Select(translationColumns...).
		From("translations").
		Where(sq.Eq{
			"language_id":  q.LanguageID,
			"content_type": q.ContentType,
			"content_id":   q.ContentIDs,
			"field":        q.Fields,
		}).
		OrderBy("content_id", "field")
}

// FindTranslations loads every translation of the given items and fields in
// a single query.
func (s *Store) FindTranslations(ctx context.Context, q domain.TranslationQuery) ([]domain.Translation, error) {
	if len(q.ContentIDs) == 0 || len(q.Fields) == 0 {
		return nil, nil
	}

	var out []domain.Translation
	if err := s.selectContext(ctx, findTranslationsQuery(s.sq, q), &out); err != nil {
		return nil, fmt.Errorf("failed to find translations: %w", err)
	}
	return out, nil
}

// MarkOutdated flags the translation under key as outdated without touching its value
func (s *Store) MarkOutdated(ctx context.Context, key domain.TranslationKey) error {
	query, args, err := s.sq.Update("translations").
		Set("is_outdated", true).
		Set("updated_at", sq.Expr("NOW()")).
		Where(keyPredicate(key)).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to mark translation outdated: %w", err)
	}
	return nil
}

func upsertTranslation(ctx context.Context, b sq.StatementBuilderType, tx *sqlx.Tx, job *domain.TranslationJob, value, provider string) error {
	query, args, err := b.Insert("translations").
		Columns("language_id", "content_type", "content_id", "field", "value",
			"source_hash", "status", "is_outdated", "provider", "created_at", "updated_at").
		Values(job.LanguageID, job.ContentType, job.ContentID, job.Field, value,
			job.SourceHash, domain.TranslationStatusTranslated, false, provider,
			sq.Expr("NOW()"), sq.Expr("NOW()")).
		Suffix(`ON CONFLICT (language_id, content_type, content_id, field) DO UPDATE SET
			value = EXCLUDED.value,
			source_hash = EXCLUDED.source_hash,
			status = EXCLUDED.status,
			is_outdated = FALSE,
			provider = EXCLUDED.provider,
			updated_at = NOW()`).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert translation: %w", err)
	}
	return nil
}

func keyPredicate(key domain.TranslationKey) sq.Eq {
	return sq.Eq{
		"language_id":  key.LanguageID,
		"content_type": key.ContentType,
		"content_id":   key.ContentID,
		"field":        key.Field,
	}
}
