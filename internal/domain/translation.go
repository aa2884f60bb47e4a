package domain

import "time"

// TranslationKey identifies a translation row and the job that produces it.
type TranslationKey struct {
	LanguageID  int64
	ContentType string
	ContentID   string
	Field       string
}

// FieldRef identifies a field within a content type, independent of language.
type FieldRef struct {
	ContentID string
	Field     string
}

// Translation is a persisted translated value.
type Translation struct {
	ID          int64     `db:"id" json:"id"`
	LanguageID  int64     `db:"language_id" json:"language_id"`
	ContentType string    `db:"content_type" json:"content_type"`
	ContentID   string    `db:"content_id" json:"content_id"`
	Field       string    `db:"field" json:"field"`
	Value       string    `db:"value" json:"value"`
	SourceHash  string    `db:"source_hash" json:"source_hash"`
	Status      string    `db:"status" json:"status"`
	IsOutdated  bool      `db:"is_outdated" json:"is_outdated"`
	Provider    string    `db:"provider" json:"provider"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Key returns the composite key of the translation.
func (t Translation) Key() TranslationKey {
	return TranslationKey{
		LanguageID:  t.LanguageID,
		ContentType: t.ContentType,
		ContentID:   t.ContentID,
		Field:       t.Field,
	}
}

// Language is a locale known to the language registry.
type Language struct {
	ID        int64  `db:"id" json:"id"`
	Code      string `db:"code" json:"code"`
	Name      string `db:"name" json:"name"`
	IsActive  bool   `db:"is_active" json:"is_active"`
	IsDefault bool   `db:"is_default" json:"is_default"`
	SortOrder int    `db:"sort_order" json:"sort_order"`
}

// TranslationQuery selects translations of many items in one round trip.
// Empty ContentIDs or Fields match nothing.
type TranslationQuery struct {
	LanguageID  int64
	ContentType string
	ContentIDs  []string
	Fields      []string
}
