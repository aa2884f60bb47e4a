package domain

import (
	"crypto/sha256"
	"encoding/hex"
)

// Record is one row of source content as read from the content store.
// Fields holds the raw string value of every registered field that was selected.
type Record struct {
	ID     string
	Fields map[string]string
}

// Field returns the value of a field and whether it was present.
func (r Record) Field(name string) (string, bool) {
	if r.Fields == nil {
		return "", false
	}
	v, ok := r.Fields[name]
	return v, ok
}

// Clone returns a copy of the record whose field map can be modified freely.
func (r Record) Clone() Record {
	fields := make(map[string]string, len(r.Fields))
	for k, v := range r.Fields {
		fields[k] = v
	}
	return Record{ID: r.ID, Fields: fields}
}

// TranslatableField is a single source string discovered by a scan.
// It is derived on every scan and never persisted.
type TranslatableField struct {
	ContentType string `json:"content_type"`
	ContentID   string `json:"content_id"`
	Field       string `json:"field"`
	Value       string `json:"value"`
	Priority    int    `json:"priority"`
}

// ChangedContent is a TranslatableField classified against one target language.
type ChangedContent struct {
	TranslatableField
	LanguageID     int64  `json:"language_id"`
	Change         string `json:"change"`
	OldHash        string `json:"old_hash,omitempty"`
	NewHash        string `json:"new_hash"`
	HasTranslation bool   `json:"has_translation"`
}

// Key returns the composite key this change applies to.
func (c ChangedContent) Key() TranslationKey {
	return TranslationKey{
		LanguageID:  c.LanguageID,
		ContentType: c.ContentType,
		ContentID:   c.ContentID,
		Field:       c.Field,
	}
}

// HashValue returns the hex encoded SHA-256 of a source value.
func HashValue(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
