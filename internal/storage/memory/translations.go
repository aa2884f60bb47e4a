package memory

import (
	"context"
	"sort"

	"github.com/cuongbtq/content-i18n/internal/domain"
)

// TranslationHashes returns the stored source hash per (content id, field)
// for one language and content type.
func (s *Store) TranslationHashes(_ context.Context, languageID int64, contentType string) (map[domain.FieldRef]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[domain.FieldRef]string)
	for key, tr := range s.translations {
		if key.LanguageID != languageID || key.ContentType != contentType {
			continue
		}
		out[domain.FieldRef{ContentID: key.ContentID, Field: key.Field}] = tr.SourceHash
	}
	return out, nil
}

// FindTranslations returns every translation matching the query
func (s *Store) FindTranslations(_ context.Context, q domain.TranslationQuery) ([]domain.Translation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.findCalls++

	if len(q.ContentIDs) == 0 || len(q.Fields) == 0 {
		return nil, nil
	}

	ids := make(map[string]bool, len(q.ContentIDs))
	for _, id := range q.ContentIDs {
		ids[id] = true
	}
	fields := make(map[string]bool, len(q.Fields))
	for _, f := range q.Fields {
		fields[f] = true
	}

	var out []domain.Translation
	for key, tr := range s.translations {
		if key.LanguageID != q.LanguageID || key.ContentType != q.ContentType {
			continue
		}
		if !ids[key.ContentID] || !fields[key.Field] {
			continue
		}
		out = append(out, *tr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// FindCalls reports how many times FindTranslations was called
func (s *Store) FindCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.findCalls
}

// GetTranslation returns the translation stored under key
func (s *Store) GetTranslation(_ context.Context, key domain.TranslationKey) (*domain.Translation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tr, ok := s.translations[key]
	if !ok {
		return nil, nil
	}
	cp := *tr
	return &cp, nil
}

// PutTranslation stores a translation row as-is, replacing any row with the same key
func (s *Store) PutTranslation(tr domain.Translation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.putTranslationLocked(tr)
}

func (s *Store) putTranslationLocked(tr domain.Translation) {
	now := s.now()
	if existing, ok := s.translations[tr.Key()]; ok {
		tr.ID = existing.ID
		tr.CreatedAt = existing.CreatedAt
	} else {
		s.nextID++
		tr.ID = s.nextID
		tr.CreatedAt = now
	}
	tr.UpdatedAt = now
	s.translations[tr.Key()] = &tr
}

// MarkOutdated flags the translation under key as outdated. Missing rows are ignored.
func (s *Store) MarkOutdated(_ context.Context, key domain.TranslationKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tr, ok := s.translations[key]; ok {
		tr.IsOutdated = true
		tr.UpdatedAt = s.now()
	}
	return nil
}
