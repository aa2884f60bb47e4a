// Package memory is an in-process implementation of every store the pipeline
// uses. It mirrors the PostgreSQL semantics: one translation per key, at most
// one active job per key and atomic claims.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cuongbtq/content-i18n/internal/domain"
	"github.com/cuongbtq/content-i18n/internal/scanner"
)

// Store keeps languages, content, translations, jobs and settings in maps
type Store struct {
	mu  sync.Mutex
	now func() time.Time

	languages    []domain.Language
	content      map[string][]domain.Record
	failingTypes map[string]error
	translations map[domain.TranslationKey]*domain.Translation
	jobs         map[string]*domain.TranslationJob
	settings     map[string]string
	nextID       int64

	findCalls int
}

// Option configures a Store
type Option func(*Store)

// WithClock overrides the store's time source
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates an empty store
func New(opts ...Option) *Store {
	s := &Store{
		now:          time.Now,
		content:      make(map[string][]domain.Record),
		failingTypes: make(map[string]error),
		translations: make(map[domain.TranslationKey]*domain.Translation),
		jobs:         make(map[string]*domain.TranslationJob),
		settings:     make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddLanguage registers a language and returns it with its assigned id
func (s *Store) AddLanguage(lang domain.Language) domain.Language {
	s.mu.Lock()
	defer s.mu.Unlock()

	if lang.ID == 0 {
		s.nextID++
		lang.ID = s.nextID
	}
	s.languages = append(s.languages, lang)
	return lang
}

// SetLanguageActive toggles a language
func (s *Store) SetLanguageActive(id int64, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.languages {
		if s.languages[i].ID == id {
			s.languages[i].IsActive = active
		}
	}
}

// ListLanguages returns every language ordered by sort order
func (s *Store) ListLanguages(_ context.Context) ([]domain.Language, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Language, len(s.languages))
	copy(out, s.languages)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// PutRecord inserts or replaces a source record of a content type
func (s *Store) PutRecord(contentType string, rec domain.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.content[contentType]
	for i := range records {
		if records[i].ID == rec.ID {
			records[i] = rec.Clone()
			return
		}
	}
	s.content[contentType] = append(records, rec.Clone())
}

// DeleteRecord removes a source record
func (s *Store) DeleteRecord(contentType, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.content[contentType]
	for i := range records {
		if records[i].ID == id {
			s.content[contentType] = append(records[:i], records[i+1:]...)
			return
		}
	}
}

// FailContentType makes ListRecords fail for a content type; nil clears it
func (s *Store) FailContentType(contentType string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err == nil {
		delete(s.failingTypes, contentType)
		return
	}
	s.failingTypes[contentType] = err
}

// ListRecords returns the records of a content type ordered by id
func (s *Store) ListRecords(_ context.Context, ct scanner.ContentType) ([]domain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failingTypes[ct.Name]; err != nil {
		return nil, err
	}

	records := s.content[ct.Name]
	out := make([]domain.Record, 0, len(records))
	for _, rec := range records {
		out = append(out, rec.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetRecord returns one source record
func (s *Store) GetRecord(_ context.Context, ct scanner.ContentType, id string) (domain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.failingTypes[ct.Name]; err != nil {
		return domain.Record{}, err
	}
	for _, rec := range s.content[ct.Name] {
		if rec.ID == id {
			return rec.Clone(), nil
		}
	}
	return domain.Record{}, domain.ErrContentNotFound
}

// GetSettings returns a copy of the operator settings
func (s *Store) GetSettings(_ context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]string, len(s.settings))
	for k, v := range s.settings {
		out[k] = v
	}
	return out, nil
}

// PutSettings upserts operator settings. An empty value deletes the key.
func (s *Store) PutSettings(_ context.Context, values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, v := range values {
		if v == "" {
			delete(s.settings, k)
			continue
		}
		s.settings[k] = v
	}
	return nil
}

func newJobID() string {
	return uuid.New().String()
}
