package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/content-i18n/internal/domain"
)

// ContentStore reads eligible source records of one content type
type ContentStore interface {
	ListRecords(ctx context.Context, ct ContentType) ([]domain.Record, error)
}

// Result is the output of a full scan
type Result struct {
	Fields []domain.TranslatableField
	Errors []*domain.ScanError
}

// Scanner enumerates translatable fields. It never writes.
type Scanner struct {
	registry *Registry
	store    ContentStore
	logger   *slog.Logger
}

// New creates a new Scanner
func New(registry *Registry, store ContentStore, logger *slog.Logger) *Scanner {
	return &Scanner{
		registry: registry,
		store:    store,
		logger:   logger,
	}
}

// Registry returns the registry the scanner walks
func (s *Scanner) Registry() *Registry {
	return s.registry
}

// Scan walks every registered content type in order. A failing type is
// logged, recorded in Result.Errors and skipped. Cancellation is only
// observed between content types.
func (s *Scanner) Scan(ctx context.Context) (*Result, error) {
	result := &Result{}

	for _, ct := range s.registry.Types() {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		fields, err := s.scanType(ctx, ct)
		if err != nil {
			scanErr := &domain.ScanError{ContentType: ct.Name, Err: err}
			s.logger.Warn("Content type scan failed, skipping",
				slog.String("content_type", ct.Name),
				slog.Any("error", err),
			)
			result.Errors = append(result.Errors, scanErr)
			continue
		}

		result.Fields = append(result.Fields, fields...)
	}

	s.logger.Debug("Scan complete",
		slog.Int("fields", len(result.Fields)),
		slog.Int("failed_types", len(result.Errors)),
	)

	return result, nil
}

// ScanType scans a single registered content type
func (s *Scanner) ScanType(ctx context.Context, name string) ([]domain.TranslatableField, error) {
	ct, ok := s.registry.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown content type: %s", name)
	}

	fields, err := s.scanType(ctx, ct)
	if err != nil {
		return nil, &domain.ScanError{ContentType: ct.Name, Err: err}
	}
	return fields, nil
}

func (s *Scanner) scanType(ctx context.Context, ct ContentType) (fields []domain.TranslatableField, err error) {
	defer func() {
		// A broken accessor or store row must not take the whole scan down.
		if r := recover(); r != nil {
			fields = nil
			err = fmt.Errorf("panic while scanning: %v", r)
		}
	}()

	records, err := s.store.ListRecords(ctx, ct)
	if err != nil {
		return nil, err
	}

	for _, rec := range records {
		if rec.ID == "" {
			return nil, errors.New("record without id")
		}
		for _, accessor := range ct.Fields {
			value, ok := accessor.Extract(rec)
			if !ok {
				continue
			}
			fields = append(fields, domain.TranslatableField{
				ContentType: ct.Name,
				ContentID:   rec.ID,
				Field:       accessor.Name,
				Value:       value,
				Priority:    ct.Priority,
			})
		}
	}

	return fields, nil
}
