package postgres

import (
	"context"
	"fmt"

	"github.com/cuongbtq/content-i18n/internal/domain"
)

// ListLanguages returns every language ordered by sort order
func (s *Store) ListLanguages(ctx context.Context) ([]domain.Language, error) {
	q := s.sq.Select("id", "code", "name", "is_active", "is_default", "sort_order").
		From("languages").
		OrderBy("sort_order", "id")

	var langs []domain.Language
	if err := s.selectContext(ctx, q, &langs); err != nil {
		return nil, fmt.Errorf("failed to list languages: %w", err)
	}
	return langs, nil
}
