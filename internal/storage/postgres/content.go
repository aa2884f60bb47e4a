package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/cuongbtq/content-i18n/internal/domain"
	"github.com/cuongbtq/content-i18n/internal/scanner"
)

// contentQuery selects the id and every registered field of a content type,
// each cast to text so one scan path fits all tables. Identifiers come from
// the validated registry.
func contentQuery(b sq.StatementBuilderType, ct scanner.ContentType) sq.SelectBuilder {
	cols := make([]string, 0, len(ct.Fields)+1)
	cols = append(cols, fmt.Sprintf("CAST(%s AS TEXT)", ct.IDColumn))
	for _, f := range ct.Fields {
		cols = append(cols, fmt.Sprintf("COALESCE(CAST(%s AS TEXT), '')", f.Column))
	}

	q := b.Select(cols...).From(ct.Table)
	if ct.ActiveFilter != "" {
		q = q.Where(ct.ActiveFilter)
	}
	return q
}

// ListRecords returns the eligible records of a content type in a stable order
func (s *Store) ListRecords(ctx context.Context, ct scanner.ContentType) ([]domain.Record, error) {
	q := contentQuery(s.sq, ct).OrderBy(ct.OrderBy, ct.IDColumn)
	return s.queryRecords(ctx, ct, q)
}

// GetRecord returns one eligible record of a content type
func (s *Store) GetRecord(ctx context.Context, ct scanner.ContentType, id string) (domain.Record, error) {
	q := contentQuery(s.sq, ct).
		Where(fmt.Sprintf("CAST(%s AS TEXT) = ?", ct.IDColumn), id).
		Limit(1)

	records, err := s.queryRecords(ctx, ct, q)
	if err != nil {
		return domain.Record{}, err
	}
	if len(records) == 0 {
		return domain.Record{}, domain.ErrContentNotFound
	}
	return records[0], nil
}

func (s *Store) queryRecords(ctx context.Context, ct scanner.ContentType, q sq.SelectBuilder) ([]domain.Record, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build content query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", ct.Table, err)
	}
	defer rows.Close()

	var records []domain.Record
	for rows.Next() {
		values := make([]string, len(ct.Fields)+1)
		dest := make([]any, len(values))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", ct.Table, err)
		}

		rec := domain.Record{ID: values[0], Fields: make(map[string]string, len(ct.Fields))}
		for i, f := range ct.Fields {
			rec.Fields[f.Name] = values[i+1]
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s rows: %w", ct.Table, err)
	}
	return records, nil
}
