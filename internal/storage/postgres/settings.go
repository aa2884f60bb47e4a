package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

type settingRow struct {
	Key   string `db:"key"`
	Value string `db:"value"`
}

// GetSettings returns all operator settings
func (s *Store) GetSettings(ctx context.Context) (map[string]string, error) {
	var rows []settingRow
	if err := s.selectContext(ctx, s.sq.Select("key", "value").From("app_settings"), &rows); err != nil {
		return nil, fmt.Errorf("failed to read settings: %w", err)
	}

	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Key] = r.Value
	}
	return out, nil
}

// PutSettings upserts operator settings in one transaction. An empty value
// deletes the key.
func (s *Store) PutSettings(ctx context.Context, values map[string]string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		for key, value := range values {
			var (
				query string
				args  []any
				err   error
			)
			if value == "" {
				query, args, err = s.sq.Delete("app_settings").Where(sq.Eq{"key": key}).ToSql()
			} else {
				query, args, err = s.sq.Insert("app_settings").
					Columns("key", "value", "updated_at").
					Values(key, value, sq.Expr("NOW()")).
					Suffix("ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()").
					ToSql()
			}
			if err != nil {
				return fmt.Errorf("failed to build settings query: %w", err)
			}
			if _, err := tx.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("failed to write setting %s: %w", key, err)
			}
		}
		return nil
	})
}
