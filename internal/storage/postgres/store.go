// Package postgres implements the translation, job, language, settings and
// content stores on PostgreSQL.
package postgres

import (
	"context"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/cuongbtq/content-i18n/shared/postgresql"
)

// Store is the PostgreSQL-backed store
type Store struct {
	db     *sqlx.DB
	sq     sq.StatementBuilderType
	logger *slog.Logger
}

// New creates a new Store on top of a connected client
func New(client *postgresql.Client, logger *slog.Logger) *Store {
	return NewWithDB(client.GetDB(), logger)
}

// NewWithDB creates a new Store on an existing pool
func NewWithDB(db *sqlx.DB, logger *slog.Logger) *Store {
	return &Store{
		db:     db,
		sq:     statementBuilder(),
		logger: logger,
	}
}

func statementBuilder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

func (s *Store) selectContext(ctx context.Context, q sq.Sqlizer, dest any) error {
	query, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("failed to build query: %w", err)
	}
	return s.db.SelectContext(ctx, dest, query, args...)
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	return postgresql.WithTx(ctx, s.db, fn)
}
