package storage

import (
	"context"
	"fmt"

	"github.com/Veraticus/halpa/internal/model"
)

// Status returns table counts and the schema version.
func (s *SQLiteStorage) Status(ctx context.Context) (*model.CatalogStatus, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.status(ctx, s.db)
}

func (s *SQLiteStorage) status(ctx context.Context, q queryable) (*model.CatalogStatus, error) {
	var st model.CatalogStatus

	err := q.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM products),
			(SELECT COUNT(*) FROM stores),
			(SELECT COUNT(*) FROM prices)
	`).Scan(&st.Products, &st.Stores, &st.Prices)
	if err != nil {
		return nil, fmt.Errorf("failed to count catalog rows: %w", err)
	}

	if err := q.QueryRowContext(ctx, "PRAGMA user_version").Scan(&st.SchemaVersion); err != nil {
		return nil, fmt.Errorf("failed to get schema version: %w", err)
	}

	return &st, nil
}

// Reset deletes all prices and products, and the stores too when
// includeStores is set. It returns the counts from before the reset.
func (s *SQLiteStorage) Reset(ctx context.Context, includeStores bool) (*model.CatalogStatus, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	before, err := s.status(ctx, tx)
	if err != nil {
		return nil, err
	}

	queries := []string{`DELETE FROM prices`, `DELETE FROM products`}
	if includeStores {
		queries = append(queries, `DELETE FROM stores`)
	}
	for _, q := range queries {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return nil, fmt.Errorf("failed to reset catalog: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit reset: %w", err)
	}

	return before, nil
}
