package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/halpa/internal/common"
	"github.com/Veraticus/halpa/internal/model"
)

// CreateStore returns the store with the given name, creating it if needed.
func (s *SQLiteStorage) CreateStore(ctx context.Context, name string) (*model.Store, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO stores (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, name); err != nil {
		return nil, fmt.Errorf("failed to insert store: %w", err)
	}

	return s.GetStoreByName(ctx, name)
}

// GetStoreByName looks a store up by its exact name.
func (s *SQLiteStorage) GetStoreByName(ctx context.Context, name string) (*model.Store, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}

	var store model.Store
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM stores WHERE name = ?`, name,
	).Scan(&store.ID, &store.Name, &store.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("store %q: %w", name, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get store: %w", err)
	}

	return &store, nil
}

// ListStores returns every store in insertion order, which is the canonical
// store order used for cheapest-store tie-breaks.
func (s *SQLiteStorage) ListStores(ctx context.Context) ([]model.Store, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, name, created_at FROM stores ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stores: %w", err)
	}
	defer func() { _ = rows.Close() }()

	stores := []model.Store{}
	for rows.Next() {
		var st model.Store
		if err := rows.Scan(&st.ID, &st.Name, &st.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan store: %w", err)
		}
		stores = append(stores, st)
	}

	return stores, rows.Err()
}
