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

// CreateProduct inserts a product unless the (name, category, unit) triple
// already exists. In both cases product.ID and product.CreatedAt are set from
// the stored row.
func (s *SQLiteStorage) CreateProduct(ctx context.Context, product *model.Product) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validateProduct(product); err != nil {
		return false, err
	}

	name := strings.TrimSpace(product.Name)
	category := strings.TrimSpace(product.Category)
	unit := strings.TrimSpace(product.Unit)

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO products (name, category, unit)
		VALUES (?, ?, ?)
		ON CONFLICT(name, category, unit) DO NOTHING
	`, name, category, unit)
	if err != nil {
		return false, fmt.Errorf("failed to insert product: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT id, created_at FROM products
		WHERE name = ? AND category = ? AND unit = ?
	`, name, category, unit).Scan(&product.ID, &product.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to read product id: %w", err)
	}

	product.Name, product.Category, product.Unit = name, category, unit
	return affected > 0, nil
}

// ListProducts returns every product in insertion order.
func (s *SQLiteStorage) ListProducts(ctx context.Context) ([]model.Product, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, category, unit, created_at
		FROM products
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer func() { _ = rows.Close() }()

	products := []model.Product{}
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &p.Unit, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	return products, rows.Err()
}

// GetProduct returns one product by id.
func (s *SQLiteStorage) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateID(id, "id"); err != nil {
		return nil, err
	}

	var p model.Product
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, category, unit, created_at
		FROM products WHERE id = ?
	`, id).Scan(&p.ID, &p.Name, &p.Category, &p.Unit, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	return &p, nil
}
