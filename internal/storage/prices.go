package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/Veraticus/halpa/internal/model"
	"github.com/Veraticus/halpa/internal/money"
)

// UpsertProductPrice records a price observation. It always inserts: earlier
// observations for the same pair are kept as history.
func (s *SQLiteStorage) UpsertProductPrice(ctx context.Context, productID, storeID int64, price money.Cents, recordedAt time.Time) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateID(productID, "productID"); err != nil {
		return err
	}
	if err := validateID(storeID, "storeID"); err != nil {
		return err
	}
	if err := validatePrice(price); err != nil {
		return err
	}
	if recordedAt.IsZero() {
		recordedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO prices (product_id, store_id, price_cents, recorded_at)
		VALUES (?, ?, ?, ?)
	`, productID, storeID, int64(price), recordedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert price: %w", err)
	}
	return nil
}

// LatestPrices returns the current price of every (product, store) pair: the
// observation with the latest timestamp, the highest id breaking ties.
func (s *SQLiteStorage) LatestPrices(ctx context.Context) (map[model.PriceKey]model.LatestPrice, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT p.product_id, p.store_id, p.price_cents, p.recorded_at
		FROM prices p
		WHERE p.id = (
			SELECT p2.id FROM prices p2
			WHERE p2.product_id = p.product_id AND p2.store_id = p.store_id
			ORDER BY p2.recorded_at DESC, p2.id DESC
			LIMIT 1
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest prices: %w", err)
	}
	defer func() { _ = rows.Close() }()

	latest := make(map[model.PriceKey]model.LatestPrice)
	for rows.Next() {
		var (
			key   model.PriceKey
			price int64
			at    time.Time
		)
		if err := rows.Scan(&key.ProductID, &key.StoreID, &price, &at); err != nil {
			return nil, fmt.Errorf("failed to scan latest price: %w", err)
		}
		latest[key] = model.LatestPrice{Price: money.Cents(price), RecordedAt: at.UTC()}
	}

	return latest, rows.Err()
}

// ListObservations returns the raw observations of one product, oldest first.
func (s *SQLiteStorage) ListObservations(ctx context.Context, productID int64) ([]model.PriceObservation, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateID(productID, "productID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, store_id, price_cents, recorded_at
		FROM prices
		WHERE product_id = ?
		ORDER BY recorded_at, id
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to query observations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	observations := []model.PriceObservation{}
	for rows.Next() {
		var (
			o     model.PriceObservation
			price int64
		)
		if err := rows.Scan(&o.ID, &o.ProductID, &o.StoreID, &price, &o.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan observation: %w", err)
		}
		o.Price = money.Cents(price)
		o.RecordedAt = o.RecordedAt.UTC()
		observations = append(observations, o)
	}

	return observations, rows.Err()
}

// PriceHistory returns a product's observations joined with store names,
// newest first.
func (s *SQLiteStorage) PriceHistory(ctx context.Context, productID int64) ([]model.PricePoint, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateID(productID, "productID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT s.name, p.price_cents, p.recorded_at
		FROM prices p
		JOIN stores s ON s.id = p.store_id
		WHERE p.product_id = ?
		ORDER BY p.recorded_at DESC, p.id DESC
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to query price history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	history := []model.PricePoint{}
	for rows.Next() {
		var (
			pt    model.PricePoint
			price int64
		)
		if err := rows.Scan(&pt.StoreName, &price, &pt.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan price point: %w", err)
		}
		pt.Price = money.Cents(price)
		pt.RecordedAt = pt.RecordedAt.UTC()
		history = append(history, pt)
	}

	return history, rows.Err()
}
