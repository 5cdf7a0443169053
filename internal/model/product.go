// Package model defines the core data structures for the halpa application.
package model

import (
	"time"

	"github.com/Veraticus/halpa/internal/money"
)

// CategoryOther is the fallback category for products no rule recognizes.
const CategoryOther = "Other"

// Product is a canonical catalog entry. The (Name, Category, Unit) triple is unique.
type Product struct {
	CreatedAt time.Time `json:"created_at"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Unit      string    `json:"unit"`
	ID        int64     `json:"id"`
}

// Store is a retailer.
type Store struct {
	CreatedAt time.Time `json:"created_at"`
	Name      string    `json:"name"`
	ID        int64     `json:"id"`
}

// PriceObservation is one persisted price measurement. Observations are never
// mutated; the current price of a (product, store) pair is the latest one.
type PriceObservation struct {
	RecordedAt time.Time   `json:"recorded_at"`
	ID         int64       `json:"id"`
	ProductID  int64       `json:"product_id"`
	StoreID    int64       `json:"store_id"`
	Price      money.Cents `json:"price_cents"`
}

// PriceKey identifies a (product, store) pair.
type PriceKey struct {
	ProductID int64
	StoreID   int64
}

// LatestPrice is the current price of a (product, store) pair.
type LatestPrice struct {
	RecordedAt time.Time
	Price      money.Cents
}

// PricePoint is one entry of a product's price history, joined with its store name.
type PricePoint struct {
	RecordedAt time.Time   `json:"recorded_at"`
	StoreName  string      `json:"store_name"`
	Price      money.Cents `json:"price_cents"`
}

// CatalogStatus holds table counts used by the health and status diagnostics.
type CatalogStatus struct {
	SchemaVersion int `json:"schema_version"`
	Products      int `json:"products"`
	Stores        int `json:"stores"`
	Prices        int `json:"prices"`
}
