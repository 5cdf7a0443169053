package model

import (
	"time"

	"github.com/Veraticus/halpa/internal/money"
)

// StorePrice is the current price of a product at one store.
type StorePrice struct {
	RecordedAt time.Time
	Price      money.Cents
}

// AggregatedProduct is a product with its current prices and derived values.
// It is rebuilt on every read and never persisted.
type AggregatedProduct struct {
	Prices             map[string]StorePrice
	MinPrice           *money.Cents // nil when no store has a price
	MaxPrice           *money.Cents
	CheapestStore      string
	Product            Product
	PriceSpreadPercent float64
}

// Variance returns the absolute max-min difference, or 0 when unavailable.
func (a AggregatedProduct) Variance() money.Cents {
	if a.MinPrice == nil || a.MaxPrice == nil {
		return 0
	}
	return *a.MaxPrice - *a.MinPrice
}

// StoreSummary holds per-store derived values across all products.
type StoreSummary struct {
	Store         Store
	CheapestCount int
	PriceCount    int
	AveragePrice  float64 // Major units
}
