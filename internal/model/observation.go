package model

import (
	"strconv"
	"time"

	"github.com/Veraticus/halpa/internal/money"
)

// RawObservation is one loosely structured external price observation. It only
// lives for the duration of a single ingestion batch.
type RawObservation struct {
	ObservedAt   time.Time
	Store        string
	Product      string
	Price        string // Major units as text, e.g. "1.29" or "1,29"
	UnitHint     string
	CategoryHint string
	Line         int // 1-based position in the source input; 0 means "use batch index"
}

// NewRawObservation builds an observation from a major-unit float price.
func NewRawObservation(store, product string, price float64) RawObservation {
	return RawObservation{
		Store:   store,
		Product: product,
		Price:   strconv.FormatFloat(price, 'f', -1, 64),
	}
}

// CanonicalRecord is a matched observation ready to be persisted.
type CanonicalRecord struct {
	RecordedAt  time.Time   `json:"recorded_at"`
	ProductName string      `json:"product_name"`
	StoreName   string      `json:"store_name"`
	Line        int         `json:"line"`
	ProductID   int64       `json:"product_id"`
	StoreID     int64       `json:"store_id"`
	Price       money.Cents `json:"price_cents"`
}
