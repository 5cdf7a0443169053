// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/halpa/internal/model"
	"github.com/Veraticus/halpa/internal/money"
)

// CatalogStore is the narrow persistence contract the ingestion path consumes.
// Implementations return products and stores in a stable (insertion) order.
type CatalogStore interface {
	ListProducts(ctx context.Context) ([]model.Product, error)
	ListStores(ctx context.Context) ([]model.Store, error)
	UpsertProductPrice(ctx context.Context, productID, storeID int64, price money.Cents, recordedAt time.Time) error
}

// PriceReader is the read side consumed by aggregation and the presentation layers.
type PriceReader interface {
	ListProducts(ctx context.Context) ([]model.Product, error)
	ListStores(ctx context.Context) ([]model.Store, error)
	LatestPrices(ctx context.Context) (map[model.PriceKey]model.LatestPrice, error)
	PriceHistory(ctx context.Context, productID int64) ([]model.PricePoint, error)
	GetProduct(ctx context.Context, id int64) (*model.Product, error)
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	CatalogStore
	PriceReader

	// Catalog management. CreateProduct is idempotent on (name, category,
	// unit) and reports whether a new row was inserted.
	CreateProduct(ctx context.Context, product *model.Product) (bool, error)
	CreateStore(ctx context.Context, name string) (*model.Store, error)
	GetStoreByName(ctx context.Context, name string) (*model.Store, error)
	ListObservations(ctx context.Context, productID int64) ([]model.PriceObservation, error)

	// Database management
	Status(ctx context.Context) (*model.CatalogStatus, error)
	Reset(ctx context.Context, includeStores bool) (*model.CatalogStatus, error)
	Migrate(ctx context.Context) error
	Close() error
}

// Source produces raw observations for one store. Retailer adapters are
// interchangeable variants behind this interface.
type Source interface {
	Name() string
	Fetch(ctx context.Context, store model.Store) ([]model.RawObservation, error)
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryOptions returns the retry policy used for network sources.
func DefaultRetryOptions() RetryOptions {
	return RetryOptions{
		MaxAttempts:  3,
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     10 * time.Second,
		Multiplier:   2.0,
	}
}
