package aggregate

import (
	"context"
	"fmt"

	"github.com/Veraticus/halpa/internal/model"
	"github.com/Veraticus/halpa/internal/service"
)

// Snapshot is a full comparison built from one read of the catalog.
type Snapshot struct {
	Products  []model.AggregatedProduct
	Stores    []model.Store
	Summaries []model.StoreSummary
}

// Load reads products, stores and current prices and aggregates them.
func Load(ctx context.Context, r service.PriceReader) (*Snapshot, error) {
	products, err := r.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}
	stores, err := r.ListStores(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load stores: %w", err)
	}
	latest, err := r.LatestPrices(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load prices: %w", err)
	}

	aggs := Aggregate(products, stores, latest)
	return &Snapshot{
		Products:  aggs,
		Stores:    stores,
		Summaries: StoreSummaries(aggs, stores),
	}, nil
}
