package api

import (
	"time"

	"github.com/Veraticus/halpa/internal/model"
)

// StorePriceResponse is one store's current price in major units.
type StorePriceResponse struct {
	RecordedAt time.Time `json:"recorded_at"`
	Price      float64   `json:"price"`
}

// ProductResponse is the product listing shape consumed by the dashboard.
type ProductResponse struct {
	Prices   map[string]StorePriceResponse `json:"prices"`
	Name     string                        `json:"name"`
	Category string                        `json:"category"`
	Unit     string                        `json:"unit"`
	ID       int64                         `json:"id"`
}

// ComparisonProduct extends ProductResponse with derived values.
type ComparisonProduct struct {
	MinPrice      *float64 `json:"min_price"`
	MaxPrice      *float64 `json:"max_price"`
	CheapestStore string   `json:"cheapest_store,omitempty"`
	ProductResponse
	SpreadPercent float64 `json:"spread_percent"`
}

// StoreSummaryResponse is one store's ranking entry.
type StoreSummaryResponse struct {
	Name          string  `json:"name"`
	ID            int64   `json:"id"`
	CheapestCount int     `json:"cheapest_count"`
	PriceCount    int     `json:"price_count"`
	AveragePrice  float64 `json:"average_price"`
}

// ComparisonResponse is the body of GET /api/comparison.
type ComparisonResponse struct {
	Products           []ComparisonProduct    `json:"products"`
	Stores             []StoreSummaryResponse `json:"stores"`
	BiggestDifferences []ComparisonProduct    `json:"biggest_differences"`
	Categories         []string               `json:"categories"`
	SortModes          []string               `json:"sort_modes"`
}

// HistoryPoint is one observation in a product's price history.
type HistoryPoint struct {
	RecordedAt time.Time `json:"recorded_at"`
	Store      string    `json:"store"`
	Price      float64   `json:"price"`
}

// HistoryResponse is the body of GET /api/products/:id/history.
type HistoryResponse struct {
	History []HistoryPoint `json:"history"`
	Product model.Product  `json:"product"`
}

func productResponse(a model.AggregatedProduct) ProductResponse {
	prices := make(map[string]StorePriceResponse, len(a.Prices))
	for store, sp := range a.Prices {
		prices[store] = StorePriceResponse{Price: sp.Price.Major(), RecordedAt: sp.RecordedAt}
	}
	return ProductResponse{
		ID:       a.Product.ID,
		Name:     a.Product.Name,
		Category: a.Product.Category,
		Unit:     a.Product.Unit,
		Prices:   prices,
	}
}

func comparisonProduct(a model.AggregatedProduct) ComparisonProduct {
	cp := ComparisonProduct{
		ProductResponse: productResponse(a),
		CheapestStore:   a.CheapestStore,
		SpreadPercent:   a.PriceSpreadPercent,
	}
	if a.MinPrice != nil {
		v := a.MinPrice.Major()
		cp.MinPrice = &v
	}
	if a.MaxPrice != nil {
		v := a.MaxPrice.Major()
		cp.MaxPrice = &v
	}
	return cp
}

func comparisonProducts(aggs []model.AggregatedProduct) []ComparisonProduct {
	out := make([]ComparisonProduct, 0, len(aggs))
	for _, a := range aggs {
		out = append(out, comparisonProduct(a))
	}
	return out
}
