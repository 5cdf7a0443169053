// Package aggregate derives per-product and per-store comparison values from
// the current price set.
package aggregate

import (
	"log/slog"

	"github.com/Veraticus/halpa/internal/model"
	"github.com/Veraticus/halpa/internal/money"
)

// Aggregate builds one AggregatedProduct per product, in product order.
//
// The stores slice is the canonical store order: when several stores share
// the minimum price, the one that comes first in stores is the cheapest.
// Entries in latest that reference an unknown product or store are ignored.
func Aggregate(products []model.Product, stores []model.Store, latest map[model.PriceKey]model.LatestPrice) []model.AggregatedProduct {
	if n := countInconsistent(products, stores, latest); n > 0 {
		slog.Warn("Ignoring prices for unknown products or stores", "entries", n)
	}

	out := make([]model.AggregatedProduct, 0, len(products))
	for _, p := range products {
		out = append(out, aggregateProduct(p, stores, latest))
	}
	return out
}

func aggregateProduct(p model.Product, stores []model.Store, latest map[model.PriceKey]model.LatestPrice) model.AggregatedProduct {
	agg := model.AggregatedProduct{
		Product: p,
		Prices:  make(map[string]model.StorePrice),
	}

	var minPrice, maxPrice money.Cents
	found := false

	for _, s := range stores {
		lp, ok := latest[model.PriceKey{ProductID: p.ID, StoreID: s.ID}]
		if !ok {
			continue
		}
		agg.Prices[s.Name] = model.StorePrice{Price: lp.Price, RecordedAt: lp.RecordedAt}

		if !found || lp.Price < minPrice {
			minPrice = lp.Price
			agg.CheapestStore = s.Name
		}
		if !found || lp.Price > maxPrice {
			maxPrice = lp.Price
		}
		found = true
	}

	if found {
		agg.MinPrice = &minPrice
		agg.MaxPrice = &maxPrice
		agg.PriceSpreadPercent = money.Percent(maxPrice, minPrice)
	}

	return agg
}

func countInconsistent(products []model.Product, stores []model.Store, latest map[model.PriceKey]model.LatestPrice) int {
	productIDs := make(map[int64]struct{}, len(products))
	for _, p := range products {
		productIDs[p.ID] = struct{}{}
	}
	storeIDs := make(map[int64]struct{}, len(stores))
	for _, s := range stores {
		storeIDs[s.ID] = struct{}{}
	}

	n := 0
	for key := range latest {
		_, okP := productIDs[key.ProductID]
		_, okS := storeIDs[key.StoreID]
		if !okP || !okS {
			n++
		}
	}
	return n
}

// LatestPrices reduces an observation history to the current price of every
// (product, store) pair. The later timestamp wins; on equal timestamps the
// higher observation id wins.
func LatestPrices(observations []model.PriceObservation) map[model.PriceKey]model.LatestPrice {
	type best struct {
		model.LatestPrice
		id int64
	}

	current := make(map[model.PriceKey]best)
	for _, o := range observations {
		key := model.PriceKey{ProductID: o.ProductID, StoreID: o.StoreID}
		prev, ok := current[key]
		if ok {
			if o.RecordedAt.Before(prev.RecordedAt) {
				continue
			}
			if o.RecordedAt.Equal(prev.RecordedAt) && o.ID < prev.id {
				continue
			}
		}
		current[key] = best{
			LatestPrice: model.LatestPrice{Price: o.Price, RecordedAt: o.RecordedAt},
			id:          o.ID,
		}
	}

	out := make(map[model.PriceKey]model.LatestPrice, len(current))
	for k, v := range current {
		out[k] = v.LatestPrice
	}
	return out
}
