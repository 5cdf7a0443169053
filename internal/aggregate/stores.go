package aggregate

import (
	"sort"

	"github.com/Veraticus/halpa/internal/model"
	"github.com/Veraticus/halpa/internal/money"
)

// StoreSummaries counts cheapest wins and averages prices per store. The
// result is sorted by wins, descending, keeping canonical order on ties.
func StoreSummaries(aggs []model.AggregatedProduct, stores []model.Store) []model.StoreSummary {
	summaries := make([]model.StoreSummary, 0, len(stores))

	for _, s := range stores {
		var prices []money.Cents
		wins := 0
		for _, a := range aggs {
			sp, ok := a.Prices[s.Name]
			if !ok {
				continue
			}
			prices = append(prices, sp.Price)
			if a.CheapestStore == s.Name {
				wins++
			}
		}

		summaries = append(summaries, model.StoreSummary{
			Store:         s,
			CheapestCount: wins,
			PriceCount:    len(prices),
			AveragePrice:  money.Average(prices),
		})
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].CheapestCount > summaries[j].CheapestCount
	})

	return summaries
}

// BiggestDifferences returns up to n products priced at two or more stores,
// ordered by price spread, largest first.
func BiggestDifferences(aggs []model.AggregatedProduct, n int) []model.AggregatedProduct {
	if n <= 0 {
		return nil
	}

	var candidates []model.AggregatedProduct
	for _, a := range aggs {
		if len(a.Prices) >= 2 {
			candidates = append(candidates, a)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].PriceSpreadPercent > candidates[j].PriceSpreadPercent
	})

	if len(candidates) > n {
		candidates = candidates[:n]
	}
	return candidates
}

// CheapestOverall returns the store with the most cheapest wins, or false
// when no store has any.
func CheapestOverall(summaries []model.StoreSummary) (model.StoreSummary, bool) {
	if len(summaries) == 0 || summaries[0].CheapestCount == 0 {
		return model.StoreSummary{}, false
	}
	return summaries[0], true
}
