package aggregate

import (
	"sort"
	"strings"

	"github.com/Veraticus/halpa/internal/model"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SortBy names a presentation ordering.
type SortBy string

// Supported orderings.
const (
	SortNone      SortBy = ""
	SortName      SortBy = "name"
	SortCategory  SortBy = "category"
	SortPriceLow  SortBy = "price-low"
	SortPriceHigh SortBy = "price-high"
	SortVariance  SortBy = "variance"
)

// SortModes lists the orderings in the order a UI cycles through them.
var SortModes = []SortBy{SortName, SortCategory, SortPriceLow, SortPriceHigh, SortVariance}

// ParseSortBy validates a sort key. Unknown keys return false.
func ParseSortBy(s string) (SortBy, bool) {
	if s == "" {
		return SortNone, true
	}
	for _, m := range SortModes {
		if string(m) == s {
			return m, true
		}
	}
	return SortNone, false
}

// Query selects and orders aggregated products for display.
type Query struct {
	Search   string
	Category string
	SortBy   SortBy
}

// Filter returns the products matching q, ordered by q.SortBy. Products
// without any price sort last for the price orderings. The input is not
// modified.
func Filter(aggs []model.AggregatedProduct, q Query) []model.AggregatedProduct {
	search := strings.ToLower(strings.TrimSpace(q.Search))

	out := make([]model.AggregatedProduct, 0, len(aggs))
	for _, a := range aggs {
		if search != "" && !strings.Contains(strings.ToLower(a.Product.Name), search) {
			continue
		}
		if q.Category != "" && a.Product.Category != q.Category {
			continue
		}
		out = append(out, a)
	}

	if less := lessFunc(q.SortBy); less != nil {
		sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	}
	return out
}

func lessFunc(by SortBy) func(a, b model.AggregatedProduct) bool {
	switch by {
	case SortName:
		c := collate.New(language.Finnish)
		return func(a, b model.AggregatedProduct) bool {
			return c.CompareString(a.Product.Name, b.Product.Name) < 0
		}
	case SortCategory:
		c := collate.New(language.Finnish)
		return func(a, b model.AggregatedProduct) bool {
			if cmp := c.CompareString(a.Product.Category, b.Product.Category); cmp != 0 {
				return cmp < 0
			}
			return c.CompareString(a.Product.Name, b.Product.Name) < 0
		}
	case SortPriceLow:
		return func(a, b model.AggregatedProduct) bool {
			if a.MinPrice == nil || b.MinPrice == nil {
				return a.MinPrice != nil && b.MinPrice == nil
			}
			return *a.MinPrice < *b.MinPrice
		}
	case SortPriceHigh:
		return func(a, b model.AggregatedProduct) bool {
			if a.MaxPrice == nil || b.MaxPrice == nil {
				return a.MaxPrice != nil && b.MaxPrice == nil
			}
			return *a.MaxPrice > *b.MaxPrice
		}
	case SortVariance:
		return func(a, b model.AggregatedProduct) bool {
			return a.Variance() > b.Variance()
		}
	default:
		return nil
	}
}

// Categories returns the distinct product categories, sorted.
func Categories(aggs []model.AggregatedProduct) []string {
	seen := make(map[string]bool)
	var out []string
	for _, a := range aggs {
		if !seen[a.Product.Category] {
			seen[a.Product.Category] = true
			out = append(out, a.Product.Category)
		}
	}
	sort.Strings(out)
	return out
}
