package sheets

import (
	"time"

	"github.com/Veraticus/halpa/internal/model"
)

// Report is the data written to the spreadsheet.
type Report struct {
	GeneratedAt time.Time
	Stores      []model.Store
	Products    []model.AggregatedProduct
	Summaries   []model.StoreSummary
	Differences []model.AggregatedProduct
}

// comparisonHeader returns the header of the comparison section. One price
// column per store, in canonical store order.
func comparisonHeader(stores []model.Store) []any {
	row := []any{"Product", "Category", "Unit"}
	for _, s := range stores {
		row = append(row, s.Name)
	}
	return append(row, "Cheapest", "Min", "Max", "Spread %")
}
