package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/Veraticus/halpa/internal/model"
	"github.com/Veraticus/halpa/internal/money"
)

// CheapestMarker follows the cheapest price of a comparison row.
const CheapestMarker = "*"

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func row(cells ...string) string {
	return strings.Join(cells, "\t") + "\n"
}

// WriteComparison writes one row per product with a price column per store.
// The cheapest price is marked; stores without a price show "-".
func WriteComparison(w io.Writer, aggs []model.AggregatedProduct, stores []model.Store) error {
	tw := newTable(w)

	header := []string{"PRODUCT", "CATEGORY", "UNIT"}
	for _, s := range stores {
		header = append(header, strings.ToUpper(s.Name))
	}
	header = append(header, "CHEAPEST", "SPREAD")
	if _, err := fmt.Fprint(tw, row(header...)); err != nil {
		return err
	}

	for _, a := range aggs {
		cells := []string{a.Product.Name, a.Product.Category, a.Product.Unit}
		for _, s := range stores {
			cells = append(cells, priceCell(a, s.Name))
		}
		cheapest := a.CheapestStore
		if cheapest == "" {
			cheapest = "-"
		}
		cells = append(cells, cheapest, spreadCell(a))
		if _, err := fmt.Fprint(tw, row(cells...)); err != nil {
			return err
		}
	}

	return tw.Flush()
}

func priceCell(a model.AggregatedProduct, store string) string {
	sp, ok := a.Prices[store]
	if !ok {
		return "-"
	}
	cell := sp.Price.String()
	if store == a.CheapestStore && len(a.Prices) > 1 {
		cell += CheapestMarker
	}
	return cell
}

func spreadCell(a model.AggregatedProduct) string {
	if len(a.Prices) < 2 {
		return "-"
	}
	return fmt.Sprintf("%.2f%%", a.PriceSpreadPercent)
}

// WriteStoreRanking writes store summaries in the given order.
func WriteStoreRanking(w io.Writer, summaries []model.StoreSummary) error {
	tw := newTable(w)
	if _, err := fmt.Fprint(tw, row("#", "STORE", "CHEAPEST", "PRICES", "AVERAGE")); err != nil {
		return err
	}
	for i, s := range summaries {
		avg := "-"
		if s.PriceCount > 0 {
			avg = fmt.Sprintf("%.2f", s.AveragePrice)
		}
		if _, err := fmt.Fprint(tw, row(
			fmt.Sprint(i+1), s.Store.Name, fmt.Sprint(s.CheapestCount), fmt.Sprint(s.PriceCount), avg,
		)); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// WriteDifferences writes the products with the largest price spread.
func WriteDifferences(w io.Writer, aggs []model.AggregatedProduct) error {
	tw := newTable(w)
	if _, err := fmt.Fprint(tw, row("PRODUCT", "CHEAPEST", "MIN", "MAX", "SAVING", "SPREAD")); err != nil {
		return err
	}
	for _, a := range aggs {
		if _, err := fmt.Fprint(tw, row(
			a.Product.Name,
			a.CheapestStore,
			centsCell(a.MinPrice),
			centsCell(a.MaxPrice),
			a.Variance().String(),
			spreadCell(a),
		)); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func centsCell(c *money.Cents) string {
	if c == nil {
		return "-"
	}
	return c.String()
}

// WriteHistory writes a product's price history, newest first as given.
func WriteHistory(w io.Writer, points []model.PricePoint) error {
	tw := newTable(w)
	if _, err := fmt.Fprint(tw, row("RECORDED", "STORE", "PRICE")); err != nil {
		return err
	}
	for _, p := range points {
		if _, err := fmt.Fprint(tw, row(p.RecordedAt.Format("2006-01-02 15:04"), p.StoreName, p.Price.String())); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// WriteReport writes an ingestion report summary followed by at most
// maxErrors line errors. A negative maxErrors writes all of them.
func WriteReport(w io.Writer, r *model.IngestionReport, maxErrors int) error {
	var b strings.Builder

	fmt.Fprintf(&b, "Batch:     %s\n", r.BatchID)
	fmt.Fprintf(&b, "Lines:     %d (processed %d)\n", r.Total, r.Processed)
	fmt.Fprintf(&b, "Imported:  %d (saved %d)\n", r.Imported, r.Persisted)
	fmt.Fprintf(&b, "Skipped:   %d\n", r.Skipped)
	fmt.Fprintf(&b, "Failed:    %d\n", r.Failed)
	fmt.Fprintf(&b, "Duration:  %s", r.Completed.Sub(r.Started).Round(time.Millisecond))

	title := "Import Complete"
	if r.Cancelled {
		title = "Import Cancelled"
	}
	if _, err := fmt.Fprintln(w, RenderBox(title, b.String())); err != nil {
		return err
	}

	if len(r.Matches) > 0 {
		if _, err := fmt.Fprintln(w, SubtitleStyle.Render("Sample matches")); err != nil {
			return err
		}
		tw := newTable(w)
		for _, m := range r.Matches {
			label := m.Matched
			if m.Ambiguous {
				label += " (ambiguous)"
			}
			if _, err := fmt.Fprint(tw, row("  "+m.Scraped, "→ "+label, money.Cents(m.PriceCents).String())); err != nil {
				return err
			}
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	shown := r.Errors
	if maxErrors >= 0 && len(shown) > maxErrors {
		shown = shown[:maxErrors]
	}
	for _, e := range shown {
		if _, err := fmt.Fprintln(w, FormatWarning(e.String())); err != nil {
			return err
		}
	}
	if hidden := len(r.Errors) - len(shown); hidden > 0 {
		if _, err := fmt.Fprintln(w, SubtleStyle.Render(fmt.Sprintf("... and %d more", hidden))); err != nil {
			return err
		}
	}
	return nil
}

// WriteStatus writes catalog counts.
func WriteStatus(w io.Writer, status model.CatalogStatus, dbPath string) error {
	state := "ready"
	if status.Products == 0 {
		state = "empty - needs seeding"
	}

	content := fmt.Sprintf("Database:  %s\nSchema:    v%d\nProducts:  %d\nStores:    %d\nPrices:    %d\nState:     %s",
		dbPath, status.SchemaVersion, status.Products, status.Stores, status.Prices, state)
	_, err := fmt.Fprintln(w, RenderBox(ChartIcon+" Catalog Status", content))
	return err
}
