package dashboard

import (
	"fmt"
	"strings"

	"github.com/Veraticus/halpa/internal/aggregate"
	"github.com/Veraticus/halpa/internal/model"
	"github.com/charmbracelet/lipgloss"
)

// View renders the UI.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.snapshot == nil {
		return m.renderLoading()
	}

	sections := []string{m.renderHeader(), m.renderStatus()}
	if m.view == ViewProducts && (m.searching || m.search.Value() != "") {
		sections = append(sections, m.search.View())
	}
	sections = append(sections, m.table.View())

	if m.view == ViewProducts {
		sections = append(sections, m.renderDetail())
	} else {
		sections = append(sections, m.renderBestStore())
	}
	if m.lastError != nil {
		sections = append(sections, m.config.Theme.Error.Render("Reload failed: "+m.lastError.Error()))
	}
	sections = append(sections, m.help.View(m.keymap))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderLoading() string {
	if m.lastError != nil {
		return m.config.Theme.Error.Render("Failed to load prices: "+m.lastError.Error()) + "\n" +
			m.config.Theme.Muted.Render("Press r to retry or q to quit.")
	}
	return m.config.Theme.Subtitle.Render("Loading prices...")
}

func (m Model) renderHeader() string {
	title := m.config.Theme.Title.Render("Grocery Price Comparison")
	sub := m.config.Theme.Subtitle.Render(fmt.Sprintf("%d products · %d stores",
		len(m.snapshot.Products), len(m.snapshot.Stores)))
	return lipgloss.JoinHorizontal(lipgloss.Bottom, title, "  ", sub)
}

func (m Model) renderStatus() string {
	if m.view == ViewStores {
		return m.config.Theme.Status.Render("Store ranking by cheapest products")
	}

	q := m.Query()
	category := q.Category
	if category == "" {
		category = allCategories
	}
	sortLabel := string(q.SortBy)
	if q.SortBy == aggregate.SortNone {
		sortLabel = "catalog"
	}

	parts := []string{
		fmt.Sprintf("Category: %s", category),
		fmt.Sprintf("Sort: %s", sortLabel),
		fmt.Sprintf("Showing %d of %d", len(m.visible), len(m.snapshot.Products)),
	}
	if m.loading {
		parts = append(parts, "reloading...")
	}
	return m.config.Theme.Status.Render(strings.Join(parts, "  │  "))
}

// renderDetail shows where the selected product is cheapest and what it costs elsewhere.
func (m Model) renderDetail() string {
	a, ok := m.Selected()
	if !ok {
		return m.config.Theme.Detail.Render(m.config.Theme.Muted.Render("No products match the current filter."))
	}
	return m.config.Theme.Detail.Render(describeProduct(a, m.snapshot.Stores, m.config.Theme))
}

func describeProduct(a model.AggregatedProduct, stores []model.Store, theme Theme) string {
	name := lipgloss.NewStyle().Bold(true).Render(a.Product.Name)
	if a.MinPrice == nil {
		return name + "  " + theme.Muted.Render("no prices yet")
	}

	parts := make([]string, 0, len(stores))
	for _, s := range stores {
		sp, ok := a.Prices[s.Name]
		if !ok {
			continue
		}
		label := fmt.Sprintf("%s %s €", s.Name, sp.Price)
		switch {
		case len(a.Prices) > 1 && s.Name == a.CheapestStore:
			label = theme.Cheapest.Render(label)
		case len(a.Prices) > 1 && a.MaxPrice != nil && sp.Price == *a.MaxPrice:
			label = theme.Expensive.Render(label)
		}
		parts = append(parts, label)
	}

	line := name + "  " + strings.Join(parts, "  ")
	if v := a.Variance(); v > 0 {
		line += "  " + theme.Muted.Render(fmt.Sprintf("save %s € at %s", v, a.CheapestStore))
	}
	return line
}

func (m Model) renderBestStore() string {
	best, ok := aggregate.CheapestOverall(m.snapshot.Summaries)
	if !ok {
		return m.config.Theme.Detail.Render(m.config.Theme.Muted.Render("No store has comparable prices yet."))
	}

	text := fmt.Sprintf("Cheapest overall: %s (%d of %d products)",
		best.Store.Name, best.CheapestCount, len(m.snapshot.Products))
	if diffs := aggregate.BiggestDifferences(m.snapshot.Products, m.config.DifferenceLimit); len(diffs) > 0 {
		names := make([]string, 0, len(diffs))
		for _, d := range diffs {
			names = append(names, fmt.Sprintf("%s (%.1f%%)", d.Product.Name, d.PriceSpreadPercent))
		}
		text += "\nBiggest differences: " + strings.Join(names, ", ")
	}
	return m.config.Theme.Detail.Render(m.config.Theme.Cheapest.Render(text))
}
