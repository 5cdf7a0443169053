// Package dashboard is the interactive terminal price comparison.
package dashboard

import (
	"context"
	"fmt"

	"github.com/Veraticus/halpa/internal/aggregate"
	"github.com/Veraticus/halpa/internal/model"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// View represents the current view mode.
type View int

// View modes, in Tab order.
const (
	ViewProducts View = iota
	ViewStores
)

// CheapestMarker follows the cheapest price in a product row.
const CheapestMarker = "*"

// allCategories is the category filter label meaning no filter.
const allCategories = "All"

// sortCycle is the order the sort key steps through, starting from catalog order.
var sortCycle = append([]aggregate.SortBy{aggregate.SortNone}, aggregate.SortModes...)

// Model holds the dashboard state.
type Model struct {
	ctx        context.Context
	lastError  error
	snapshot   *aggregate.Snapshot
	config     Config
	keymap     KeyMap
	help       help.Model
	search     textinput.Model
	table      table.Model
	categories []string
	visible    []model.AggregatedProduct
	width      int
	height     int
	category   int
	sort       int
	view       View
	searching  bool
	loading    bool
	quitting   bool
}

// New creates a dashboard model.
func New(ctx context.Context, opts ...Option) Model {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	search := textinput.New()
	search.Placeholder = "product name"
	search.Prompt = "/ "
	search.CharLimit = 64

	t := table.New(table.WithFocused(true))
	styles := table.DefaultStyles()
	styles.Header = cfg.Theme.TableHeader
	styles.Selected = cfg.Theme.Selected
	t.SetStyles(styles)

	m := Model{
		ctx:        ctx,
		config:     cfg,
		keymap:     DefaultKeyMap(),
		help:       help.New(),
		search:     search,
		table:      t,
		categories: []string{allCategories},
		width:      cfg.Width,
		height:     cfg.Height,
	}
	if cfg.Snapshot != nil {
		m.applySnapshot(cfg.Snapshot)
	}
	m.resize()
	return m
}

// Init loads the comparison unless one was provided.
func (m Model) Init() tea.Cmd {
	if m.snapshot != nil || m.config.Reader == nil {
		return nil
	}
	return m.reload()
}

func (m *Model) reload() tea.Cmd {
	m.loading = true
	return loadSnapshot(m.ctx, m.config.Reader)
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case snapshotLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.lastError = msg.err
			return m, nil
		}
		m.lastError = nil
		m.applySnapshot(msg.snapshot)
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keymap.ForceQuit) {
			m.quitting = true
			return m, tea.Quit
		}
		if m.searching {
			return m.updateSearch(msg)
		}
		if cmd, handled := m.handleKey(msg); handled {
			return m, cmd
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keymap.Quit):
		m.quitting = true
		return tea.Quit, true
	case key.Matches(msg, m.keymap.Search):
		if m.view != ViewProducts {
			return nil, true
		}
		m.searching = true
		return m.search.Focus(), true
	case key.Matches(msg, m.keymap.ClearSearch):
		if m.search.Value() != "" {
			m.search.SetValue("")
			m.refreshRows()
		}
		return nil, true
	case key.Matches(msg, m.keymap.NextCategory):
		m.category = (m.category + 1) % len(m.categories)
		m.refreshRows()
		return nil, true
	case key.Matches(msg, m.keymap.PrevCategory):
		m.category = (m.category - 1 + len(m.categories)) % len(m.categories)
		m.refreshRows()
		return nil, true
	case key.Matches(msg, m.keymap.NextSort):
		m.sort = (m.sort + 1) % len(sortCycle)
		m.refreshRows()
		return nil, true
	case key.Matches(msg, m.keymap.ToggleView):
		if m.view == ViewProducts {
			m.view = ViewStores
		} else {
			m.view = ViewProducts
		}
		m.refreshRows()
		return nil, true
	case key.Matches(msg, m.keymap.ToggleHelp):
		m.help.ShowAll = !m.help.ShowAll
		m.resize()
		return nil, true
	case key.Matches(msg, m.keymap.Refresh):
		if m.config.Reader == nil {
			return nil, true
		}
		return m.reload(), true
	}
	return nil, false
}

// updateSearch routes keys to the search input and filters as the user types.
func (m Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.ApplySearch):
		m.searching = false
		m.search.Blur()
		return m, nil
	case key.Matches(msg, m.keymap.ClearSearch):
		m.searching = false
		m.search.Blur()
		m.search.SetValue("")
		m.refreshRows()
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.refreshRows()
	return m, cmd
}

func (m *Model) applySnapshot(s *aggregate.Snapshot) {
	current := m.categories[m.category]

	m.snapshot = s
	m.categories = append([]string{allCategories}, aggregate.Categories(s.Products)...)
	m.category = 0
	for i, c := range m.categories {
		if c == current {
			m.category = i
		}
	}
	m.refreshRows()
}

// Query returns the active filter and ordering.
func (m Model) Query() aggregate.Query {
	q := aggregate.Query{
		Search: m.search.Value(),
		SortBy: sortCycle[m.sort],
	}
	if c := m.categories[m.category]; c != allCategories {
		q.Category = c
	}
	return q
}

// Visible returns the products currently listed, in display order.
func (m Model) Visible() []model.AggregatedProduct {
	return m.visible
}

// Selected returns the product under the cursor.
func (m Model) Selected() (model.AggregatedProduct, bool) {
	i := m.table.Cursor()
	if m.view != ViewProducts || i < 0 || i >= len(m.visible) {
		return model.AggregatedProduct{}, false
	}
	return m.visible[i], true
}

func (m *Model) refreshRows() {
	if m.snapshot == nil {
		return
	}

	// Old rows may have fewer cells than the new columns.
	m.table.SetRows(nil)
	if m.view == ViewStores {
		m.table.SetColumns(storeColumns())
		m.table.SetRows(storeRows(m.snapshot.Summaries))
	} else {
		m.visible = aggregate.Filter(m.snapshot.Products, m.Query())
		m.table.SetColumns(productColumns(m.snapshot.Stores))
		m.table.SetRows(productRows(m.visible, m.snapshot.Stores))
	}

	if rows := len(m.table.Rows()); m.table.Cursor() >= rows {
		m.table.SetCursor(max(rows-1, 0))
	}
}

func (m *Model) resize() {
	reserved := 9 // title, status, search, detail box and help
	if m.help.ShowAll {
		reserved += 4
	}
	m.table.SetHeight(max(m.height-reserved, 3))
	m.table.SetWidth(m.width)
	m.help.Width = m.width
}

func productColumns(stores []model.Store) []table.Column {
	cols := []table.Column{
		{Title: "Product", Width: 26},
		{Title: "Category", Width: 12},
		{Title: "Unit", Width: 6},
	}
	for _, s := range stores {
		cols = append(cols, table.Column{Title: s.Name, Width: max(len(s.Name), 8)})
	}
	return append(cols,
		table.Column{Title: "Cheapest", Width: 12},
		table.Column{Title: "Spread", Width: 8},
	)
}

func productRows(aggs []model.AggregatedProduct, stores []model.Store) []table.Row {
	rows := make([]table.Row, 0, len(aggs))
	for _, a := range aggs {
		r := table.Row{a.Product.Name, a.Product.Category, a.Product.Unit}
		for _, s := range stores {
			r = append(r, priceCell(a, s.Name))
		}
		cheapest, spread := "-", "-"
		if a.CheapestStore != "" {
			cheapest = a.CheapestStore
		}
		if len(a.Prices) >= 2 {
			spread = fmt.Sprintf("%.1f%%", a.PriceSpreadPercent)
		}
		rows = append(rows, append(r, cheapest, spread))
	}
	return rows
}

func priceCell(a model.AggregatedProduct, store string) string {
	sp, ok := a.Prices[store]
	if !ok {
		return "-"
	}
	if store == a.CheapestStore && len(a.Prices) > 1 {
		return sp.Price.String() + CheapestMarker
	}
	return sp.Price.String()
}

func storeColumns() []table.Column {
	return []table.Column{
		{Title: "#", Width: 3},
		{Title: "Store", Width: 20},
		{Title: "Cheapest", Width: 10},
		{Title: "Prices", Width: 8},
		{Title: "Average", Width: 10},
	}
}

func storeRows(summaries []model.StoreSummary) []table.Row {
	rows := make([]table.Row, 0, len(summaries))
	for i, s := range summaries {
		avg := "-"
		if s.PriceCount > 0 {
			avg = fmt.Sprintf("%.2f", s.AveragePrice)
		}
		rows = append(rows, table.Row{
			fmt.Sprint(i + 1),
			s.Store.Name,
			fmt.Sprint(s.CheapestCount),
			fmt.Sprint(s.PriceCount),
			avg,
		})
	}
	return rows
}
