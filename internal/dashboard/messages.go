package dashboard

import (
	"context"

	"github.com/Veraticus/halpa/internal/aggregate"
	"github.com/Veraticus/halpa/internal/service"
	tea "github.com/charmbracelet/bubbletea"
)

// snapshotLoadedMsg carries a freshly aggregated comparison.
type snapshotLoadedMsg struct {
	snapshot *aggregate.Snapshot
	err      error
}

// loadSnapshot reads and aggregates the catalog in the background.
func loadSnapshot(ctx context.Context, r service.PriceReader) tea.Cmd {
	return func() tea.Msg {
		s, err := aggregate.Load(ctx, r)
		return snapshotLoadedMsg{snapshot: s, err: err}
	}
}
