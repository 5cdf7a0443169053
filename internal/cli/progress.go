package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/schollz/progressbar/v3"
)

// Progress shows per-line ingestion progress. A nil *Progress is valid and
// does nothing.
type Progress struct {
	bar *progressbar.ProgressBar
}

// NewProgress creates a progress bar for total lines written to w. It
// returns nil when there is nothing to show.
func NewProgress(w io.Writer, total int, description string) *Progress {
	if total <= 0 || w == nil {
		return nil
	}

	bar := progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription(fmt.Sprintf("[green][bold]%s[reset]", description)),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			_, _ = fmt.Fprintln(w)
		}),
	)
	return &Progress{bar: bar}
}

// Tick advances the bar by one line. Safe for concurrent use.
func (p *Progress) Tick() {
	if p == nil {
		return
	}
	if err := p.bar.Add(1); err != nil {
		slog.Debug("Failed to update progress bar", "error", err)
	}
}

// Finish completes the bar, also when lines were skipped by cancellation.
func (p *Progress) Finish() {
	if p == nil {
		return
	}
	if err := p.bar.Finish(); err != nil {
		slog.Debug("Failed to finish progress bar", "error", err)
	}
}

// Current returns the number of lines reported so far.
func (p *Progress) Current() int64 {
	if p == nil {
		return 0
	}
	return p.bar.State().CurrentNum
}
