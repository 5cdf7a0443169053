package dashboard

import (
	"github.com/Veraticus/halpa/internal/aggregate"
	"github.com/Veraticus/halpa/internal/service"
)

// Config holds dashboard configuration.
type Config struct {
	Reader          service.PriceReader
	Snapshot        *aggregate.Snapshot
	Theme           Theme
	Width           int
	Height          int
	DifferenceLimit int
	AltScreen       bool
}

// Option is a functional option for configuring the dashboard.
type Option func(*Config)

func defaultConfig() Config {
	return Config{
		Theme:           DefaultTheme,
		Width:           100,
		Height:          30,
		DifferenceLimit: 5,
		AltScreen:       true,
	}
}

// WithReader sets the price source the dashboard loads from and reloads on refresh.
func WithReader(r service.PriceReader) Option {
	return func(c *Config) {
		c.Reader = r
	}
}

// WithSnapshot starts the dashboard with already loaded data.
func WithSnapshot(s *aggregate.Snapshot) Option {
	return func(c *Config) {
		c.Snapshot = s
	}
}

// WithTheme sets the visual theme.
func WithTheme(theme Theme) Option {
	return func(c *Config) {
		c.Theme = theme
	}
}

// WithSize sets the initial terminal size.
func WithSize(width, height int) Option {
	return func(c *Config) {
		c.Width = width
		c.Height = height
	}
}

// WithAltScreen toggles the alternate screen buffer.
func WithAltScreen(enabled bool) Option {
	return func(c *Config) {
		c.AltScreen = enabled
	}
}
