package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/Veraticus/halpa/internal/common"
	"github.com/Veraticus/halpa/internal/source"
	"github.com/spf13/viper"
)

// DefaultDatabasePath is used when database.path is not configured.
const DefaultDatabasePath = "~/.local/share/halpa/halpa.db"

// DatabasePath returns the configured database path, expanded, creating its
// parent directory when missing.
func DatabasePath() (string, error) {
	path := viper.GetString("database.path")
	if path == "" {
		path = DefaultDatabasePath
	}
	path = ExpandPath(path)
	if path == ":memory:" {
		return path, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return "", fmt.Errorf("failed to create database directory: %w", err)
	}
	return path, nil
}

// LoadSources reads the "sources" list. File paths are expanded.
func LoadSources() ([]source.Config, error) {
	var configs []source.Config
	if err := viper.UnmarshalKey("sources", &configs); err != nil {
		return nil, fmt.Errorf("%w: sources: %w", common.ErrInvalidConfig, err)
	}
	for i := range configs {
		configs[i].Path = ExpandPath(configs[i].Path)
	}
	return configs, nil
}
