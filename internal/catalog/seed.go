// Package catalog creates canonical products and stores from curated seed data.
package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Veraticus/halpa/internal/common"
	"github.com/Veraticus/halpa/internal/model"
	"github.com/Veraticus/halpa/internal/money"
	"gopkg.in/yaml.v3"
)

// SeedPrice is an optional starting price of a seed entry, in major units.
type SeedPrice struct {
	Store string  `yaml:"store"`
	Price float64 `yaml:"price"`
}

// SeedEntry is one curated product. Category and unit are inferred when blank.
type SeedEntry struct {
	Name     string      `yaml:"name"`
	Category string      `yaml:"category,omitempty"`
	Unit     string      `yaml:"unit,omitempty"`
	Prices   []SeedPrice `yaml:"prices,omitempty"`
}

// SeedFile is the on-disk seed format.
type SeedFile struct {
	Stores   []string    `yaml:"stores"`
	Products []SeedEntry `yaml:"products"`
}

// LoadSeedFile reads a YAML seed file. Unknown keys are rejected.
func LoadSeedFile(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path comes from the user's command line
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return ParseSeed(data)
}

// ParseSeed decodes seed YAML.
func ParseSeed(data []byte) (*SeedFile, error) {
	var file SeedFile

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: seed file: %w", common.ErrInvalidConfig, err)
	}

	for i, e := range file.Products {
		if strings.TrimSpace(e.Name) == "" {
			return nil, fmt.Errorf("%w: seed product %d has no name", common.ErrInvalidConfig, i+1)
		}
	}
	return &file, nil
}

// FromObservations turns scraped observations into seed entries, keeping the
// first scraped category and unit hints and one price per observation. Lines
// with unparseable prices are dropped.
func FromObservations(observations []model.RawObservation) *SeedFile {
	file := &SeedFile{}
	seenStores := make(map[string]bool)

	for _, obs := range observations {
		name := strings.TrimSpace(obs.Product)
		if name == "" {
			continue
		}
		price, err := money.ParseMajor(obs.Price)
		if err != nil || price <= 0 {
			continue
		}

		store := strings.TrimSpace(obs.Store)
		if store != "" && !seenStores[store] {
			seenStores[store] = true
			file.Stores = append(file.Stores, store)
		}

		entry := SeedEntry{
			Name:     name,
			Category: obs.CategoryHint,
			Unit:     obs.UnitHint,
		}
		if store != "" {
			entry.Prices = []SeedPrice{{Store: store, Price: price.Major()}}
		}
		file.Products = append(file.Products, entry)
	}

	return file
}
