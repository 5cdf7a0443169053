package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Veraticus/halpa/internal/classification"
	"github.com/Veraticus/halpa/internal/common"
	"github.com/Veraticus/halpa/internal/normalize"
	"gopkg.in/yaml.v3"
)

// RulesFile is the on-disk format of the matching rules file.
//
//	normalize:
//	  brands: [eldorado]
//	categories:
//	  - category: Snacks
//	    keywords: [sipsi, popcorn]
type RulesFile struct {
	Normalize         normalize.Rules               `yaml:"normalize"`
	Categories        []classification.CategoryRule `yaml:"categories"`
	ReplaceCategories bool                          `yaml:"replace_categories"`
}

// Rules is the effective normalization and category rule set.
type Rules struct {
	Normalize  normalize.Rules
	Categories []classification.CategoryRule
}

// DefaultRules returns the built-in rule set.
func DefaultRules() Rules {
	return Rules{
		Normalize:  normalize.DefaultRules(),
		Categories: classification.DefaultRules(),
	}
}

// LoadRules reads a rules file and merges it into the defaults. An empty path
// returns the defaults. Configured category rules are tried before the
// built-in ones unless replace_categories is set.
func LoadRules(path string) (Rules, error) {
	if path == "" {
		return DefaultRules(), nil
	}

	data, err := os.ReadFile(ExpandPath(path)) // #nosec G304
	if err != nil {
		return Rules{}, fmt.Errorf("failed to read rules file: %w", err)
	}
	return ParseRules(data)
}

// ParseRules parses rules YAML and merges it into the defaults.
func ParseRules(data []byte) (Rules, error) {
	var file RulesFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return Rules{}, fmt.Errorf("%w: rules file: %w", common.ErrInvalidConfig, err)
	}

	rules := DefaultRules()
	rules.Normalize = rules.Normalize.Merge(file.Normalize)
	if file.ReplaceCategories {
		rules.Categories = file.Categories
	} else {
		rules.Categories = append(append([]classification.CategoryRule{}, file.Categories...), rules.Categories...)
	}

	if err := rules.Validate(); err != nil {
		return Rules{}, err
	}
	return rules, nil
}

// Validate checks both rule tables.
func (r Rules) Validate() error {
	if err := r.Normalize.Validate(); err != nil {
		return fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}
	if len(r.Categories) == 0 {
		return fmt.Errorf("%w: no category rules", common.ErrInvalidConfig)
	}
	if _, err := classification.NewInferencer(r.Categories); err != nil {
		return fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}
	return nil
}

// Normalizer builds a normalizer from the rule set.
func (r Rules) Normalizer() *normalize.Normalizer {
	return normalize.New(r.Normalize)
}

// Inferencer builds an inferencer from the rule set.
func (r Rules) Inferencer() (*classification.Inferencer, error) {
	return classification.NewInferencer(r.Categories)
}
