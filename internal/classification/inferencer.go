// Package classification infers coarse categories and units for product text.
package classification

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/Veraticus/halpa/internal/model"
)

// UnitPiece is the unit used for discrete count items.
const UnitPiece = "kpl"

// ErrInvalidRule is returned for rules without a category or keywords.
var ErrInvalidRule = errors.New("invalid category rule")

// CategoryRule maps a keyword group to a category label. Keywords match as
// case-insensitive substrings.
type CategoryRule struct {
	Category    string   `yaml:"category"`
	DefaultUnit string   `yaml:"default_unit,omitempty"`
	Keywords    []string `yaml:"keywords"`
}

type compiledRule struct {
	re *regexp.Regexp
	CategoryRule
}

var (
	quantityPattern = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s?(kg|g|ml|cl|dl|l|kpl)\b`)
	bareKgPattern   = regexp.MustCompile(`(?i)\bkg\b`)
)

// Inferencer derives a category and a unit from raw product text. It never
// fails and is safe for concurrent use.
type Inferencer struct {
	defaultUnits map[string]string
	rules        []compiledRule
}

// NewInferencer compiles the rule table, keeping its order.
func NewInferencer(rules []CategoryRule) (*Inferencer, error) {
	inf := &Inferencer{
		rules:        make([]compiledRule, 0, len(rules)),
		defaultUnits: make(map[string]string),
	}

	for _, r := range rules {
		if strings.TrimSpace(r.Category) == "" || len(r.Keywords) == 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidRule, r.Category)
		}

		quoted := make([]string, 0, len(r.Keywords))
		for _, k := range r.Keywords {
			if k = strings.TrimSpace(k); k != "" {
				quoted = append(quoted, regexp.QuoteMeta(k))
			}
		}
		if len(quoted) == 0 {
			return nil, fmt.Errorf("%w: %q has only blank keywords", ErrInvalidRule, r.Category)
		}

		re, err := regexp.Compile("(?i)(?:" + strings.Join(quoted, "|") + ")")
		if err != nil {
			return nil, fmt.Errorf("failed to compile rule %s: %w", r.Category, err)
		}

		inf.rules = append(inf.rules, compiledRule{CategoryRule: r, re: re})
		if r.DefaultUnit != "" {
			if _, ok := inf.defaultUnits[r.Category]; !ok {
				inf.defaultUnits[r.Category] = r.DefaultUnit
			}
		}
	}

	return inf, nil
}

// MustDefault returns an inferencer over DefaultRules.
func MustDefault() *Inferencer {
	inf, err := NewInferencer(DefaultRules())
	if err != nil {
		panic(err)
	}
	return inf
}

// InferCategory returns the category of the first matching rule, or Other.
func (inf *Inferencer) InferCategory(text string) string {
	for _, r := range inf.rules {
		if r.re.MatchString(text) {
			return r.Category
		}
	}
	return model.CategoryOther
}

// InferUnit returns the last quantity token in text ("500g", "1.5L", "10kpl"),
// a bare "kg" marker, or the default unit for the inferred category.
func (inf *Inferencer) InferUnit(text string) string {
	if matches := quantityPattern.FindAllStringSubmatch(text, -1); len(matches) > 0 {
		last := matches[len(matches)-1]
		return formatQuantity(last[1], last[2])
	}

	if bareKgPattern.MatchString(text) {
		return "kg"
	}

	return inf.DefaultUnit(inf.InferCategory(text))
}

// DefaultUnit returns the typical packaging unit of a category.
func (inf *Inferencer) DefaultUnit(category string) string {
	if u, ok := inf.defaultUnits[category]; ok {
		return u
	}
	return UnitPiece
}

// Infer returns category and unit, preferring non-empty hints.
func (inf *Inferencer) Infer(text, categoryHint, unitHint string) (category, unit string) {
	category = strings.TrimSpace(categoryHint)
	if category == "" {
		category = inf.InferCategory(text)
	}

	unit = strings.TrimSpace(unitHint)
	if unit == "" {
		unit = inf.InferUnit(text)
	}

	return category, unit
}

// Categories lists the configured category labels in rule order.
func (inf *Inferencer) Categories() []string {
	out := make([]string, 0, len(inf.rules)+1)
	seen := make(map[string]bool)
	for _, r := range inf.rules {
		if !seen[r.Category] {
			seen[r.Category] = true
			out = append(out, r.Category)
		}
	}
	if !seen[model.CategoryOther] {
		out = append(out, model.CategoryOther)
	}
	return out
}

func formatQuantity(number, unit string) string {
	number = strings.ReplaceAll(number, ",", ".")
	unit = strings.ToLower(unit)
	if unit == "l" {
		unit = "L"
	}
	return number + unit
}
