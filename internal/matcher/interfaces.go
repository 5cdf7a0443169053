// Package matcher reconciles raw product names against the canonical catalog.
package matcher

import "github.com/Veraticus/halpa/internal/model"

// Matcher finds the catalog product a raw name refers to.
type Matcher interface {
	// Match returns the matched product, or nil when nothing matches.
	Match(rawName string, catalog []model.Product) *model.Product
}

// Kind says which matching step produced a result.
type Kind string

const (
	// KindNone means no product matched.
	KindNone Kind = "none"
	// KindExact means the normalized names were equal.
	KindExact Kind = "exact"
	// KindWords means every catalog word overlapped a raw word.
	KindWords Kind = "words"
)

// Result is a match with the diagnostics the ingestion report needs.
type Result struct {
	Product    *model.Product
	Kind       Kind
	Normalized string
	Candidates int // word-containment candidates, when Kind is KindWords
}

// Ambiguous reports whether more than one product satisfied the word rule.
func (r Result) Ambiguous() bool {
	return r.Kind == KindWords && r.Candidates > 1
}
