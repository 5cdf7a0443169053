package matcher

import (
	"strings"

	"github.com/Veraticus/halpa/internal/model"
	"github.com/Veraticus/halpa/internal/normalize"
)

// ProductMatcher implements Matcher with exact and word-containment rules.
// It prefers a missed match over a wrong one.
type ProductMatcher struct {
	normalizer *normalize.Normalizer
}

// New creates a matcher. A nil normalizer uses the built-in rules.
func New(n *normalize.Normalizer) *ProductMatcher {
	if n == nil {
		n = normalize.New(normalize.DefaultRules())
	}
	return &ProductMatcher{normalizer: n}
}

// Match returns the first product in catalog order that matches rawName.
func (m *ProductMatcher) Match(rawName string, catalog []model.Product) *model.Product {
	return m.Index(catalog).Lookup(rawName).Product
}

// MatchAll returns every product the word rule accepts, in catalog order. An
// exact match is returned alone.
func (m *ProductMatcher) MatchAll(rawName string, catalog []model.Product) []model.Product {
	return m.Index(catalog).Candidates(rawName)
}

// Index pre-normalizes a catalog for repeated lookups. It is a read-only
// snapshot and safe for concurrent use.
type Index struct {
	normalizer *normalize.Normalizer
	entries    []entry
}

type entry struct {
	normalized string
	words      []string
	product    model.Product
}

// Index builds a lookup index over catalog, preserving its order.
func (m *ProductMatcher) Index(catalog []model.Product) *Index {
	entries := make([]entry, len(catalog))
	for i, p := range catalog {
		n := m.normalizer.Normalize(p.Name)
		entries[i] = entry{
			product:    p,
			normalized: n,
			words:      normalize.Tokens(n),
		}
	}
	return &Index{normalizer: m.normalizer, entries: entries}
}

// Len returns the number of indexed products.
func (ix *Index) Len() int {
	return len(ix.entries)
}

// Lookup matches rawName against the index.
func (ix *Index) Lookup(rawName string) Result {
	normalized := ix.normalizer.Normalize(rawName)
	res := Result{Kind: KindNone, Normalized: normalized}

	words := normalize.Tokens(normalized)
	if len(words) == 0 {
		return res
	}

	for i := range ix.entries {
		if ix.entries[i].normalized == normalized {
			p := ix.entries[i].product
			res.Product = &p
			res.Kind = KindExact
			return res
		}
	}

	for i := range ix.entries {
		if !containsAll(ix.entries[i].words, words) {
			continue
		}
		if res.Product == nil {
			p := ix.entries[i].product
			res.Product = &p
			res.Kind = KindWords
		}
		res.Candidates++
	}

	return res
}

// Candidates lists every product satisfying the lookup rules for rawName.
func (ix *Index) Candidates(rawName string) []model.Product {
	normalized := ix.normalizer.Normalize(rawName)
	words := normalize.Tokens(normalized)
	if len(words) == 0 {
		return nil
	}

	for _, e := range ix.entries {
		if e.normalized == normalized {
			return []model.Product{e.product}
		}
	}

	var out []model.Product
	for _, e := range ix.entries {
		if containsAll(e.words, words) {
			out = append(out, e.product)
		}
	}
	return out
}

// containsAll reports whether every product word is a substring of, or
// contains, some raw word. Products without qualifying words never match.
func containsAll(productWords, rawWords []string) bool {
	if len(productWords) == 0 {
		return false
	}
	for _, pw := range productWords {
		found := false
		for _, rw := range rawWords {
			if strings.Contains(rw, pw) || strings.Contains(pw, rw) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
