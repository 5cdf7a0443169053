// Package normalize turns raw product names into comparable keys.
package normalize

import (
	"errors"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// ErrBlankPhrase is returned when a strip list contains an empty entry.
var ErrBlankPhrase = errors.New("blank strip phrase")

// Normalizer canonicalizes product names. It is immutable after construction
// and safe for concurrent use.
type Normalizer struct {
	// phrases are pre-cleaned token sequences, longest first.
	phrases [][]string
}

// New builds a normalizer from the given strip rules. Phrases are split with
// the same rules as input text, so "k-menu" strips "K-Menu" and "K/Menu".
// A punctuated phrase also strips its joined spelling, "kmenu".
func New(rules Rules) *Normalizer {
	seen := make(map[string]bool)
	var phrases [][]string

	add := func(tokens []string) {
		if len(tokens) == 0 {
			return
		}
		key := strings.Join(tokens, " ")
		if seen[key] {
			return
		}
		seen[key] = true
		phrases = append(phrases, tokens)
	}

	for _, p := range rules.Phrases() {
		words := split(p)
		add(texts(words))
		add(strings.Fields(join(words)))
	}

	// Longer phrases win over their own prefixes.
	for i := 1; i < len(phrases); i++ {
		for j := i; j > 0 && len(phrases[j]) > len(phrases[j-1]); j-- {
			phrases[j], phrases[j-1] = phrases[j-1], phrases[j]
		}
	}

	return &Normalizer{phrases: phrases}
}

var defaultNormalizer = New(DefaultRules())

// Normalize canonicalizes raw with the built-in rules.
func Normalize(raw string) string {
	return defaultNormalizer.Normalize(raw)
}

// Normalize lowercases raw, removes strip phrases as whole words, drops
// everything but letters, digits and whitespace and collapses whitespace.
// Punctuation separates words while phrases are stripped, so "Pirkka-banaani"
// loses its brand; the pieces left of a punctuated word are joined again.
// An empty result means the name is unmatchable.
func (n *Normalizer) Normalize(raw string) string {
	out := n.pass(raw)
	for {
		next := n.pass(out)
		if next == out {
			return out
		}
		out = next
	}
}

func (n *Normalizer) pass(s string) string {
	pieces := split(s)
	for {
		stripped := n.strip(pieces)
		if len(stripped) == len(pieces) {
			break
		}
		pieces = stripped
	}
	return join(pieces)
}

// piece is a run of letters and digits. Pieces of the same whitespace
// separated word share a group.
type piece struct {
	text  string
	group int
}

// split lowercases and composes s, then cuts it into pieces at whitespace and
// at every rune that is neither a letter nor a digit. A Caser is stateful so
// one is created per call.
func split(s string) []piece {
	lower := cases.Lower(language.Finnish).String(s)
	composed := norm.NFC.String(lower)

	var pieces []piece
	for group, word := range strings.Fields(composed) {
		for _, text := range strings.FieldsFunc(word, isSeparator) {
			pieces = append(pieces, piece{text: text, group: group})
		}
	}
	return pieces
}

func isSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r)
}

// join glues pieces of one group together and separates groups with a space.
// Composition runs again since dropping a rune can make neighbours composable.
func join(pieces []piece) string {
	var b strings.Builder
	for i, p := range pieces {
		if i > 0 && p.group != pieces[i-1].group {
			b.WriteByte(' ')
		}
		b.WriteString(p.text)
	}
	return norm.NFC.String(b.String())
}

func texts(pieces []piece) []string {
	out := make([]string, len(pieces))
	for i, p := range pieces {
		out[i] = p.text
	}
	return out
}

// strip removes one pass of phrase occurrences.
func (n *Normalizer) strip(pieces []piece) []piece {
	out := make([]piece, 0, len(pieces))
	for i := 0; i < len(pieces); {
		if l := n.phraseAt(pieces, i); l > 0 {
			i += l
			continue
		}
		out = append(out, pieces[i])
		i++
	}
	return out
}

func (n *Normalizer) phraseAt(pieces []piece, i int) int {
	for _, phrase := range n.phrases {
		if i+len(phrase) > len(pieces) {
			continue
		}
		match := true
		for k, word := range phrase {
			if pieces[i+k].text != word {
				match = false
				break
			}
		}
		if match {
			return len(phrase)
		}
	}
	return 0
}

// Tokens splits a normalized name into words longer than two runes. Shorter
// words are treated as noise by the matcher.
func Tokens(normalized string) []string {
	fields := strings.Fields(normalized)
	out := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) > 2 {
			out = append(out, f)
		}
	}
	return out
}
