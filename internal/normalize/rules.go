package normalize

import "strings"

// Rules lists the phrases removed from product names before comparison.
// Each entry is a whole word or a multi-word phrase.
type Rules struct {
	Brands     []string `yaml:"brands"`
	Origins    []string `yaml:"origins"`
	Qualifiers []string `yaml:"qualifiers"`
}

// DefaultRules returns the built-in strip lists for Finnish grocery names.
func DefaultRules() Rules {
	return Rules{
		Brands: []string{
			"pirkka", "k-menu", "rainbow", "valio", "coop", "chiquita", "bruno",
		},
		Origins: []string{
			"kotimaista", "suomi", "ulkomainen", "espanja", "italia",
		},
		Qualifiers: []string{
			"luomu", "parhaat", "suomalainen", "tuore", "pesty",
			"reilun kaupan", "maustamaton", "pakattu", "irto", "irtomyynti",
			"ca.", "n.",
		},
	}
}

// Phrases returns every configured phrase in declaration order.
func (r Rules) Phrases() []string {
	out := make([]string, 0, len(r.Brands)+len(r.Origins)+len(r.Qualifiers))
	out = append(out, r.Brands...)
	out = append(out, r.Origins...)
	out = append(out, r.Qualifiers...)
	return out
}

// Merge returns r extended with the entries of other.
func (r Rules) Merge(other Rules) Rules {
	return Rules{
		Brands:     append(append([]string{}, r.Brands...), other.Brands...),
		Origins:    append(append([]string{}, r.Origins...), other.Origins...),
		Qualifiers: append(append([]string{}, r.Qualifiers...), other.Qualifiers...),
	}
}

// Validate rejects blank phrases.
func (r Rules) Validate() error {
	for _, p := range r.Phrases() {
		if strings.TrimSpace(p) == "" {
			return ErrBlankPhrase
		}
	}
	return nil
}
