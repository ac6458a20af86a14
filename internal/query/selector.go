package query

import (
	"fmt"
	"strings"
)

// Abbrev is a selector name that may be abbreviated down to Min characters.
type Abbrev struct {
	Name string
	// Min is the shortest accepted prefix length. Zero means 1.
	Min int
}

func (a Abbrev) minLen() int {
	if a.Min < 1 {
		return 1
	}
	return a.Min
}

// matches reports whether the lowercased token is an accepted prefix of
// the name.
func (a Abbrev) matches(token string) bool {
	name := strings.ToLower(a.Name)
	if len(token) < a.minLen() || len(token) > len(name) {
		return false
	}
	return strings.HasPrefix(name, token)
}

// Selector describes the tokens that address one field: progressive
// abbreviations of its names plus exact shortcut symbols.
type Selector struct {
	Canonical Abbrev
	Aliases   []Abbrev
	Symbols   []string
}

// Matches reports whether token addresses this selector's field.
// Matching is case-insensitive; symbols match exactly.
func (s Selector) Matches(token string) bool {
	if token == "" {
		return false
	}
	t := strings.ToLower(token)
	for _, sym := range s.Symbols {
		if t == strings.ToLower(sym) {
			return true
		}
	}
	if s.Canonical.matches(t) {
		return true
	}
	for _, a := range s.Aliases {
		if a.matches(t) {
			return true
		}
	}
	return false
}

func (s Selector) abbrevs() []Abbrev {
	return append([]Abbrev{s.Canonical}, s.Aliases...)
}

func (s Selector) validate() error {
	for _, a := range s.abbrevs() {
		if a.Name == "" {
			return fmt.Errorf("selector name is required")
		}
		if a.Min > len(a.Name) {
			return fmt.Errorf("minimum abbreviation %d exceeds name %q", a.Min, a.Name)
		}
	}
	for _, sym := range s.Symbols {
		if sym == "" {
			return fmt.Errorf("selector symbol must not be empty")
		}
	}
	return nil
}

// overlap returns a token both selectors would claim, or "" when their
// token spaces are disjoint.
func overlap(a, b Selector) string {
	for _, as := range a.Symbols {
		for _, bs := range b.Symbols {
			if strings.EqualFold(as, bs) {
				return strings.ToLower(as)
			}
		}
	}
	for _, sym := range a.Symbols {
		for _, bn := range b.abbrevs() {
			if bn.matches(strings.ToLower(sym)) {
				return strings.ToLower(sym)
			}
		}
	}
	for _, sym := range b.Symbols {
		for _, an := range a.abbrevs() {
			if an.matches(strings.ToLower(sym)) {
				return strings.ToLower(sym)
			}
		}
	}
	for _, an := range a.abbrevs() {
		for _, bn := range b.abbrevs() {
			if tok := abbrevOverlap(an, bn); tok != "" {
				return tok
			}
		}
	}
	return ""
}

// abbrevOverlap returns the shortest token two abbreviations share.
// The prefix sets of two names intersect exactly when both names reach
// max(minA, minB) characters and agree on them.
func abbrevOverlap(a, b Abbrev) string {
	an := strings.ToLower(a.Name)
	bn := strings.ToLower(b.Name)
	k := max(a.minLen(), b.minLen())
	if k > len(an) || k > len(bn) {
		return ""
	}
	if an[:k] == bn[:k] {
		return an[:k]
	}
	return ""
}
