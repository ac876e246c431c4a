package domain

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Controlled vocabularies for the enumerated watch fields. Submitted values
// are title-cased before matching, so "automatic" and "AUTOMATIC" both
// resolve to "Automatic".
var (
	Movements = []string{"Automatic", "Manual", "Quartz"}
	Materials = []string{"Stainless Steel", "Gold", "Titanium", "Ceramic"}
	Styles    = []string{"Dive", "Dress", "Chronograph", "Pilot"}
	Types     = []string{TypeCollection, TypeWishlist}
)

var titleCaser = cases.Title(language.English)

// CanonicalTerm trims and title-cases a vocabulary candidate.
func CanonicalTerm(s string) string {
	return titleCaser.String(strings.TrimSpace(s))
}

// InVocabulary reports whether the canonical form of s is one of the allowed
// terms, returning the matched term.
func InVocabulary(s string, allowed []string) (string, bool) {
	c := CanonicalTerm(s)
	for _, a := range allowed {
		if c == a {
			return a, true
		}
	}
	return c, false
}
