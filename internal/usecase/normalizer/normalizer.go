package normalizer

import (
	"strings"
	"unicode"
)

// stopWords are articles/conjunctions removed from normalized
// descriptions. Matching is done after uppercasing, so only uppercase
// forms are listed.
var stopWords = map[string]struct{}{
	"THE": {},
	"EL":  {},
	"LA":  {},
	"LOS": {},
	"LAS": {},
	"DE":  {},
	"DEL": {},
	"Y":   {},
	"AND": {},
}

// Normalize canonicalizes a raw bank description for hashing and
// comparison: trim, collapse whitespace runs, uppercase, strip characters
// that are neither letters, digits nor spaces, then drop the fixed
// stop-word set. Accented letters survive the strip, so descriptions
// differing only by diacritics stay distinct.
//
// The function is pure and deterministic: same input, same output.
func Normalize(raw string) string {
	upper := strings.ToUpper(strings.TrimSpace(raw))

	var b strings.Builder
	b.Grow(len(upper))
	for _, r := range upper {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteRune(' ')
		}
	}

	words := strings.Fields(b.String())
	kept := words[:0]
	for _, w := range words {
		if _, stop := stopWords[w]; stop {
			continue
		}
		kept = append(kept, w)
	}

	return strings.Join(kept, " ")
}

// Tokens splits a free-text field on whitespace and keeps words strictly
// longer than minLen runes. Used by the matcher's word-overlap criterion.
func Tokens(s string, minLen int) []string {
	fields := strings.Fields(strings.ToUpper(s))
	tokens := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) > minLen {
			tokens = append(tokens, f)
		}
	}
	return tokens
}
