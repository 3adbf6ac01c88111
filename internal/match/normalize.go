package match

import (
	"strings"
	"unicode"
)

// defaultPrefixes are short product-code prefixes stripped during
// normalization when followed by a space, hyphen, or underscore
// ("PX-Checkout" and "checkout" should compare equal).
var defaultPrefixes = []string{"px", "prj", "feat", "exp", "sys"}

// defaultStopwords are removed token-wise during normalization so that
// "the checkout project" and "checkout project" compare equal.
var defaultStopwords = map[string]bool{
	"the": true, "a": true, "an": true, "of": true, "for": true,
	"and": true, "to": true, "in": true, "on": true, "with": true,
}

// Normalize canonicalizes a name for comparison: lowercases, strips a
// configured product-code prefix (literal prefix followed by space, hyphen,
// or underscore), drops stopwords, removes all non-alphanumeric characters,
// and collapses runs of whitespace. Normalize is idempotent.
func (m *Matcher) Normalize(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))

	// Strip repeatedly so stacked codes ("px prj-checkout") fully reduce;
	// this also keeps Normalize idempotent.
	for stripped := true; stripped; {
		stripped = false
		for _, prefix := range m.prefixes {
			if len(s) > len(prefix) && strings.HasPrefix(s, prefix) {
				switch s[len(prefix)] {
				case ' ', '-', '_':
					s = strings.TrimLeft(s[len(prefix)+1:], " -_")
					stripped = true
				}
			}
		}
	}

	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r) || r == '-' || r == '_':
			b.WriteRune(' ')
		}
	}

	tokens := strings.Fields(b.String())
	kept := tokens[:0]
	for _, tok := range tokens {
		if !m.stopwords[tok] {
			kept = append(kept, tok)
		}
	}
	return strings.Join(kept, " ")
}

// IsMeaningfulName reports whether a name survives normalization with at
// least MinMeaningfulLength characters. Trivially short or stopword-only
// names are unmatchable; indexing them would cause false merges on common
// words.
func (m *Matcher) IsMeaningfulName(name string) bool {
	return len(m.Normalize(name)) >= MinMeaningfulLength
}
