package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevenshteinDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"kitten", "sitting", 3},
		{"", "abc", 3},
		{"abc", "", 3},
		{"", "", 0},
		{"same", "same", 0},
		{"flaw", "lawn", 2},
		{"café", "cafe", 1}, // rune-based, not byte-based
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LevenshteinDistance(tt.a, tt.b), "%q vs %q", tt.a, tt.b)
		assert.Equal(t, tt.want, LevenshteinDistance(tt.b, tt.a), "distance must be symmetric")
	}
}

func TestLevenshteinSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, LevenshteinSimilarity("", ""))
	assert.Equal(t, 1.0, LevenshteinSimilarity("checkout", "checkout"))
	assert.Equal(t, 0.0, LevenshteinSimilarity("", "abc"))
	assert.InDelta(t, 1.0-3.0/7.0, LevenshteinSimilarity("kitten", "sitting"), 1e-9)
}

func TestJaccardSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, JaccardSimilarity("", ""))
	assert.Equal(t, 0.0, JaccardSimilarity("checkout flow", ""))
	assert.Equal(t, 1.0, JaccardSimilarity("checkout flow", "flow checkout"))
	assert.InDelta(t, 1.0/3.0, JaccardSimilarity("checkout flow", "checkout service"), 1e-9)
	assert.Equal(t, 0.0, JaccardSimilarity("alpha beta", "gamma delta"))
}

func TestSequenceRatio(t *testing.T) {
	assert.Equal(t, 1.0, SequenceRatio("abc", "abc"))
	assert.Equal(t, 0.0, SequenceRatio("abc", "xyz"))
	// LCS("abcd", "abed") = "abd" (3): 2*3/8.
	assert.InDelta(t, 0.75, SequenceRatio("abcd", "abed"), 1e-9)
}

func TestCombinedSimilarity_Symmetry(t *testing.T) {
	m := NewMatcher(Options{})

	pairs := [][2]string{
		{"checkout", "check out"},
		{"payment service", "payments service"},
		{"PX-Checkout", "checkout"},
		{"alpha", "omega"},
	}
	for _, p := range pairs {
		ab := m.CombinedSimilarity(p[0], p[1], true)
		ba := m.CombinedSimilarity(p[1], p[0], true)
		assert.InDelta(t, ab, ba, 1e-9, "similarity must be symmetric for %q / %q", p[0], p[1])
		assert.GreaterOrEqual(t, ab, 0.0)
		assert.LessOrEqual(t, ab, 1.0)
	}
}

func TestCombinedSimilarity_EdgeCases(t *testing.T) {
	m := NewMatcher(Options{})

	assert.Equal(t, 1.0, m.CombinedSimilarity("", "", false))
	assert.Equal(t, 0.0, m.CombinedSimilarity("checkout", "", false))

	// Names that normalize away match nothing except each other.
	assert.Equal(t, 1.0, m.CombinedSimilarity("the", "of", true))
	assert.Equal(t, 0.0, m.CombinedSimilarity("the", "checkout", true))
}

func TestCombinedSimilarity_PrefixEquivalence(t *testing.T) {
	m := NewMatcher(Options{})

	// Same name modulo a product-code prefix scores 1.0 after normalization.
	assert.InDelta(t, 1.0, m.CombinedSimilarity("PX-Checkout", "checkout", true), 1e-9)
}

func TestCategorize_Boundaries(t *testing.T) {
	m := NewMatcher(Options{})

	assert.Equal(t, CategoryAutoConsolidate, m.Categorize(0.95))
	assert.Equal(t, CategoryAutoConsolidate, m.Categorize(0.90))
	assert.Equal(t, CategoryAskUser, m.Categorize(0.8999))
	assert.Equal(t, CategoryAskUser, m.Categorize(0.70))
	assert.Equal(t, CategoryNoMatch, m.Categorize(0.6999))
	assert.Equal(t, CategoryNoMatch, m.Categorize(0.0))
}

func TestCategorize_CustomThresholds(t *testing.T) {
	m := NewMatcher(Options{AutoThreshold: 0.8, AskThreshold: 0.5})

	assert.Equal(t, CategoryAutoConsolidate, m.Categorize(0.8))
	assert.Equal(t, CategoryAskUser, m.Categorize(0.6))
	assert.Equal(t, CategoryNoMatch, m.Categorize(0.4))
}
