// Package match provides pure string-similarity functions used for
// canonical-name resolution: normalization, Levenshtein and Jaccard
// similarity, and a combined score with length-adaptive weighting.
// Nothing in this package performs I/O.
package match

import "strings"

// MinMeaningfulLength is the minimum normalized length for a name to be
// matchable at all.
const MinMeaningfulLength = 3

// Default thresholds for categorizing a combined similarity score.
const (
	DefaultAutoThreshold = 0.90
	DefaultAskThreshold  = 0.70
)

// Category is the action suggested for a similarity score.
type Category string

const (
	// CategoryAutoConsolidate marks scores high enough to merge without asking.
	CategoryAutoConsolidate Category = "auto_consolidate"
	// CategoryAskUser marks ambiguous scores that need human confirmation.
	CategoryAskUser Category = "ask_user"
	// CategoryNoMatch marks scores too low to relate the names.
	CategoryNoMatch Category = "new_feature"
)

// Options configures a Matcher. Zero values fall back to defaults.
type Options struct {
	// Prefixes are short product-code prefixes stripped during
	// normalization when followed by a space, hyphen, or underscore.
	Prefixes []string

	// Stopwords are tokens dropped during normalization.
	Stopwords []string

	// AutoThreshold is the minimum score for CategoryAutoConsolidate.
	AutoThreshold float64

	// AskThreshold is the minimum score for CategoryAskUser.
	AskThreshold float64
}

// Matcher bundles the normalization configuration with the similarity
// functions. A zero-config Matcher (NewMatcher(Options{})) uses the package
// defaults.
type Matcher struct {
	prefixes      []string
	stopwords     map[string]bool
	autoThreshold float64
	askThreshold  float64
}

// NewMatcher creates a matcher, filling unset options with defaults.
func NewMatcher(opts Options) *Matcher {
	m := &Matcher{
		prefixes:      opts.Prefixes,
		autoThreshold: opts.AutoThreshold,
		askThreshold:  opts.AskThreshold,
	}
	if m.prefixes == nil {
		m.prefixes = defaultPrefixes
	}
	if m.autoThreshold == 0 {
		m.autoThreshold = DefaultAutoThreshold
	}
	if m.askThreshold == 0 {
		m.askThreshold = DefaultAskThreshold
	}
	if opts.Stopwords == nil {
		m.stopwords = defaultStopwords
	} else {
		m.stopwords = make(map[string]bool, len(opts.Stopwords))
		for _, w := range opts.Stopwords {
			m.stopwords[strings.ToLower(w)] = true
		}
	}
	return m
}

// CombinedSimilarity blends Levenshtein, sequence-ratio, and Jaccard
// similarity with weights adapted to the shape of the inputs: short strings
// weigh edit distance highest, long multi-token strings weigh token overlap
// highest. When normalize is true both inputs are normalized first.
//
// Edge cases: both inputs empty -> 1.0; exactly one empty -> 0.0. The same
// rule applies after normalization (a name that normalizes away matches
// nothing except another name that also normalizes away).
func (m *Matcher) CombinedSimilarity(a, b string, normalize bool) float64 {
	if normalize {
		a = m.Normalize(a)
		b = m.Normalize(b)
	}
	if a == "" && b == "" {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}

	lev := LevenshteinSimilarity(a, b)
	seq := SequenceRatio(a, b)
	jac := JaccardSimilarity(a, b)

	wLev, wSeq, wJac := adaptiveWeights(a, b)
	return wLev*lev + wSeq*seq + wJac*jac
}

// adaptiveWeights picks the (lev, seq, jac) blend by average string length
// and token count.
func adaptiveWeights(a, b string) (float64, float64, float64) {
	avgLen := float64(len([]rune(a))+len([]rune(b))) / 2.0
	avgTokens := float64(len(strings.Fields(a))+len(strings.Fields(b))) / 2.0

	switch {
	case avgLen < 10:
		return 0.5, 0.3, 0.2
	case avgTokens <= 2:
		return 0.4, 0.4, 0.2
	case avgTokens >= 5:
		return 0.2, 0.3, 0.5
	default:
		return 0.35, 0.35, 0.3
	}
}

// Categorize maps a combined similarity score onto a suggested action.
func (m *Matcher) Categorize(score float64) Category {
	switch {
	case score >= m.autoThreshold:
		return CategoryAutoConsolidate
	case score >= m.askThreshold:
		return CategoryAskUser
	default:
		return CategoryNoMatch
	}
}
