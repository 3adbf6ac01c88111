package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	m := NewMatcher(Options{})

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercases", "Checkout Flow", "checkout flow"},
		{"strips product prefix", "px-checkout", "checkout"},
		{"strips prefix with space", "feat new onboarding", "new onboarding"},
		{"strips stacked prefixes", "exp px checkout", "checkout"},
		{"drops stopwords", "the state of the checkout", "state checkout"},
		{"maps separators to spaces", "checkout_flow-v2", "checkout flow v2"},
		{"drops punctuation", "checkout!! (flow)", "checkout flow"},
		{"collapses whitespace", "  checkout    flow  ", "checkout flow"},
		{"empty input", "", ""},
		{"only stopwords", "the of a", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Normalize(tt.input))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	m := NewMatcher(Options{})

	inputs := []string{
		"PX-Checkout Flow",
		"exp px payment service",
		"The Design of Everyday Things",
		"feat_sys_login",
		"",
	}
	for _, input := range inputs {
		once := m.Normalize(input)
		assert.Equal(t, once, m.Normalize(once), "normalize must be idempotent for %q", input)
	}
}

func TestNormalize_PrefixNeedsSeparator(t *testing.T) {
	m := NewMatcher(Options{})

	// "px" is only a prefix when followed by a separator; "pxel" keeps its
	// leading letters.
	assert.Equal(t, "pxel", m.Normalize("pxel"))
	assert.Equal(t, "proxy", m.Normalize("proxy"))
}

func TestIsMeaningfulName(t *testing.T) {
	m := NewMatcher(Options{})

	assert.True(t, m.IsMeaningfulName("checkout"))
	assert.False(t, m.IsMeaningfulName("ab"))
	assert.False(t, m.IsMeaningfulName("the"))
	assert.False(t, m.IsMeaningfulName(""))
}
