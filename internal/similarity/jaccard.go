package similarity

import (
	"context"

	"github.com/scrypster/weaver/internal/match"
)

// JaccardProvider is the degraded textual fallback: token-set similarity
// over the same representation the embedding backend would see. It never
// fails, which makes it the terminal fallback in the chain.
type JaccardProvider struct{}

// NewJaccardProvider creates the textual fallback provider.
func NewJaccardProvider() *JaccardProvider {
	return &JaccardProvider{}
}

// Name implements Provider.
func (p *JaccardProvider) Name() string {
	return "jaccard-text"
}

// Score implements Provider using case-folded token-set overlap.
func (p *JaccardProvider) Score(_ context.Context, a, b string) (float64, error) {
	return match.JaccardSimilarity(a, b), nil
}
