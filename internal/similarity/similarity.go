// Package similarity provides the pluggable similarity oracle used for
// embedding edge inference. The real backend embeds text via an HTTP model
// server; when it is unavailable the caller degrades to the textual Jaccard
// provider rather than aborting.
package similarity

import (
	"context"
	"strings"

	"github.com/scrypster/weaver/pkg/types"
)

// DefaultBodyChars is how much of the body participates in the textual
// representation used for pairwise comparison.
const DefaultBodyChars = 500

// Provider scores the similarity of two texts in [0,1].
type Provider interface {
	// Name identifies the provider (recorded in edge metadata).
	Name() string

	// Score returns the similarity of two texts. Implementations return
	// ErrBackendUnavailable (possibly wrapped) when the backing service
	// cannot be reached, so callers can fall back.
	Score(ctx context.Context, a, b string) (float64, error)
}

// Representation builds the fixed, truncated textual form of an entity used
// for similarity comparison: name, short description, first bodyChars of the
// body, and tags, concatenated.
func Representation(e *types.Entity, bodyChars int) string {
	if bodyChars <= 0 {
		bodyChars = DefaultBodyChars
	}
	var b strings.Builder
	b.WriteString(e.Name)
	if e.Description != "" {
		b.WriteString(" ")
		b.WriteString(e.Description)
	}
	body := e.Body
	if len(body) > bodyChars {
		body = body[:bodyChars]
	}
	if body != "" {
		b.WriteString(" ")
		b.WriteString(body)
	}
	if len(e.Tags) > 0 {
		b.WriteString(" ")
		b.WriteString(strings.Join(e.Tags, " "))
	}
	return b.String()
}
