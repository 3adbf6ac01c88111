// Package enrich implements the graph enrichment core: mention extraction,
// bidirectional relationship construction, embedding edge inference, and the
// orchestrator that runs them as a fixed pipeline over the entity collection.
package enrich

import (
	"context"

	"github.com/scrypster/weaver/pkg/types"
)

// Candidate is one proposed relationship discovered by a MentionSource: a
// target entity, the text surrounding the discovery, a confidence score, and
// the provenance tag to record on the resulting edge.
type Candidate struct {
	TargetID   string
	Context    string
	Confidence float64
	Provenance string
}

// MentionSource produces relationship candidates for one entity. Body text
// extraction, external feed extraction, and any future enricher all
// implement this one interface so the orchestrator can iterate them without
// type-switching.
type MentionSource interface {
	// Name identifies the source in run reports.
	Name() string

	// ExtractCandidates proposes relationship targets for the entity.
	// Item-level problems are handled inside the source; an error return
	// means the source as a whole failed for this entity.
	ExtractCandidates(ctx context.Context, entity *types.Entity) ([]Candidate, error)
}
