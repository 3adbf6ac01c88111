package enrich

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/scrypster/weaver/internal/similarity"
	"github.com/scrypster/weaver/internal/store"
	"github.com/scrypster/weaver/pkg/types"
)

// DefaultSimilarityThreshold is the minimum score for proposing a
// similar_to edge.
const DefaultSimilarityThreshold = 0.75

// InferredEdge is one proposed similar_to edge from the pairwise scan.
type InferredEdge struct {
	SourceID  string  `json:"source_id"`
	TargetID  string  `json:"target_id"`
	Score     float64 `json:"score"`
	Provider  string  `json:"provider"`
	Threshold float64 `json:"threshold"`
}

// EdgeInferrer proposes similar_to edges by scoring entity pairs with a
// pluggable similarity provider. When the configured provider reports its
// backend unavailable, the scan degrades to the textual Jaccard provider
// for the remainder of the batch and records a warning.
type EdgeInferrer struct {
	store     *store.Store
	provider  similarity.Provider
	fallback  similarity.Provider
	bodyChars int
	actor     string
}

// NewEdgeInferrer creates an inferrer. provider may be nil, in which case
// the textual fallback is used directly.
func NewEdgeInferrer(s *store.Store, provider similarity.Provider, actor string) *EdgeInferrer {
	if actor == "" {
		actor = "weaver"
	}
	fallback := similarity.NewJaccardProvider()
	if provider == nil {
		provider = fallback
	}
	return &EdgeInferrer{
		store:     s,
		provider:  provider,
		fallback:  fallback,
		bodyChars: similarity.DefaultBodyChars,
		actor:     actor,
	}
}

// ScanForEdges scores every unordered entity pair not already related in
// either direction and keeps pairs scoring at or above threshold, until
// limit edges are collected or the pairs are exhausted. The scan is O(n²)
// over the candidate set: a deliberate batch cost, bounded by limit, never
// meant for interactive latency.
func (inf *EdgeInferrer) ScanForEdges(ctx context.Context, entities []*types.Entity, threshold float64, limit int) ([]InferredEdge, []string, error) {
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}

	provider := inf.provider
	var warnings []string
	var edges []InferredEdge

	reprs := make([]string, len(entities))
	for i, e := range entities {
		reprs[i] = similarity.Representation(e, inf.bodyChars)
	}

	for i := 0; i < len(entities); i++ {
		for j := i + 1; j < len(entities); j++ {
			if limit > 0 && len(edges) >= limit {
				return edges, warnings, nil
			}
			if ctx.Err() != nil {
				return edges, warnings, ctx.Err()
			}

			a, b := entities[i], entities[j]
			if a.RelationshipTo(b.ID) != nil || b.RelationshipTo(a.ID) != nil {
				continue
			}

			score, err := provider.Score(ctx, reprs[i], reprs[j])
			if err != nil {
				if errors.Is(err, similarity.ErrBackendUnavailable) && provider != inf.fallback {
					warnings = append(warnings,
						fmt.Sprintf("similarity backend %s unavailable, degrading to %s: %v",
							provider.Name(), inf.fallback.Name(), err))
					log.Printf("enrich: %s", warnings[len(warnings)-1])
					provider = inf.fallback
					score, err = provider.Score(ctx, reprs[i], reprs[j])
				}
				if err != nil {
					warnings = append(warnings, fmt.Sprintf("score %s vs %s: %v", a.ID, b.ID, err))
					continue
				}
			}

			if score >= threshold {
				edges = append(edges, InferredEdge{
					SourceID:  a.ID,
					TargetID:  b.ID,
					Score:     score,
					Provider:  provider.Name(),
					Threshold: threshold,
				})
			}
		}
	}
	return edges, warnings, nil
}

// ApplyEdges writes the proposed edges as one-directional similar_to
// relationships on the source side only. similar_to is conceptually its own
// inverse, but this pass deliberately does not mirror it: callers needing
// symmetry apply both orderings. Edges carry auto_embedding provenance plus
// the provider and threshold used, for later audit and rollback. With
// dryRun set, nothing is written and the would-be count is returned.
func (inf *EdgeInferrer) ApplyEdges(edges []InferredEdge, dryRun bool) (int, []string) {
	applied := 0
	var errs []string

	for _, edge := range edges {
		source, err := inf.store.Load(edge.SourceID)
		if err != nil {
			errs = append(errs, fmt.Sprintf("load %s: %v", edge.SourceID, err))
			continue
		}
		if source.RelationshipTo(edge.TargetID) != nil {
			continue // dedup: applying the same edge twice is a no-op
		}
		if dryRun {
			applied++
			continue
		}

		source.Relationships = append(source.Relationships, types.Relationship{
			Type:         types.RelSimilarTo,
			Target:       edge.TargetID,
			Confidence:   edge.Score,
			Source:       types.SourceAutoEmbedding,
			LastVerified: time.Now().UTC().Format("2006-01-02"),
			Metadata: map[string]interface{}{
				"model":     edge.Provider,
				"threshold": edge.Threshold,
			},
		})

		event := types.NewEvent(types.EventRelationshipAdded, inf.actor,
			fmt.Sprintf("inferred similar_to -> %s (score %.3f)", edge.TargetID, edge.Score),
			map[string]interface{}{
				"relationship_type": types.RelSimilarTo,
				"target":            edge.TargetID,
				"source":            types.SourceAutoEmbedding,
			})
		if err := inf.store.Commit(source, event); err != nil {
			errs = append(errs, fmt.Sprintf("commit %s: %v", edge.SourceID, err))
			continue
		}
		applied++
	}
	return applied, errs
}
