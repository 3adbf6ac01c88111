package store

import (
	"time"

	"github.com/scrypster/weaver/pkg/types"
)

// RecomputeConfidence scores an entity's freshness and completeness in
// [0,1]. The blend rewards filled-in metadata and graph participation, and
// decays with staleness. A fully described, recently touched entity with a
// few relationships scores 1.0.
//
// Completeness (up to 0.8): base 0.2 for existing, description 0.15,
// aliases 0.1, tags 0.05, meaningful body 0.1, relationships up to 0.2.
// Freshness (up to 0.2): bucketed by age of the last update.
func RecomputeConfidence(e *types.Entity) float64 {
	score := 0.2

	if e.Description != "" {
		score += 0.15
	}
	if len(e.Aliases) > 0 {
		score += 0.1
	}
	if len(e.Tags) > 0 {
		score += 0.05
	}
	if len(e.Body) >= 80 {
		score += 0.1
	}

	relBonus := 0.05 * float64(len(e.Relationships))
	if relBonus > 0.2 {
		relBonus = 0.2
	}
	score += relBonus

	score += freshness(e.UpdatedAt)

	if score > 1.0 {
		score = 1.0
	}
	return score
}

func freshness(updated time.Time) float64 {
	if updated.IsZero() {
		return 0.0
	}
	age := time.Since(updated)
	switch {
	case age < 7*24*time.Hour:
		return 0.2
	case age < 30*24*time.Hour:
		return 0.15
	case age < 90*24*time.Hour:
		return 0.1
	case age < 365*24*time.Hour:
		return 0.05
	default:
		return 0.0
	}
}
