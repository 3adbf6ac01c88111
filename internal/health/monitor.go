// Package health computes aggregate graph metrics over the entity
// collection: coverage, density, the orphan set, and connectivity rankings.
// Analysis is a pure read: a single full scan with no side effects, and
// unparseable records are skipped rather than aborting the pass.
package health

import (
	"context"
	"sort"

	"github.com/scrypster/weaver/internal/store"
	"github.com/scrypster/weaver/pkg/types"
)

// Density weighting: 0.4 * coverage + 0.6 * min(avg/3, 1). Three average
// relationships per entity saturate the depth term, so a graph where every
// entity carries three edges scores 1.0.
const (
	densityCoverageWeight = 0.4
	densityDepthWeight    = 0.6
	densitySaturationAvg  = 3.0
)

// ConnectivityEntry ranks one entity by total degree (outgoing + incoming).
type ConnectivityEntry struct {
	ID     string `json:"id"`
	Degree int    `json:"degree"`
}

// Report is the result of one graph health analysis.
type Report struct {
	TotalEntities int            `json:"total_entities"`
	ByType        map[string]int `json:"by_type"`

	// Outgoing maps entity ID to its outgoing-edge targets; Incoming is
	// the inversion of Outgoing over the whole collection.
	Outgoing map[string][]string `json:"-"`
	Incoming map[string][]string `json:"-"`

	// Orphans lists entities fully disconnected in both directions:
	// zero outgoing edges and the target of zero edges from any other
	// entity.
	Orphans     []string `json:"orphans"`
	OrphanCount int      `json:"orphan_entities"`

	// Coverage is the fraction of entities with at least one outgoing
	// edge; AvgRelationships is the mean outgoing-edge count.
	Coverage         float64 `json:"relationship_coverage"`
	AvgRelationships float64 `json:"avg_relationships"`

	// DensityScore blends coverage (breadth) and average relationship
	// count (depth) into [0,1].
	DensityScore float64 `json:"density_score"`

	// Connectivity ranks entities by total degree, descending.
	Connectivity []ConnectivityEntry `json:"connectivity"`

	// InferredEdges counts edges whose provenance marks them as
	// automatically inferred.
	InferredEdges int `json:"inferred_edges"`

	ParseErrors int `json:"parse_errors"`
}

// Monitor computes health reports over a store.
type Monitor struct {
	store *store.Store
}

// NewMonitor creates a monitor.
func NewMonitor(s *store.Store) *Monitor {
	return &Monitor{store: s}
}

// Analyze scans the collection once and computes the full report.
func (m *Monitor) Analyze(ctx context.Context) (*Report, error) {
	entities, scan, err := m.store.Scan(ctx)
	if err != nil {
		return nil, err
	}
	report := Compute(entities)
	report.ParseErrors = scan.ParseErrors
	return report, nil
}

// Compute derives the report from an already-loaded entity set. Split from
// Analyze so the orchestrator can reuse one scan for before/after deltas.
func Compute(entities []*types.Entity) *Report {
	report := &Report{
		ByType:   make(map[string]int),
		Outgoing: make(map[string][]string),
		Incoming: make(map[string][]string),
	}
	report.TotalEntities = len(entities)

	totalEdges := 0
	withOutgoing := 0

	for _, e := range entities {
		report.ByType[e.KnownType()]++
		if len(e.Relationships) > 0 {
			withOutgoing++
		}
		for _, rel := range e.Relationships {
			report.Outgoing[e.ID] = append(report.Outgoing[e.ID], rel.Target)
			if rel.Target != e.ID {
				report.Incoming[rel.Target] = append(report.Incoming[rel.Target], e.ID)
			}
			if rel.IsInferred() {
				report.InferredEdges++
			}
			totalEdges++
		}
	}

	for _, e := range entities {
		if len(report.Outgoing[e.ID]) == 0 && len(report.Incoming[e.ID]) == 0 {
			report.Orphans = append(report.Orphans, e.ID)
		}
	}
	sort.Strings(report.Orphans)
	report.OrphanCount = len(report.Orphans)

	if report.TotalEntities > 0 {
		report.Coverage = float64(withOutgoing) / float64(report.TotalEntities)
		report.AvgRelationships = float64(totalEdges) / float64(report.TotalEntities)
	}
	report.DensityScore = DensityScore(report.Coverage, report.AvgRelationships)

	report.Connectivity = make([]ConnectivityEntry, 0, len(entities))
	for _, e := range entities {
		report.Connectivity = append(report.Connectivity, ConnectivityEntry{
			ID:     e.ID,
			Degree: len(report.Outgoing[e.ID]) + len(report.Incoming[e.ID]),
		})
	}
	sort.Slice(report.Connectivity, func(i, j int) bool {
		if report.Connectivity[i].Degree != report.Connectivity[j].Degree {
			return report.Connectivity[i].Degree > report.Connectivity[j].Degree
		}
		return report.Connectivity[i].ID < report.Connectivity[j].ID
	})

	return report
}

// DensityScore combines breadth (coverage) and depth (average relationships
// per entity, saturating at 3) into [0,1]. The empty graph scores 0.
func DensityScore(coverage, avgRelationships float64) float64 {
	depth := avgRelationships / densitySaturationAvg
	if depth > 1.0 {
		depth = 1.0
	}
	if depth < 0 {
		depth = 0
	}
	if coverage < 0 {
		coverage = 0
	}
	if coverage > 1.0 {
		coverage = 1.0
	}
	score := densityCoverageWeight*coverage + densityDepthWeight*depth
	if score > 1.0 {
		score = 1.0
	}
	if score < 0 {
		score = 0
	}
	return score
}
