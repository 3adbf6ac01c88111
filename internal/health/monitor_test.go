package health

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/weaver/internal/store"
	"github.com/scrypster/weaver/pkg/types"
)

func entityWithEdges(id, entityType string, targets ...string) *types.Entity {
	e := &types.Entity{ID: id, Type: entityType, Name: id}
	for _, target := range targets {
		e.Relationships = append(e.Relationships, types.Relationship{
			Type:   types.RelMentions,
			Target: target,
			Source: types.SourceBodyExtraction,
		})
	}
	return e
}

func TestCompute_EmptyGraph(t *testing.T) {
	report := Compute(nil)
	assert.Equal(t, 0, report.TotalEntities)
	assert.Equal(t, 0, report.OrphanCount)
	assert.Equal(t, 0.0, report.Coverage)
	assert.Equal(t, 0.0, report.DensityScore, "empty graph scores zero, not NaN")
}

func TestCompute_Orphans(t *testing.T) {
	entities := []*types.Entity{
		entityWithEdges("entity/person/a", "person", "entity/project/b"),
		entityWithEdges("entity/project/b", "project"),
		entityWithEdges("entity/team/c", "team"),
	}
	report := Compute(entities)

	// b has no outgoing edges but is a target, so only c is an orphan.
	assert.Equal(t, []string{"entity/team/c"}, report.Orphans)
	assert.Equal(t, 1, report.OrphanCount)
}

func TestCompute_SelfEdgeStillOrphanTarget(t *testing.T) {
	// A self-edge gives outgoing degree but no incoming from anyone else;
	// the entity is not an orphan because it has an outgoing edge.
	entities := []*types.Entity{
		entityWithEdges("entity/person/a", "person", "entity/person/a"),
	}
	report := Compute(entities)
	assert.Empty(t, report.Orphans)
}

func TestCompute_Scenario(t *testing.T) {
	// Ten entities: four connected in a small cluster, six disconnected.
	entities := []*types.Entity{
		entityWithEdges("entity/person/a", "person", "entity/project/p", "entity/team/t"),
		entityWithEdges("entity/project/p", "project", "entity/person/a"),
		entityWithEdges("entity/team/t", "team", "entity/project/p"),
		entityWithEdges("entity/system/s", "system", "entity/project/p"),
	}
	for i := 0; i < 6; i++ {
		entities = append(entities, entityWithEdges(fmt.Sprintf("entity/domain/d%d", i), "domain"))
	}

	report := Compute(entities)
	assert.Equal(t, 10, report.TotalEntities)
	assert.Equal(t, 6, report.OrphanCount)
	assert.InDelta(t, 0.4, report.Coverage, 1e-9)
	assert.InDelta(t, 0.5, report.AvgRelationships, 1e-9)
	// 0.4*0.4 + 0.6*(0.5/3)
	assert.InDelta(t, 0.26, report.DensityScore, 1e-9)

	assert.Equal(t, map[string]int{
		"person": 1, "project": 1, "team": 1, "system": 1, "domain": 6,
	}, report.ByType)

	// p has degree 4 (1 out, 3 in) and tops the ranking.
	require.NotEmpty(t, report.Connectivity)
	assert.Equal(t, "entity/project/p", report.Connectivity[0].ID)
	assert.Equal(t, 4, report.Connectivity[0].Degree)
}

func TestCompute_ConnectivityTieBreak(t *testing.T) {
	entities := []*types.Entity{
		entityWithEdges("entity/person/b", "person", "entity/person/z"),
		entityWithEdges("entity/person/a", "person", "entity/person/z"),
		entityWithEdges("entity/person/z", "person"),
	}
	report := Compute(entities)

	// z: degree 2; a and b tie at 1 and order by ID.
	require.Len(t, report.Connectivity, 3)
	assert.Equal(t, "entity/person/z", report.Connectivity[0].ID)
	assert.Equal(t, "entity/person/a", report.Connectivity[1].ID)
	assert.Equal(t, "entity/person/b", report.Connectivity[2].ID)
}

func TestCompute_InferredEdges(t *testing.T) {
	a := entityWithEdges("entity/project/a", "project")
	a.Relationships = []types.Relationship{
		{Type: types.RelSimilarTo, Target: "entity/project/b", Source: types.SourceAutoEmbedding},
		{Type: types.RelOwnedBy, Target: "entity/team/t", Source: types.SourceManual},
	}
	report := Compute([]*types.Entity{a})
	assert.Equal(t, 1, report.InferredEdges)
}

func TestDensityScore(t *testing.T) {
	assert.Equal(t, 0.0, DensityScore(0, 0))
	assert.Equal(t, 1.0, DensityScore(1, 3))
	assert.Equal(t, 1.0, DensityScore(1, 10), "depth saturates at three edges per entity")
	assert.InDelta(t, 0.4, DensityScore(1, 0), 1e-9)
	assert.InDelta(t, 0.6, DensityScore(0, 3), 1e-9)

	for _, coverage := range []float64{0, 0.25, 0.5, 1} {
		for _, avg := range []float64{0, 1, 3, 50} {
			score := DensityScore(coverage, avg)
			assert.GreaterOrEqual(t, score, 0.0)
			assert.LessOrEqual(t, score, 1.0)
		}
	}
}

func TestAnalyze_CountsParseErrors(t *testing.T) {
	root := t.TempDir()
	record := "---\n$id: entity/person/jane-doe\n$type: person\nname: Jane Doe\n---\n"
	require.NoError(t, os.MkdirAll(filepath.Join(root, "person"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "person", "jane-doe.md"), []byte(record), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "person", "broken.md"), []byte("not a record"), 0o644))

	s, err := store.New(root)
	require.NoError(t, err)

	report, err := NewMonitor(s).Analyze(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.TotalEntities)
	assert.Equal(t, 1, report.ParseErrors)
}
