package enrich

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/weaver/internal/similarity"
	"github.com/scrypster/weaver/internal/store"
	"github.com/scrypster/weaver/pkg/types"
)

// scriptedProvider returns fixed scores keyed by the pair of inputs, or a
// fixed error for every call.
type scriptedProvider struct {
	score float64
	err   error
	calls int
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Score(_ context.Context, _, _ string) (float64, error) {
	p.calls++
	if p.err != nil {
		return 0, p.err
	}
	return p.score, nil
}

func newInferrerFixture(t *testing.T) (*store.Store, []*types.Entity) {
	t.Helper()
	root := t.TempDir()
	writeRecord(t, root, "entity/project/checkout", "project", "Checkout", "The checkout payment flow.\n")
	writeRecord(t, root, "entity/project/payments", "project", "Payments", "The payments checkout flow.\n")
	writeRecord(t, root, "entity/team/search", "team", "Search Guild", "Unrelated search topics.\n")

	s, err := store.New(root)
	require.NoError(t, err)
	entities, _, err := s.Scan(context.Background())
	require.NoError(t, err)
	return s, entities
}

func TestScanForEdges_Threshold(t *testing.T) {
	s, entities := newInferrerFixture(t)
	inferrer := NewEdgeInferrer(s, &scriptedProvider{score: 0.8}, "test")

	edges, warnings, err := inferrer.ScanForEdges(context.Background(), entities, 0.75, 0)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Len(t, edges, 3, "all pairs score above threshold")

	edges, _, err = inferrer.ScanForEdges(context.Background(), entities, 0.9, 0)
	require.NoError(t, err)
	assert.Empty(t, edges, "no pair reaches 0.9")
}

func TestScanForEdges_SkipsRelatedPairs(t *testing.T) {
	s, entities := newInferrerFixture(t)

	// Relate checkout -> payments; the pair must be skipped in either order.
	checkout, err := s.Load("entity/project/checkout")
	require.NoError(t, err)
	checkout.Relationships = append(checkout.Relationships, types.Relationship{
		Type: types.RelSimilarTo, Target: "entity/project/payments", Source: types.SourceManual,
	})
	require.NoError(t, s.Save(checkout))

	entities, _, err = s.Scan(context.Background())
	require.NoError(t, err)

	inferrer := NewEdgeInferrer(s, &scriptedProvider{score: 0.99}, "test")
	edges, _, err := inferrer.ScanForEdges(context.Background(), entities, 0.75, 0)
	require.NoError(t, err)

	for _, e := range edges {
		related := (e.SourceID == "entity/project/checkout" && e.TargetID == "entity/project/payments") ||
			(e.SourceID == "entity/project/payments" && e.TargetID == "entity/project/checkout")
		assert.False(t, related, "already-related pair proposed again")
	}
	assert.Len(t, edges, 2)
}

func TestScanForEdges_Limit(t *testing.T) {
	s, entities := newInferrerFixture(t)
	inferrer := NewEdgeInferrer(s, &scriptedProvider{score: 0.9}, "test")

	edges, _, err := inferrer.ScanForEdges(context.Background(), entities, 0.75, 1)
	require.NoError(t, err)
	assert.Len(t, edges, 1)
}

func TestScanForEdges_DegradesToFallback(t *testing.T) {
	s, entities := newInferrerFixture(t)
	broken := &scriptedProvider{err: similarity.ErrBackendUnavailable}
	inferrer := NewEdgeInferrer(s, broken, "test")

	edges, warnings, err := inferrer.ScanForEdges(context.Background(), entities, 0.3, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, broken.calls, "backend is abandoned after the first failure")
	assert.NotEmpty(t, warnings, "degradation is reported, never silent")

	// The Jaccard fallback scores the two near-identical project bodies.
	found := false
	for _, e := range edges {
		if e.Provider == "jaccard-text" {
			found = true
		}
	}
	assert.True(t, found, "fallback provider produced the edges")
}

func TestApplyEdges(t *testing.T) {
	s, _ := newInferrerFixture(t)
	inferrer := NewEdgeInferrer(s, nil, "test")

	edges := []InferredEdge{{
		SourceID:  "entity/project/checkout",
		TargetID:  "entity/project/payments",
		Score:     0.82,
		Provider:  "jaccard-text",
		Threshold: 0.75,
	}}

	applied, errs := inferrer.ApplyEdges(edges, false)
	require.Empty(t, errs)
	assert.Equal(t, 1, applied)

	checkout, err := s.Load("entity/project/checkout")
	require.NoError(t, err)
	edge := checkout.RelationshipTo("entity/project/payments")
	require.NotNil(t, edge)
	assert.Equal(t, types.RelSimilarTo, edge.Type)
	assert.Equal(t, types.SourceAutoEmbedding, edge.Source)
	assert.Equal(t, 0.82, edge.Confidence)
	assert.Equal(t, "jaccard-text", edge.Metadata["model"])
	assert.Equal(t, 0.75, edge.Metadata["threshold"])
	assert.Len(t, checkout.Events, 1)
}

func TestApplyEdges_WritesOnlySourceSide(t *testing.T) {
	s, _ := newInferrerFixture(t)
	inferrer := NewEdgeInferrer(s, nil, "test")

	_, errs := inferrer.ApplyEdges([]InferredEdge{{
		SourceID: "entity/project/checkout",
		TargetID: "entity/project/payments",
		Score:    0.82,
	}}, false)
	require.Empty(t, errs)

	payments, err := s.Load("entity/project/payments")
	require.NoError(t, err)
	assert.Nil(t, payments.RelationshipTo("entity/project/checkout"),
		"similar_to is written on the source side only")
	assert.Empty(t, payments.Events)
}

func TestApplyEdges_Dedup(t *testing.T) {
	s, _ := newInferrerFixture(t)
	inferrer := NewEdgeInferrer(s, nil, "test")

	edges := []InferredEdge{{
		SourceID: "entity/project/checkout",
		TargetID: "entity/project/payments",
		Score:    0.82,
	}}
	applied, errs := inferrer.ApplyEdges(edges, false)
	require.Empty(t, errs)
	require.Equal(t, 1, applied)

	applied, errs = inferrer.ApplyEdges(edges, false)
	require.Empty(t, errs)
	assert.Equal(t, 0, applied, "re-applying the same edge is a no-op")

	checkout, err := s.Load("entity/project/checkout")
	require.NoError(t, err)
	assert.Len(t, checkout.Relationships, 1)
	assert.Len(t, checkout.Events, 1)
}

func TestApplyEdges_DryRun(t *testing.T) {
	s, _ := newInferrerFixture(t)
	inferrer := NewEdgeInferrer(s, nil, "test")

	applied, errs := inferrer.ApplyEdges([]InferredEdge{{
		SourceID: "entity/project/checkout",
		TargetID: "entity/project/payments",
		Score:    0.82,
	}}, true)
	require.Empty(t, errs)
	assert.Equal(t, 1, applied)

	checkout, err := s.Load("entity/project/checkout")
	require.NoError(t, err)
	assert.Empty(t, checkout.Relationships, "dry run writes nothing")
}

func TestApplyEdges_MissingSource(t *testing.T) {
	s, _ := newInferrerFixture(t)
	inferrer := NewEdgeInferrer(s, nil, "test")

	applied, errs := inferrer.ApplyEdges([]InferredEdge{{
		SourceID: "entity/project/ghost",
		TargetID: "entity/project/payments",
		Score:    0.9,
	}}, false)
	assert.Equal(t, 0, applied)
	assert.Len(t, errs, 1)
}
