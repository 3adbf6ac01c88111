package enrich

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrypster/weaver/internal/match"
	"github.com/scrypster/weaver/internal/resolve"
	"github.com/scrypster/weaver/internal/store"
	"github.com/scrypster/weaver/pkg/types"
)

// writeRecord writes one minimal entity record under root. Used by the
// builder and orchestrator tests as well.
func writeRecord(t *testing.T, root, id, entityType, name, body string, aliases ...string) {
	t.Helper()
	rel := filepath.FromSlash(strings.TrimPrefix(id, "entity/")) + ".md"
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))

	content := fmt.Sprintf("---\n$id: %s\n$type: %s\nname: %s\n", id, entityType, name)
	if len(aliases) > 0 {
		content += "$aliases:\n"
		for _, a := range aliases {
			content += "  - " + a + "\n"
		}
	}
	content += "---\n" + body
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func buildTestIndex(t *testing.T, root string) (*store.Store, *resolve.Index, []*types.Entity) {
	t.Helper()
	s, err := store.New(root)
	require.NoError(t, err)
	r := resolve.NewResolver(s, match.NewMatcher(match.Options{}))
	idx, err := r.BuildIndex(context.Background())
	require.NoError(t, err)
	return s, idx, r.Entities()
}

func TestExtractMentions(t *testing.T) {
	root := t.TempDir()
	writeRecord(t, root, "entity/person/jane-doe", "person", "Jane Doe", "", "Jane")
	writeRecord(t, root, "entity/project/checkout", "project", "Checkout", "")
	writeRecord(t, root, "entity/team/payments", "team", "Payments Team", "")

	_, idx, _ := buildTestIndex(t, root)
	x := NewMentionExtractor(idx)

	body := "Jane is working with the checkout project this quarter."
	mentions := x.ExtractMentions(body, "entity/team/payments", nil)

	targets := map[string]bool{}
	for _, m := range mentions {
		targets[m.TargetID] = true
	}
	assert.True(t, targets["entity/person/jane-doe"])
	assert.True(t, targets["entity/project/checkout"])
	assert.Len(t, mentions, 2)
}

func TestExtractMentions_SkipsSelf(t *testing.T) {
	root := t.TempDir()
	writeRecord(t, root, "entity/project/checkout", "project", "Checkout", "")

	_, idx, _ := buildTestIndex(t, root)
	x := NewMentionExtractor(idx)

	mentions := x.ExtractMentions("The checkout flow is fine.", "entity/project/checkout", nil)
	assert.Empty(t, mentions, "an entity never mentions itself")
}

func TestExtractMentions_SkipsExistingTargets(t *testing.T) {
	root := t.TempDir()
	writeRecord(t, root, "entity/person/jane-doe", "person", "Jane Doe", "", "Jane")
	writeRecord(t, root, "entity/project/checkout", "project", "Checkout", "")

	_, idx, _ := buildTestIndex(t, root)
	x := NewMentionExtractor(idx)

	existing := map[string]bool{"entity/person/jane-doe": true}
	mentions := x.ExtractMentions("Jane built the checkout page.", "entity/team/payments", existing)

	require.Len(t, mentions, 1)
	assert.Equal(t, "entity/project/checkout", mentions[0].TargetID)
}

func TestExtractMentions_WordBoundary(t *testing.T) {
	root := t.TempDir()
	writeRecord(t, root, "entity/project/checkout", "project", "Checkout", "")

	_, idx, _ := buildTestIndex(t, root)
	x := NewMentionExtractor(idx)

	// "checkouts" must not match the "checkout" alias mid-word.
	assert.Empty(t, x.ExtractMentions("All the checkouts failed.", "entity/person/jane-doe", nil))
	assert.Len(t, x.ExtractMentions("The checkout failed.", "entity/person/jane-doe", nil), 1)
}

func TestExtractMentions_OneProposalPerTarget(t *testing.T) {
	root := t.TempDir()
	writeRecord(t, root, "entity/person/jane-doe", "person", "Jane Doe", "", "Jane")

	_, idx, _ := buildTestIndex(t, root)
	x := NewMentionExtractor(idx)

	// Both "jane" and "jane doe" match; one proposal comes out.
	mentions := x.ExtractMentions("Jane Doe, known as Jane.", "entity/team/payments", nil)
	assert.Len(t, mentions, 1)
}

func TestExtractMentions_EmptyBody(t *testing.T) {
	root := t.TempDir()
	writeRecord(t, root, "entity/person/jane-doe", "person", "Jane Doe", "")

	_, idx, _ := buildTestIndex(t, root)
	x := NewMentionExtractor(idx)

	assert.Empty(t, x.ExtractMentions("   \n\t", "entity/team/payments", nil))
}

func TestCalculateConfidence(t *testing.T) {
	// Base only: no keyword, no capitalized word.
	assert.InDelta(t, 0.6, CalculateConfidence("the checkout flow broke again"), 1e-9)

	// Keyword bonus.
	assert.InDelta(t, 0.65, CalculateConfidence("jane works with the checkout flow"), 1e-9)

	// Proper-noun bonus.
	assert.InDelta(t, 0.65, CalculateConfidence("deployed by Jane yesterday"), 1e-9)

	// Both bonuses; multiple keywords still count once.
	assert.InDelta(t, 0.7, CalculateConfidence("Jane works with and manages the team"), 1e-9)
}

func TestCalculateConfidence_Bounds(t *testing.T) {
	contexts := []string{
		"",
		"Jane leads the Payments Team and works with Checkout",
		"nothing special here",
	}
	for _, c := range contexts {
		got := CalculateConfidence(c)
		assert.GreaterOrEqual(t, got, 0.6)
		assert.LessOrEqual(t, got, 0.85)
	}
}

func TestBodySource(t *testing.T) {
	root := t.TempDir()
	writeRecord(t, root, "entity/person/jane-doe", "person", "Jane Doe", "Jane works on the checkout flow.\n", "Jane")
	writeRecord(t, root, "entity/project/checkout", "project", "Checkout", "")

	s, idx, _ := buildTestIndex(t, root)
	source := NewBodySource(idx)
	assert.Equal(t, "body", source.Name())

	jane, err := s.Load("entity/person/jane-doe")
	require.NoError(t, err)

	candidates, err := source.ExtractCandidates(context.Background(), jane)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "entity/project/checkout", candidates[0].TargetID)
	assert.Equal(t, types.SourceBodyExtraction, candidates[0].Provenance)
	assert.GreaterOrEqual(t, candidates[0].Confidence, 0.6)
	assert.LessOrEqual(t, candidates[0].Confidence, 0.85)
}
