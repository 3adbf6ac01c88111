package enrich

import (
	"context"
	"regexp"
	"strings"

	"github.com/scrypster/weaver/internal/resolve"
	"github.com/scrypster/weaver/pkg/types"
)

// DefaultContextRadius is the number of characters kept on each side of a
// mention when extracting its context window.
const DefaultContextRadius = 100

// Mention-derived confidence tuning. Mention edges are heuristic; the hard
// ceiling keeps them from ever being treated as fully certain.
const (
	mentionBaseConfidence    = 0.6
	mentionKeywordBonus      = 0.05
	mentionProperNounBonus   = 0.05
	mentionConfidenceCeiling = 0.85
)

// relationshipKeywords are phrases whose presence in a mention's context
// window suggests a genuine working relationship. At most one keyword bonus
// applies regardless of how many phrases match.
var relationshipKeywords = []string{
	"works with", "working with", "works on", "manages", "managed by",
	"owns", "owned by", "team", "leads", "led by", "reports to",
	"collaborates", "maintains", "member of", "part of", "responsible for",
}

// properNounPattern is a heuristic signal that the context names specific
// people or projects rather than generic prose.
var properNounPattern = regexp.MustCompile(`\b[A-Z][a-z]+\b`)

// Mention is one alias occurrence of a target entity inside a source
// entity's free text.
type Mention struct {
	TargetID string
	Context  string
}

// MentionExtractor scans free text for entity mentions using the alias
// index of the current batch.
type MentionExtractor struct {
	index         *resolve.Index
	contextRadius int
}

// NewMentionExtractor creates an extractor over a built alias index.
func NewMentionExtractor(index *resolve.Index) *MentionExtractor {
	return &MentionExtractor{index: index, contextRadius: DefaultContextRadius}
}

// ExtractMentions finds entity mentions in bodyText. For each (alias,
// target) pair in the index it skips self-mentions, targets that are already
// outgoing-relationship targets of the source, and targets already matched
// earlier in this scan: at most one proposal per target per body, first
// matching alias wins. Matching is a word-boundary, case-insensitive search.
func (x *MentionExtractor) ExtractMentions(bodyText, sourceEntityID string, existingTargets map[string]bool) []Mention {
	if strings.TrimSpace(bodyText) == "" {
		return nil
	}

	lowered := strings.ToLower(bodyText)
	matched := make(map[string]bool)
	var mentions []Mention

	for _, alias := range x.index.Aliases() {
		targetID, _ := x.index.Lookup(alias)
		if targetID == sourceEntityID || matched[targetID] || existingTargets[targetID] {
			continue
		}

		pattern, err := regexp.Compile(`\b` + regexp.QuoteMeta(alias) + `\b`)
		if err != nil {
			continue
		}
		loc := pattern.FindStringIndex(lowered)
		if loc == nil {
			continue
		}

		matched[targetID] = true
		mentions = append(mentions, Mention{
			TargetID: targetID,
			Context:  x.contextWindow(bodyText, loc[0], loc[1]),
		})
	}
	return mentions
}

// contextWindow clips a fixed character radius around the match to the text
// bounds. Indexes come from the lowercased text; for the ASCII-dominant
// bodies this tool handles they line up with the original.
func (x *MentionExtractor) contextWindow(text string, start, end int) string {
	lo := start - x.contextRadius
	if lo < 0 {
		lo = 0
	}
	hi := end + x.contextRadius
	if hi > len(text) {
		hi = len(text)
	}
	return strings.TrimSpace(text[lo:hi])
}

// CalculateConfidence scores a mention from its context window: base 0.6,
// +0.05 if any relationship keyword appears (one bonus at most), +0.05 for a
// capitalized-word proper-noun signal, hard ceiling 0.85.
func CalculateConfidence(context string) float64 {
	confidence := mentionBaseConfidence

	loweredContext := strings.ToLower(context)
	for _, keyword := range relationshipKeywords {
		if strings.Contains(loweredContext, keyword) {
			confidence += mentionKeywordBonus
			break
		}
	}

	if properNounPattern.MatchString(context) {
		confidence += mentionProperNounBonus
	}

	if confidence > mentionConfidenceCeiling {
		confidence = mentionConfidenceCeiling
	}
	return confidence
}

// BodySource adapts the mention extractor to the MentionSource interface:
// candidates are mentions found in the entity's own body text, tagged with
// body_extraction provenance.
type BodySource struct {
	extractor *MentionExtractor
}

// NewBodySource creates the body-text mention source.
func NewBodySource(index *resolve.Index) *BodySource {
	return &BodySource{extractor: NewMentionExtractor(index)}
}

// Name implements MentionSource.
func (s *BodySource) Name() string {
	return "body"
}

// ExtractCandidates implements MentionSource.
func (s *BodySource) ExtractCandidates(_ context.Context, entity *types.Entity) ([]Candidate, error) {
	existing := make(map[string]bool, len(entity.Relationships))
	for _, rel := range entity.Relationships {
		existing[rel.Target] = true
	}

	mentions := s.extractor.ExtractMentions(entity.Body, entity.ID, existing)
	candidates := make([]Candidate, 0, len(mentions))
	for _, m := range mentions {
		candidates = append(candidates, Candidate{
			TargetID:   m.TargetID,
			Context:    m.Context,
			Confidence: CalculateConfidence(m.Context),
			Provenance: types.SourceBodyExtraction,
		})
	}
	return candidates, nil
}
