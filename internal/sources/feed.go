// Package sources implements the external-source collaborators at their
// interface boundary: HTTP feeds (Jira, GitHub, Slack, Google Docs
// exporters) that supply raw text items about entities. Each feed is a
// MentionSource; the graph core only ever sees the candidates extracted
// from the fetched text.
package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/scrypster/weaver/internal/enrich"
	"github.com/scrypster/weaver/internal/resolve"
	"github.com/scrypster/weaver/pkg/types"
)

// Item is one raw text record supplied by a feed about an entity.
type Item struct {
	EntityID  string `json:"entity_id"`
	Text      string `json:"text"`
	Reference string `json:"reference,omitempty"` // ticket key, PR URL, doc id…
}

type feedResponse struct {
	Items []Item `json:"items"`
}

// FeedConfig configures one external feed.
type FeedConfig struct {
	// Provenance tags edges created from this feed (jira, github, slack,
	// gdocs).
	Provenance string

	// URL is the feed endpoint; items for one entity are fetched with
	// ?entity=<id>.
	URL string

	// RequestsPerSecond limits fetches (default 2).
	RequestsPerSecond float64

	// Timeout bounds each HTTP request (default 15s).
	Timeout time.Duration
}

// Feed fetches raw text items about entities from one external endpoint and
// extracts mention candidates from them. Fetches are rate limited and
// breaker-protected; a feed outage fails only this source's extraction for
// the affected entities, recorded by the orchestrator as stage errors.
type Feed struct {
	cfg      FeedConfig
	client   *http.Client
	limiter  *rate.Limiter
	breaker  *gobreaker.CircuitBreaker
	resolver *resolve.Resolver
}

// NewFeed creates a feed source. resolver supplies the batch-scoped alias
// index at extraction time.
func NewFeed(cfg FeedConfig, resolver *resolve.Resolver) *Feed {
	if cfg.RequestsPerSecond == 0 {
		cfg.RequestsPerSecond = 2
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Feed{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "feed-" + cfg.Provenance,
			Timeout: 30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
		}),
		resolver: resolver,
	}
}

// Name implements enrich.MentionSource.
func (f *Feed) Name() string {
	return f.cfg.Provenance
}

// ExtractCandidates implements enrich.MentionSource: it fetches the feed's
// items for the entity and scans each item's text for mentions of other
// entities, tagging candidates with the feed's provenance.
func (f *Feed) ExtractCandidates(ctx context.Context, entity *types.Entity) ([]enrich.Candidate, error) {
	index, err := f.resolver.BuildIndex(ctx)
	if err != nil {
		return nil, err
	}

	items, err := f.fetch(ctx, entity.ID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, nil
	}

	extractor := enrich.NewMentionExtractor(index)
	existing := make(map[string]bool, len(entity.Relationships))
	for _, rel := range entity.Relationships {
		existing[rel.Target] = true
	}

	var candidates []enrich.Candidate
	seen := make(map[string]bool)
	for _, item := range items {
		for _, m := range extractor.ExtractMentions(item.Text, entity.ID, existing) {
			if seen[m.TargetID] {
				continue
			}
			seen[m.TargetID] = true
			candidates = append(candidates, enrich.Candidate{
				TargetID:   m.TargetID,
				Context:    m.Context,
				Confidence: enrich.CalculateConfidence(m.Context),
				Provenance: f.cfg.Provenance,
			})
		}
	}
	if len(candidates) > 0 {
		log.Printf("sources: %s proposed %d candidate(s) for %s", f.cfg.Provenance, len(candidates), entity.ID)
	}
	return candidates, nil
}

// fetch retrieves the feed items for one entity.
func (f *Feed) fetch(ctx context.Context, entityID string) ([]Item, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	result, err := f.breaker.Execute(func() (interface{}, error) {
		endpoint := f.cfg.URL + "?entity=" + url.QueryEscape(entityID)
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		resp, err := f.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusNotFound {
			return []Item{}, nil // feed knows nothing about this entity
		}
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return nil, fmt.Errorf("feed %s: status %d: %s", f.cfg.Provenance, resp.StatusCode, body)
		}

		var fr feedResponse
		if err := json.NewDecoder(resp.Body).Decode(&fr); err != nil {
			return nil, fmt.Errorf("feed %s: invalid response: %w", f.cfg.Provenance, err)
		}
		return fr.Items, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]Item), nil
}
