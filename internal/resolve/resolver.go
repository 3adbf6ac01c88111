package resolve

import (
	"context"
	"strings"

	"github.com/scrypster/weaver/internal/match"
	"github.com/scrypster/weaver/internal/store"
	"github.com/scrypster/weaver/pkg/types"
)

// Resolver turns free-form name strings into canonical entity IDs. It caches
// one Index per batch; Invalidate discards it so the next call rebuilds from
// the files. The cache is held explicitly here, not in package state, so
// concurrent tests and sequential runs never see each other's index.
type Resolver struct {
	store   *store.Store
	matcher *match.Matcher

	index    *Index
	entities []*types.Entity
}

// NewResolver creates a resolver over a store.
func NewResolver(s *store.Store, m *match.Matcher) *Resolver {
	return &Resolver{store: s, matcher: m}
}

// BuildIndex scans the collection once and builds the alias index and
// entity-type cache. Idempotent within a batch: repeated calls reuse the
// cached index until Invalidate.
func (r *Resolver) BuildIndex(ctx context.Context) (*Index, error) {
	if r.index != nil {
		return r.index, nil
	}
	entities, _, err := r.store.Scan(ctx)
	if err != nil {
		return nil, err
	}
	r.entities = entities
	r.index = BuildIndex(r.store.Root(), entities, r.matcher)
	return r.index, nil
}

// Entities returns the records parsed during the last index build.
func (r *Resolver) Entities() []*types.Entity {
	return r.entities
}

// Invalidate drops the cached index so the next BuildIndex rescans.
func (r *Resolver) Invalidate() {
	r.index = nil
	r.entities = nil
}

// Resolve maps text onto an entity ID. It tries, in order: the text as a
// literal entity ID, an exact normalized alias lookup, and finally a
// substring scan over all indexed aliases.
//
// The substring fallback is a greedy, order-dependent scan: the first alias
// (in sorted order) containing the query, or contained by it, wins. That is
// deterministic but not globally optimal; a longer, better-matching alias
// later in the order loses. Known limitation, kept for predictability.
func (r *Resolver) Resolve(ctx context.Context, text string) (string, bool, error) {
	idx, err := r.BuildIndex(ctx)
	if err != nil {
		return "", false, err
	}

	if strings.HasPrefix(text, "entity/") && idx.HasEntity(text) {
		return text, true, nil
	}

	normalized := r.matcher.Normalize(text)
	if len(normalized) < match.MinMeaningfulLength {
		return "", false, nil
	}

	if id, ok := idx.Lookup(normalized); ok {
		return id, true, nil
	}

	for _, alias := range idx.Aliases() {
		if strings.Contains(alias, normalized) || strings.Contains(normalized, alias) {
			id, _ := idx.Lookup(alias)
			return id, true, nil
		}
	}
	return "", false, nil
}

// EntityPath resolves an ID or alias and returns the backing record
// location. The boolean is false when nothing resolves.
func (r *Resolver) EntityPath(ctx context.Context, idOrAlias string) (string, bool, error) {
	id, ok, err := r.Resolve(ctx, idOrAlias)
	if err != nil || !ok {
		return "", ok, err
	}
	return r.store.Path(id), true, nil
}
