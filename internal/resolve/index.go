// Package resolve maps arbitrary name strings onto canonical entity IDs.
// The alias index is a batch-scoped, derived structure: it is rebuilt per
// enrichment run from the entity files (plus an optional precomputed
// registry) and never persisted as a source of truth.
package resolve

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/scrypster/weaver/internal/match"
	"github.com/scrypster/weaver/pkg/types"
)

// RegistryFile is the optional precomputed alias index at the collection
// root. Its mappings are merged before the entity scan, so they win every
// alias collision.
const RegistryFile = "registry.yaml"

// Collision records an alias claimed by more than one entity. The first
// writer keeps the alias; the claim is reported, not silently dropped.
type Collision struct {
	Alias  string // normalized form
	Kept   string // entity ID that holds the mapping
	Dropped string // entity ID whose claim was rejected
}

// Index is the alias index for one enrichment run: normalized alias string
// to canonical entity ID, plus a per-run entity-type cache.
type Index struct {
	aliases    map[string]string
	types      map[string]string
	collisions []Collision

	// sortedAliases gives deterministic iteration order. Resolution and
	// mention scanning are greedy first-match scans; sorting keeps their
	// results stable across runs.
	sortedAliases []string
}

// registry mirrors the registry.yaml layout.
type registry struct {
	Aliases map[string]string `yaml:"aliases"`
}

// BuildIndex constructs the alias index by merging (a) the optional registry
// file at root and (b) every entity's name and aliases, in that order.
// Later claims never overwrite earlier mappings (first writer wins);
// collisions are recorded and logged once. Names shorter than the minimum
// meaningful length are not indexed.
func BuildIndex(root string, entities []*types.Entity, matcher *match.Matcher) *Index {
	idx := &Index{
		aliases: make(map[string]string),
		types:   make(map[string]string),
	}

	if reg, err := loadRegistry(root); err != nil {
		log.Printf("resolve: ignoring unreadable %s: %v", RegistryFile, err)
	} else if reg != nil {
		// Sorted so registry-internal collisions resolve deterministically.
		keys := make([]string, 0, len(reg.Aliases))
		for alias := range reg.Aliases {
			keys = append(keys, alias)
		}
		sort.Strings(keys)
		for _, alias := range keys {
			idx.claim(alias, reg.Aliases[alias], matcher)
		}
	}

	for _, e := range entities {
		idx.types[e.ID] = e.KnownType()
		for _, name := range e.AllNames() {
			idx.claim(name, e.ID, matcher)
		}
	}

	idx.sortedAliases = make([]string, 0, len(idx.aliases))
	for alias := range idx.aliases {
		idx.sortedAliases = append(idx.sortedAliases, alias)
	}
	sort.Strings(idx.sortedAliases)

	if n := len(idx.collisions); n > 0 {
		log.Printf("resolve: %d alias collision(s) during index build (first writer kept)", n)
	}
	return idx
}

// claim maps one alias to an entity ID, first writer wins.
func (idx *Index) claim(alias, id string, matcher *match.Matcher) {
	normalized := matcher.Normalize(alias)
	if len(normalized) < match.MinMeaningfulLength {
		return
	}
	if existing, ok := idx.aliases[normalized]; ok {
		if existing != id {
			idx.collisions = append(idx.collisions, Collision{
				Alias:   normalized,
				Kept:    existing,
				Dropped: id,
			})
		}
		return
	}
	idx.aliases[normalized] = id
}

// Lookup returns the entity ID for a normalized alias.
func (idx *Index) Lookup(normalizedAlias string) (string, bool) {
	id, ok := idx.aliases[normalizedAlias]
	return id, ok
}

// EntityType returns the cached type for an entity ID, or types.EntityUnknown.
func (idx *Index) EntityType(id string) string {
	if t, ok := idx.types[id]; ok {
		return t
	}
	return types.EntityUnknown
}

// HasEntity reports whether the ID was seen during the index build.
func (idx *Index) HasEntity(id string) bool {
	_, ok := idx.types[id]
	return ok
}

// Aliases returns all normalized aliases in sorted order.
func (idx *Index) Aliases() []string {
	return idx.sortedAliases
}

// Collisions returns the alias collisions observed during the build.
func (idx *Index) Collisions() []Collision {
	return idx.collisions
}

// Len returns the number of indexed aliases.
func (idx *Index) Len() int {
	return len(idx.aliases)
}

func loadRegistry(root string) (*registry, error) {
	path := filepath.Join(root, RegistryFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var reg registry
	if err := yaml.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("invalid registry: %w", err)
	}
	return &reg, nil
}
