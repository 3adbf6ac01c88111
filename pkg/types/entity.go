package types

import (
	"strings"
	"time"
)

// Entity type constants. Types outside this list are preserved on read but
// treated as EntityUnknown for relation-type inference.
const (
	EntityPerson     = "person"
	EntityTeam       = "team"
	EntitySquad      = "squad"
	EntityProject    = "project"
	EntitySystem     = "system"
	EntityBrand      = "brand"
	EntityExperiment = "experiment"
	EntityDomain     = "domain"
	EntityFeature    = "feature"
	EntityUnknown    = "unknown"
)

// Entity lifecycle status values. Status is orthogonal to the graph core;
// enrichment never changes it.
const (
	StatusActive   = "active"
	StatusDraft    = "draft"
	StatusArchived = "archived"
)

// MinAliasLength is the minimum number of normalized characters for an alias
// or name to be considered meaningful. Shorter strings are never indexed,
// which keeps common short words from producing false mentions.
const MinAliasLength = 3

// Entity is one record in the knowledge graph: structured metadata plus a
// free-text markdown body. Entities are stored one per file; the ID is
// immutable once assigned (format: entity/<type>/<slug>).
type Entity struct {
	ID            string         `json:"id"`
	Type          string         `json:"type"`
	Version       int            `json:"version"`
	Name          string         `json:"name"`
	Description   string         `json:"description,omitempty"`
	Aliases       []string       `json:"aliases,omitempty"` // insertion order preserved, case-insensitively unique
	Relationships []Relationship `json:"relationships,omitempty"`
	Confidence    float64        `json:"confidence"` // freshness/completeness score, recomputed on enrichment writes
	Status        string         `json:"status,omitempty"`
	Tags          []string       `json:"tags,omitempty"`
	Events        []Event        `json:"events,omitempty"` // append-only audit log
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	Body          string         `json:"body,omitempty"`

	// Extensions holds producer-specific "_"-prefixed frontmatter fields
	// that the core does not interpret but must round-trip.
	Extensions map[string]interface{} `json:"extensions,omitempty"`
}

// IsValidEntityType reports whether t is one of the known entity types.
func IsValidEntityType(t string) bool {
	switch t {
	case EntityPerson, EntityTeam, EntitySquad, EntityProject, EntitySystem,
		EntityBrand, EntityExperiment, EntityDomain, EntityFeature, EntityUnknown:
		return true
	}
	return false
}

// KnownType returns the entity's type if it is a known type, EntityUnknown
// otherwise. Used by relation-type inference so unrecognized types still get
// the generic mentioned_in/mentions pair.
func (e *Entity) KnownType() string {
	if IsValidEntityType(e.Type) {
		return e.Type
	}
	return EntityUnknown
}

// RelationshipTo returns the outgoing edge to target, or nil if none exists.
// At most one edge per distinct target is allowed, so the first hit is the
// only hit.
func (e *Entity) RelationshipTo(target string) *Relationship {
	for i := range e.Relationships {
		if e.Relationships[i].Target == target {
			return &e.Relationships[i]
		}
	}
	return nil
}

// HasAlias reports whether name matches the entity's display name or one of
// its aliases, case-insensitively.
func (e *Entity) HasAlias(name string) bool {
	if strings.EqualFold(e.Name, name) {
		return true
	}
	for _, a := range e.Aliases {
		if strings.EqualFold(a, name) {
			return true
		}
	}
	return false
}

// AddAlias appends an alias preserving insertion order. Duplicates
// (case-insensitive) and empty strings are ignored. Returns true if the
// alias was added.
func (e *Entity) AddAlias(alias string) bool {
	alias = strings.TrimSpace(alias)
	if alias == "" || e.HasAlias(alias) {
		return false
	}
	e.Aliases = append(e.Aliases, alias)
	return true
}

// AllNames returns the display name followed by the aliases, in order.
func (e *Entity) AllNames() []string {
	names := make([]string, 0, len(e.Aliases)+1)
	if e.Name != "" {
		names = append(names, e.Name)
	}
	names = append(names, e.Aliases...)
	return names
}
