package enrich

import (
	"fmt"
	"log"
	"time"

	"github.com/scrypster/weaver/internal/store"
	"github.com/scrypster/weaver/pkg/types"
)

// BuildResult reports the outcome of one bidirectional relationship write,
// per side. A side that already carried an edge to the other entity reports
// Created=false with no error (idempotent no-op). A side whose record could
// not be located or parsed reports Created=false with the error string set;
// partial success is possible and must be surfaced by the caller, never
// treated as full success.
type BuildResult struct {
	ForwardCreated bool
	InverseCreated bool
	ForwardError   string
	InverseError   string
}

// Partial reports whether exactly one side was written.
func (r BuildResult) Partial() bool {
	return r.ForwardCreated != r.InverseCreated &&
		(r.ForwardError != "" || r.InverseError != "")
}

// RelationshipBuilder creates and updates relationship edges through the
// entity store, enforcing bidirectionality and per-target deduplication.
type RelationshipBuilder struct {
	store *store.Store
	actor string // recorded on audit events
}

// NewRelationshipBuilder creates a builder. actor names the writer in audit
// events (e.g. "weaver-enrich").
func NewRelationshipBuilder(s *store.Store, actor string) *RelationshipBuilder {
	if actor == "" {
		actor = "weaver"
	}
	return &RelationshipBuilder{store: s, actor: actor}
}

// CreateBidirectional writes the forward edge source->target with the given
// type, and the inverse edge target->source with the type inferred from the
// (targetType, sourceType) pair. Each side deduplicates on target ID: an
// existing edge to the other entity makes that side a no-op, never an
// overwrite. Each written side costs exactly one audit event and one
// version bump. Calling again with the same arguments changes nothing.
func (b *RelationshipBuilder) CreateBidirectional(sourceID, targetID, relType string, confidence float64, provenance string, metadata map[string]interface{}) BuildResult {
	var result BuildResult

	source, err := b.store.Load(sourceID)
	if err != nil {
		result.ForwardError = fmt.Sprintf("load source %s: %v", sourceID, err)
	}
	target, err := b.store.Load(targetID)
	if err != nil {
		result.InverseError = fmt.Sprintf("load target %s: %v", targetID, err)
	}

	if source != nil {
		created, err := b.appendEdge(source, targetID, relType, confidence, provenance, metadata)
		if err != nil {
			result.ForwardError = err.Error()
		} else {
			result.ForwardCreated = created
		}
	}

	if target != nil {
		var sourceType string
		if source != nil {
			sourceType = source.KnownType()
		} else {
			sourceType = types.EntityUnknown
		}
		inverseType := types.InferRelationTypes(target.KnownType(), sourceType).Forward
		created, err := b.appendEdge(target, sourceID, inverseType, confidence, provenance, metadata)
		if err != nil {
			result.InverseError = err.Error()
		} else {
			result.InverseCreated = created
		}
	}

	if result.Partial() {
		log.Printf("enrich: partial relationship write %s <-> %s (forward=%v %q, inverse=%v %q)",
			sourceID, targetID,
			result.ForwardCreated, result.ForwardError,
			result.InverseCreated, result.InverseError)
	}
	return result
}

// appendEdge adds one outgoing edge to an entity and commits, unless an
// edge to that target already exists.
func (b *RelationshipBuilder) appendEdge(e *types.Entity, targetID, relType string, confidence float64, provenance string, metadata map[string]interface{}) (bool, error) {
	if e.RelationshipTo(targetID) != nil {
		return false, nil
	}

	e.Relationships = append(e.Relationships, types.Relationship{
		Type:         relType,
		Target:       targetID,
		Confidence:   confidence,
		Source:       provenance,
		LastVerified: time.Now().UTC().Format("2006-01-02"),
		Metadata:     metadata,
	})

	event := types.NewEvent(types.EventRelationshipAdded, b.actor,
		fmt.Sprintf("added %s -> %s", relType, targetID),
		map[string]interface{}{
			"relationship_type": relType,
			"target":            targetID,
			"source":            provenance,
		})
	if err := b.store.Commit(e, event); err != nil {
		return false, fmt.Errorf("commit %s: %v", e.ID, err)
	}
	return true, nil
}
