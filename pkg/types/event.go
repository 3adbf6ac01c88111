package types

import (
	"time"

	"github.com/google/uuid"
)

// Audit event types recorded on entities.
const (
	EventCreated             = "created"
	EventUpdated             = "updated"
	EventRelationshipAdded   = "relationship_added"
	EventRelationshipUpdated = "relationship_updated"
	EventAliasAdded          = "alias_added"
)

// Event is one entry in an entity's append-only audit log. Events are never
// mutated or reordered after being appended.
type Event struct {
	EventID   string                 `json:"event_id" yaml:"event_id"`
	Timestamp time.Time              `json:"timestamp" yaml:"timestamp"`
	Type      string                 `json:"type" yaml:"type"`
	Actor     string                 `json:"actor,omitempty" yaml:"actor,omitempty"`
	Changes   map[string]interface{} `json:"changes,omitempty" yaml:"changes,omitempty"`
	Message   string                 `json:"message,omitempty" yaml:"message,omitempty"`
}

// NewEvent creates an audit event with a fresh ID and the current time.
func NewEvent(eventType, actor, message string, changes map[string]interface{}) Event {
	return Event{
		EventID:   "evt:" + uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Type:      eventType,
		Actor:     actor,
		Changes:   changes,
		Message:   message,
	}
}
