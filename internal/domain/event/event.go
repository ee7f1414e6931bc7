// Package event defines the workflow audit events emitted when sheets
// and advance requests move through their lifecycles. Events are written
// to the structured log; they are not a persistence mechanism.
package event

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event records one workflow transition for the audit log.
type Event struct {
	ID       string                 `json:"id"`
	Type     Type                   `json:"type"`
	EntityID string                 `json:"entity_id"`
	RefNo    string                 `json:"ref_no"`
	ActorID  string                 `json:"actor_id"`
	Payload  map[string]interface{} `json:"payload,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// New creates an event with a generated id.
func New(eventType Type, entityID, refNo, actorID string) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		EntityID:  entityID,
		RefNo:     refNo,
		ActorID:   actorID,
		Timestamp: time.Now().UTC(),
	}
}

// With adds one payload field and returns the event for chaining.
func (e *Event) With(key string, value interface{}) *Event {
	if e.Payload == nil {
		e.Payload = make(map[string]interface{})
	}
	e.Payload[key] = value
	return e
}

// Emit writes the event to the audit log.
func (e *Event) Emit(logger *zap.Logger) {
	logger.Info("Workflow event",
		zap.String("event_id", e.ID),
		zap.String("event_type", e.Type.String()),
		zap.String("entity_id", e.EntityID),
		zap.String("ref_no", e.RefNo),
		zap.String("actor_id", e.ActorID),
		zap.Any("payload", e.Payload),
		zap.Time("at", e.Timestamp))
}

func (e *Event) String() string {
	return fmt.Sprintf("%s[%s %s]", e.Type, e.EntityID, e.RefNo)
}
