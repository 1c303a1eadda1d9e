package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// TypeScreeningCompleted is emitted once a screening session reaches RESULT.
const TypeScreeningCompleted = "screening_completed"

// ErrEmptyEventType is returned when an event is built without a type.
var ErrEmptyEventType = errors.New("event type cannot be empty")

// Event is a typed notification with a JSON payload.
type Event struct {
	ID        uuid.UUID       `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewEvent creates an Event of the given type with payload serialized as JSON.
func NewEvent(eventType string, payload any) (*Event, error) {
	if eventType == "" {
		return nil, ErrEmptyEventType
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:        uuid.New(),
		Type:      eventType,
		Payload:   raw,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// UnmarshalPayload decodes the event payload into v.
func (e *Event) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// ScreeningCompleted is the payload of a TypeScreeningCompleted event.
type ScreeningCompleted struct {
	SessionID     uuid.UUID `json:"session_id"`
	OperatorID    uuid.UUID `json:"operator_id"`
	OutcomeStatus string    `json:"outcome_status"`
	TriageLevel   string    `json:"triage_level,omitempty"`
}

// NewScreeningCompletedEvent wraps p in an Event.
func NewScreeningCompletedEvent(p ScreeningCompleted) (*Event, error) {
	return NewEvent(TypeScreeningCompleted, p)
}

// EventHandler reacts to events it has subscribed to.
type EventHandler interface {
	HandleEvent(ctx context.Context, event *Event) error
}

// HandlerFunc adapts a plain function to EventHandler.
type HandlerFunc func(ctx context.Context, event *Event) error

// HandleEvent calls f.
func (f HandlerFunc) HandleEvent(ctx context.Context, event *Event) error {
	return f(ctx, event)
}

// EventEmitter publishes events to whoever subscribed to their type.
type EventEmitter interface {
	EmitEvent(ctx context.Context, event *Event) error
}

// NopEmitter discards every event. Used when no background work is configured.
type NopEmitter struct{}

// EmitEvent implements EventEmitter.
func (NopEmitter) EmitEvent(context.Context, *Event) error { return nil }
