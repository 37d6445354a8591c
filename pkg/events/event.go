package events

import (
	"context"
	"time"
)

const (
	LiveChatRequested = "LIVE_CHAT_REQUESTED"
	LiveChatConnected = "LIVE_CHAT_CONNECTED"
	LiveChatEnded     = "LIVE_CHAT_ENDED"
	FormSubmitted     = "FORM_SUBMITTED"
)

// Event defines the contract for all chat events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "LIVE_CHAT_REQUESTED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// SessionID reads the session_id field every chat event carries.
func SessionID(e Event) string {
	id, _ := e.Payload()["session_id"].(string)
	return id
}

// Publisher sends events to the bus.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// NopPublisher drops every event. Used when no bus is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
