package interfaces

import "context"

// EventType identifies a category of application event.
type EventType string

const (
	// EventJobCreated fires when a report job is appended to the history.
	EventJobCreated EventType = "job_created"

	// EventJobUpdated fires when a job record changes (status transition,
	// download URL, cached analysis).
	EventJobUpdated EventType = "job_updated"
)

// Event is a single application event delivered to subscribers.
type Event struct {
	Type    EventType   `json:"type"`
	Payload interface{} `json:"payload"`
}

// EventHandler processes one event.
type EventHandler func(ctx context.Context, event Event) error

// EventService is the in-process pub/sub hub. The history store publishes
// change notifications through it; the WebSocket handler subscribes and
// forwards them to UI clients.
type EventService interface {
	Subscribe(eventType EventType, handler EventHandler) error
	Publish(ctx context.Context, event Event) error
	PublishSync(ctx context.Context, event Event) error
	Close() error
}
