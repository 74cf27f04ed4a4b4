package interfaces

import "context"

// EventType represents different event types in the system
type EventType string

const (
	// EventJobStatusChanged is published after every job status transition; payload is models.Job
	EventJobStatusChanged EventType = "job_status_changed"
	// EventJobResultStored is published when a job result is stored; payload is models.JobResult
	EventJobResultStored EventType = "job_result_stored"
)

// Event represents a system event
type Event struct {
	Type    EventType
	Payload interface{}
}

// EventHandler is a function that handles events
type EventHandler func(ctx context.Context, event Event) error

// EventService manages pub/sub event bus
type EventService interface {
	// Subscribe to an event type, returns a subscription id for Unsubscribe
	Subscribe(eventType EventType, handler EventHandler) (string, error)

	// Unsubscribe removes the subscription with the given id
	Unsubscribe(eventType EventType, subscriptionID string) error

	// Publish an event to all subscribers
	Publish(ctx context.Context, event Event) error

	// PublishSync publishes event and waits for all handlers to complete
	PublishSync(ctx context.Context, event Event) error

	// Close shuts down the event service
	Close() error
}
