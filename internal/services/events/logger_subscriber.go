package events

import (
	"context"

	"github.com/ternarybob/arbor"

	"github.com/iamwebwiz/smart-book-discovery-agent/internal/interfaces"
	"github.com/iamwebwiz/smart-book-discovery-agent/internal/models"
)

// NewLoggerSubscriber creates an event handler that logs job events at debug level
func NewLoggerSubscriber(logger arbor.ILogger) interfaces.EventHandler {
	return func(ctx context.Context, event interfaces.Event) error {
		logEvent := logger.Debug().
			Str("event_type", string(event.Type))

		switch payload := event.Payload.(type) {
		case models.Job:
			logEvent = logEvent.
				Str("job_id", payload.ID).
				Str("status", string(payload.Status)).
				Str("message", payload.Message)
		case models.JobResult:
			logEvent = logEvent.
				Str("job_id", payload.JobID).
				Int("books", len(payload.Books))
		}

		logEvent.Msg("Event published")

		return nil
	}
}

// SubscribeLoggerToAllEvents subscribes the logger to all known event types
func SubscribeLoggerToAllEvents(eventService interfaces.EventService, logger arbor.ILogger) error {
	subscriber := NewLoggerSubscriber(logger)

	eventTypes := []interfaces.EventType{
		interfaces.EventJobStatusChanged,
		interfaces.EventJobResultStored,
	}

	for _, eventType := range eventTypes {
		if _, err := eventService.Subscribe(eventType, subscriber); err != nil {
			return err
		}
	}

	return nil
}
