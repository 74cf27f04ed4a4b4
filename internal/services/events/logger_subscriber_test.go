package events

import (
	"context"
	"testing"

	"github.com/ternarybob/arbor"

	"github.com/iamwebwiz/smart-book-discovery-agent/internal/interfaces"
	"github.com/iamwebwiz/smart-book-discovery-agent/internal/models"
)

// TestNewLoggerSubscriber verifies that the logger subscriber accepts every payload shape
func TestNewLoggerSubscriber(t *testing.T) {
	subscriber := NewLoggerSubscriber(arbor.NewLogger())
	ctx := context.Background()

	events := []interfaces.Event{
		{Type: interfaces.EventJobStatusChanged, Payload: models.NewJob("job-1", "mars")},
		{Type: interfaces.EventJobResultStored, Payload: models.JobResult{JobID: "job-1"}},
		{Type: interfaces.EventJobStatusChanged, Payload: nil},
	}

	for _, event := range events {
		if err := subscriber(ctx, event); err != nil {
			t.Errorf("Expected no error, got: %v", err)
		}
	}
}

// TestSubscribeLoggerToAllEvents verifies logger is subscribed to all event types
func TestSubscribeLoggerToAllEvents(t *testing.T) {
	eventService := NewService(arbor.NewLogger())
	defer eventService.Close()

	if err := SubscribeLoggerToAllEvents(eventService, arbor.NewLogger()); err != nil {
		t.Fatalf("SubscribeLoggerToAllEvents failed: %v", err)
	}

	for _, eventType := range []interfaces.EventType{interfaces.EventJobStatusChanged, interfaces.EventJobResultStored} {
		if got := len(eventService.handlers(eventType)); got != 1 {
			t.Errorf("expected 1 subscriber for %s, got %d", eventType, got)
		}
	}
}
