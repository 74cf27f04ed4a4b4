package interfaces

import (
	"context"

	"github.com/iamwebwiz/smart-book-discovery-agent/internal/models"
)

// DiscoveryGateway opens sessions against the external book source
type DiscoveryGateway interface {
	// Open acquires a session (browser or HTTP client) owned by a single job
	Open(ctx context.Context) (DiscoverySession, error)
}

// DiscoverySession is a job-scoped handle on the book source.
// Close must be called on every exit path.
type DiscoverySession interface {
	// Search returns the books listed for topic, paginating up to the configured page limit
	// and stopping at the first page that yields no books
	Search(ctx context.Context, topic string) ([]models.Book, error)

	// FetchDetail returns an extended description for book.
	// Callers treat errors as non-fatal and keep the listing description.
	FetchDetail(ctx context.Context, book models.Book) (string, error)

	// Close releases the session
	Close() error
}

// EnrichmentGateway annotates a book with a summary and relevance score for a topic
type EnrichmentGateway interface {
	Score(ctx context.Context, book models.Book, topic string) (models.ScoredBook, error)
}

// DeliveryGateway makes one best-effort send of a finished result.
// It never returns an error; failures are logged and reported as false.
type DeliveryGateway interface {
	Send(ctx context.Context, result models.JobResult) bool
}
