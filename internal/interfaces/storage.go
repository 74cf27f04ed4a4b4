package interfaces

import (
	"context"
	"errors"

	"github.com/iamwebwiz/smart-book-discovery-agent/internal/models"
)

var (
	// ErrJobNotFound is returned for operations on an unknown job id
	ErrJobNotFound = errors.New("job not found")
	// ErrResultNotFound is returned when no result has been stored for a job id
	ErrResultNotFound = errors.New("result not found")
	// ErrJobTerminal is returned when a status change targets a completed or failed job
	ErrJobTerminal = errors.New("job is already in a terminal status")
	// ErrInvalidTransition is returned for status changes the lifecycle does not allow
	ErrInvalidTransition = errors.New("invalid job status transition")
)

// JobStore holds job status records and completed results keyed by job id.
// Implementations are safe for concurrent use: calls for different ids do not
// block each other, calls for the same id are serialized. Every read returns a
// snapshot that shares no state with the store.
type JobStore interface {
	// Create inserts a pending job for topic under a fresh unique id
	Create(ctx context.Context, topic string) (string, error)

	// SetStatus moves an existing job to status with message and returns the new snapshot.
	// CompletedAt is stamped on entry into completed or failed.
	// Returns ErrJobNotFound, ErrJobTerminal or ErrInvalidTransition without changing anything.
	SetStatus(ctx context.Context, id string, status models.JobStatus, message string) (models.Job, error)

	// GetStatus returns the current job snapshot or ErrJobNotFound
	GetStatus(ctx context.Context, id string) (models.Job, error)

	// PutResult stores (or overwrites) the result for id
	PutResult(ctx context.Context, id string, result models.JobResult) error

	// GetResult returns the stored result or ErrResultNotFound
	GetResult(ctx context.Context, id string) (models.JobResult, error)

	// Close releases resources held by the store
	Close() error
}
