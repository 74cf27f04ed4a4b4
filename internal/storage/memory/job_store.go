package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/iamwebwiz/smart-book-discovery-agent/internal/common"
	"github.com/iamwebwiz/smart-book-discovery-agent/internal/interfaces"
	"github.com/iamwebwiz/smart-book-discovery-agent/internal/models"
)

// jobEntry guards one job record; the index lock is never held while an entry lock is taken
type jobEntry struct {
	mu     sync.Mutex
	job    models.Job
	result *models.JobResult
}

// JobStore is a process-lifetime JobStore backed by maps
type JobStore struct {
	mu      sync.RWMutex
	entries map[string]*jobEntry
	newID   func() string
	now     func() time.Time
	logger  arbor.ILogger
}

var _ interfaces.JobStore = (*JobStore)(nil)

// NewJobStore creates an empty in-memory job store
func NewJobStore(logger arbor.ILogger) *JobStore {
	return &JobStore{
		entries: make(map[string]*jobEntry),
		newID:   common.NewJobID,
		now:     time.Now,
		logger:  logger,
	}
}

func (s *JobStore) Create(ctx context.Context, topic string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.newID()
	for attempts := 1; ; attempts++ {
		if _, exists := s.entries[id]; !exists {
			break
		}
		if attempts >= 10 {
			return "", fmt.Errorf("failed to allocate a unique job id after %d attempts", attempts)
		}
		id = s.newID()
	}

	s.entries[id] = &jobEntry{job: models.NewJob(id, topic)}

	s.logger.Debug().
		Str("job_id", id).
		Str("theme", topic).
		Msg("Job created")

	return id, nil
}

func (s *JobStore) entry(id string) (*jobEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	return e, ok
}

func (s *JobStore) SetStatus(ctx context.Context, id string, status models.JobStatus, message string) (models.Job, error) {
	if err := ctx.Err(); err != nil {
		return models.Job{}, err
	}

	e, ok := s.entry(id)
	if !ok {
		return models.Job{}, fmt.Errorf("%w: %s", interfaces.ErrJobNotFound, id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.job.Status.IsTerminal() {
		return e.job, fmt.Errorf("%w: %s is %s", interfaces.ErrJobTerminal, id, e.job.Status)
	}
	if !e.job.Status.CanTransitionTo(status) {
		return e.job, fmt.Errorf("%w: %s -> %s", interfaces.ErrInvalidTransition, e.job.Status, status)
	}

	e.job = e.job.WithStatus(status, message, s.now())
	return e.job, nil
}

func (s *JobStore) GetStatus(ctx context.Context, id string) (models.Job, error) {
	if err := ctx.Err(); err != nil {
		return models.Job{}, err
	}

	e, ok := s.entry(id)
	if !ok {
		return models.Job{}, fmt.Errorf("%w: %s", interfaces.ErrJobNotFound, id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.job, nil
}

func (s *JobStore) PutResult(ctx context.Context, id string, result models.JobResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e, ok := s.entry(id)
	if !ok {
		return fmt.Errorf("%w: %s", interfaces.ErrJobNotFound, id)
	}

	stored := result.Clone()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.result = &stored
	return nil
}

func (s *JobStore) GetResult(ctx context.Context, id string) (models.JobResult, error) {
	if err := ctx.Err(); err != nil {
		return models.JobResult{}, err
	}

	e, ok := s.entry(id)
	if !ok {
		return models.JobResult{}, fmt.Errorf("%w: %s", interfaces.ErrResultNotFound, id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.result == nil {
		return models.JobResult{}, fmt.Errorf("%w: %s", interfaces.ErrResultNotFound, id)
	}
	return e.result.Clone(), nil
}

// Close drops all records
func (s *JobStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]*jobEntry)
	return nil
}
