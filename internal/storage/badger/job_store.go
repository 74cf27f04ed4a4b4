package badger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/iamwebwiz/smart-book-discovery-agent/internal/common"
	"github.com/iamwebwiz/smart-book-discovery-agent/internal/interfaces"
	"github.com/iamwebwiz/smart-book-discovery-agent/internal/models"
)

// JobStore implements interfaces.JobStore on badgerhold.
// Read-modify-write sequences for one id are serialized by that id's mutex;
// different ids never share a lock.
type JobStore struct {
	db     *BadgerDB
	locks  sync.Map // job id -> *sync.Mutex
	newID  func() string
	now    func() time.Time
	logger arbor.ILogger
}

var _ interfaces.JobStore = (*JobStore)(nil)

// NewJobStore creates a JobStore over db. Close on the store closes db.
func NewJobStore(db *BadgerDB, logger arbor.ILogger) *JobStore {
	return &JobStore{
		db:     db,
		newID:  common.NewJobID,
		now:    time.Now,
		logger: logger,
	}
}

func (s *JobStore) lockFor(id string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(id, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// withConflictRetry runs fn once more when badger reports a transaction conflict
func withConflictRetry(fn func() error) error {
	err := fn()
	if errors.Is(err, badger.ErrConflict) {
		err = fn()
	}
	return err
}

func (s *JobStore) Create(ctx context.Context, topic string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	for attempts := 1; attempts <= 10; attempts++ {
		id := s.newID()
		job := models.NewJob(id, topic)

		err := withConflictRetry(func() error {
			return s.db.Store().Insert(id, &job)
		})
		if errors.Is(err, badgerhold.ErrKeyExists) {
			s.logger.Warn().Str("job_id", id).Msg("Job id collision, regenerating")
			continue
		}
		if err != nil {
			return "", fmt.Errorf("failed to create job: %w", err)
		}

		s.logger.Debug().
			Str("job_id", id).
			Str("theme", topic).
			Msg("Job created")
		return id, nil
	}

	return "", fmt.Errorf("failed to allocate a unique job id")
}

func (s *JobStore) getJob(id string) (models.Job, error) {
	var job models.Job
	if err := s.db.Store().Get(id, &job); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return models.Job{}, fmt.Errorf("%w: %s", interfaces.ErrJobNotFound, id)
		}
		return models.Job{}, fmt.Errorf("failed to get job: %w", err)
	}
	return job, nil
}

func (s *JobStore) SetStatus(ctx context.Context, id string, status models.JobStatus, message string) (models.Job, error) {
	if err := ctx.Err(); err != nil {
		return models.Job{}, err
	}

	mu := s.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	job, err := s.getJob(id)
	if err != nil {
		return models.Job{}, err
	}

	if job.Status.IsTerminal() {
		return job, fmt.Errorf("%w: %s is %s", interfaces.ErrJobTerminal, id, job.Status)
	}
	if !job.Status.CanTransitionTo(status) {
		return job, fmt.Errorf("%w: %s -> %s", interfaces.ErrInvalidTransition, job.Status, status)
	}

	next := job.WithStatus(status, message, s.now())
	err = withConflictRetry(func() error {
		return s.db.Store().Update(id, &next)
	})
	if err != nil {
		return job, fmt.Errorf("failed to update job status: %w", err)
	}
	return next, nil
}

func (s *JobStore) GetStatus(ctx context.Context, id string) (models.Job, error) {
	if err := ctx.Err(); err != nil {
		return models.Job{}, err
	}
	return s.getJob(id)
}

func (s *JobStore) PutResult(ctx context.Context, id string, result models.JobResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	mu := s.lockFor(id)
	mu.Lock()
	defer mu.Unlock()

	if _, err := s.getJob(id); err != nil {
		return err
	}

	stored := result.Clone()
	err := withConflictRetry(func() error {
		return s.db.Store().Upsert(id, &stored)
	})
	if err != nil {
		return fmt.Errorf("failed to save result: %w", err)
	}
	return nil
}

func (s *JobStore) GetResult(ctx context.Context, id string) (models.JobResult, error) {
	if err := ctx.Err(); err != nil {
		return models.JobResult{}, err
	}

	var result models.JobResult
	if err := s.db.Store().Get(id, &result); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return models.JobResult{}, fmt.Errorf("%w: %s", interfaces.ErrResultNotFound, id)
		}
		return models.JobResult{}, fmt.Errorf("failed to get result: %w", err)
	}
	// gob decodes an empty book list as nil
	return result.Clone(), nil
}

func (s *JobStore) Close() error {
	return s.db.Close()
}
