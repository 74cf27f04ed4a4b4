package workers

import (
	"context"
	"errors"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/iamwebwiz/smart-book-discovery-agent/internal/common"
)

var (
	// ErrQueueFull is returned by TrySubmit when every queue slot is taken
	ErrQueueFull = errors.New("job queue is full")
	// ErrPoolClosed is returned by TrySubmit after Shutdown
	ErrPoolClosed = errors.New("worker pool is shutting down")
)

// Job represents a work item to be processed
type Job func(ctx context.Context) error

// Pool runs submitted jobs on a fixed number of workers with a bounded queue
type Pool struct {
	jobs       chan Job
	maxWorkers int
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	mu         sync.RWMutex
	started    bool
	closed     bool
	logger     arbor.ILogger
}

// NewPool creates a new worker pool. capacity bounds the jobs waiting for a worker.
func NewPool(maxWorkers, capacity int, logger arbor.ILogger) *Pool {
	if maxWorkers <= 0 {
		maxWorkers = 5
	}
	if capacity <= 0 {
		capacity = maxWorkers * 10
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Pool{
		jobs:       make(chan Job, capacity),
		maxWorkers: maxWorkers,
		ctx:        ctx,
		cancel:     cancel,
		logger:     logger,
	}
}

// Start begins the worker pool
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.closed {
		return
	}
	p.started = true

	p.logger.Info().
		Int("max_workers", p.maxWorkers).
		Int("capacity", cap(p.jobs)).
		Msg("Starting worker pool")

	for i := 0; i < p.maxWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// TrySubmit queues job without blocking. Returns ErrQueueFull or ErrPoolClosed when it cannot.
func (p *Pool) TrySubmit(job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.jobs <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// QueueLength returns the number of jobs waiting for a worker
func (p *Pool) QueueLength() int {
	return len(p.jobs)
}

// Shutdown cancels running jobs and waits for the workers to exit.
// Jobs still queued are run with the cancelled context so they can record their outcome.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()

	drained := 0
	for {
		select {
		case job := <-p.jobs:
			p.run(-1, job)
			drained++
		default:
			p.logger.Info().
				Int("drained", drained).
				Msg("Worker pool shutdown complete")
			return
		}
	}
}

// worker processes jobs from the queue
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	p.logger.Debug().
		Int("worker_id", id).
		Msg("Worker started")

	for {
		select {
		case <-p.ctx.Done():
			p.logger.Debug().
				Int("worker_id", id).
				Msg("Worker stopping - context cancelled")
			return

		case job := <-p.jobs:
			p.run(id, job)
		}
	}
}

func (p *Pool) run(id int, job Job) {
	defer common.RecoverPanic(p.logger, "worker-pool-job")

	if err := job(p.ctx); err != nil {
		p.logger.Error().
			Err(err).
			Int("worker_id", id).
			Msg("Job failed")
	}
}
