// -----------------------------------------------------------------------
// Discovery Pipeline - scrape, enrich, deliver for one submitted theme
// -----------------------------------------------------------------------

package jobs

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/iamwebwiz/smart-book-discovery-agent/internal/interfaces"
	"github.com/iamwebwiz/smart-book-discovery-agent/internal/models"
	"github.com/iamwebwiz/smart-book-discovery-agent/internal/services/workers"
)

var (
	// ErrEmptyTopic is returned by Submit for a blank theme
	ErrEmptyTopic = errors.New("a valid theme is required")
	// ErrQueueFull is returned by Submit when no worker slot is available
	ErrQueueFull = errors.New("job queue is full")
)

// Status messages recorded as the job moves through its stages
const (
	MsgStarting   = "Starting the web scraping process"
	MsgNoBooks    = "No books found for the given theme"
	MsgEnriching  = "Enriching books with AI analysis..."
	MsgDelivering = "Sending data to Make.com..."
	MsgCompleted  = "Job completed successfully"
	msgFoundBooks = "Found %d books. Fetching detailed descriptions..."
	msgFailed     = "Job failed: %s"
)

// Queue accepts pipeline runs without blocking
type Queue interface {
	TrySubmit(job workers.Job) error
}

// PipelineDeps are the collaborators a Pipeline drives. Events is optional.
type PipelineDeps struct {
	Store     interfaces.JobStore
	Discovery interfaces.DiscoveryGateway
	Enricher  interfaces.EnrichmentGateway
	Delivery  interfaces.DeliveryGateway
	Events    interfaces.EventService
	Pool      Queue
	Logger    arbor.ILogger
}

// PipelineConfig controls pacing inside a run
type PipelineConfig struct {
	BatchSize   int           // Books enriched concurrently per batch
	BatchDelay  time.Duration // Pause between enrichment batches
	DetailDelay time.Duration // Pause between detail page fetches
}

// NewDefaultPipelineConfig returns batches of 3 with a 1s pause and a 500ms detail pause
func NewDefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		BatchSize:   3,
		BatchDelay:  time.Second,
		DetailDelay: 500 * time.Millisecond,
	}
}

// Pipeline runs discovery jobs end to end
type Pipeline struct {
	store     interfaces.JobStore
	discovery interfaces.DiscoveryGateway
	delivery  interfaces.DeliveryGateway
	events    interfaces.EventService
	pool      Queue
	scorer    *batchScorer
	config    PipelineConfig
	logger    arbor.ILogger
	now       func() time.Time
}

// NewPipeline creates a pipeline over deps
func NewPipeline(deps PipelineDeps, config PipelineConfig) *Pipeline {
	if config.BatchSize < 1 {
		config.BatchSize = 1
	}
	return &Pipeline{
		store:     deps.Store,
		discovery: deps.Discovery,
		delivery:  deps.Delivery,
		events:    deps.Events,
		pool:      deps.Pool,
		scorer: &batchScorer{
			enricher:  deps.Enricher,
			batchSize: config.BatchSize,
			delay:     config.BatchDelay,
			logger:    deps.Logger,
		},
		config: config,
		logger: deps.Logger,
		now:    time.Now,
	}
}

// Submit creates a pending job for topic and queues its run.
// When the job cannot be queued it is recorded as failed and its id is
// returned with the error (ErrQueueFull when the queue is full).
func (p *Pipeline) Submit(ctx context.Context, topic string) (string, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return "", ErrEmptyTopic
	}

	jobID, err := p.store.Create(ctx, topic)
	if err != nil {
		return "", fmt.Errorf("failed to create job: %w", err)
	}
	if job, err := p.store.GetStatus(ctx, jobID); err == nil {
		p.publish(ctx, interfaces.EventJobStatusChanged, job)
	}

	err = p.pool.TrySubmit(func(ctx context.Context) error {
		return p.Run(ctx, jobID)
	})
	if err != nil {
		if errors.Is(err, workers.ErrQueueFull) {
			err = ErrQueueFull
		}
		p.fail(context.WithoutCancel(ctx), jobID, err)
		if errors.Is(err, ErrQueueFull) {
			return jobID, ErrQueueFull
		}
		return jobID, fmt.Errorf("failed to queue job: %w", err)
	}

	p.logger.Info().
		Str("job_id", jobID).
		Str("theme", topic).
		Msg("Job queued")

	return jobID, nil
}

// Run executes every stage for jobID. Any stage error, cancellation of ctx or
// panic marks the job failed; the cause is returned.
func (p *Pipeline) Run(ctx context.Context, jobID string) (err error) {
	// Status writes outlive cancellation so a cancelled job still records its failure
	storeCtx := context.WithoutCancel(ctx)

	job, err := p.store.GetStatus(storeCtx, jobID)
	if err != nil {
		return fmt.Errorf("failed to load job %s: %w", jobID, err)
	}

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().
				Str("job_id", jobID).
				Str("panic", fmt.Sprintf("%v", r)).
				Str("stack", string(debug.Stack())).
				Msg("Recovered from panic in pipeline run")
			err = fmt.Errorf("unexpected error: %v", r)
		}
		if err != nil {
			p.fail(storeCtx, jobID, err)
		}
	}()

	started := p.now()
	if err := p.execute(ctx, storeCtx, job); err != nil {
		return err
	}

	p.logger.Info().
		Str("job_id", jobID).
		Str("theme", job.Topic).
		Dur("duration", p.now().Sub(started)).
		Msg("Job completed")
	return nil
}

func (p *Pipeline) execute(ctx, storeCtx context.Context, job models.Job) error {
	if err := p.transition(storeCtx, job.ID, models.JobStatusProcessing, MsgStarting); err != nil {
		return err
	}

	session, err := p.discovery.Open(ctx)
	if err != nil {
		return fmt.Errorf("failed to open discovery session: %w", err)
	}
	release := p.releaser(job.ID, session)
	defer release()

	books, err := session.Search(ctx, job.Topic)
	if err != nil {
		return fmt.Errorf("failed to search books: %w", err)
	}

	if len(books) == 0 {
		release()
		result := p.newResult(job, []models.ScoredBook{})
		if err := p.storeResult(storeCtx, result); err != nil {
			return err
		}
		return p.transition(storeCtx, job.ID, models.JobStatusCompleted, MsgNoBooks)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.transition(storeCtx, job.ID, models.JobStatusProcessing, fmt.Sprintf(msgFoundBooks, len(books))); err != nil {
		return err
	}

	books, err = p.fetchDetails(ctx, job.ID, session, books)
	if err != nil {
		return err
	}

	if err := p.transition(storeCtx, job.ID, models.JobStatusProcessing, MsgEnriching); err != nil {
		return err
	}
	scored, err := p.scorer.scoreAll(ctx, job.ID, job.Topic, books)
	if err != nil {
		return err
	}

	result := p.newResult(job, scored)
	release()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.transition(storeCtx, job.ID, models.JobStatusProcessing, MsgDelivering); err != nil {
		return err
	}
	if !p.delivery.Send(ctx, result) {
		p.logger.Warn().
			Str("job_id", job.ID).
			Msg("Result was not delivered to the webhook")
	}

	if err := p.storeResult(storeCtx, result); err != nil {
		return err
	}
	return p.transition(storeCtx, job.ID, models.JobStatusCompleted, MsgCompleted)
}

// fetchDetails replaces listing descriptions with detail page text where available.
// Failed fetches keep the listing description.
func (p *Pipeline) fetchDetails(ctx context.Context, jobID string, session interfaces.DiscoverySession, books []models.Book) ([]models.Book, error) {
	detailed := make([]models.Book, len(books))
	copy(detailed, books)

	for i := range detailed {
		if i > 0 {
			if err := sleep(ctx, p.config.DetailDelay); err != nil {
				return nil, err
			}
		}

		text, err := session.FetchDetail(ctx, detailed[i])
		if err != nil {
			p.logger.Debug().
				Err(err).
				Str("job_id", jobID).
				Str("url", detailed[i].ProductURL).
				Msg("Detail fetch failed, keeping listing description")
			continue
		}
		if text != "" {
			detailed[i].Description = text
		}
	}

	return detailed, nil
}

func (p *Pipeline) newResult(job models.Job, books []models.ScoredBook) models.JobResult {
	return models.JobResult{
		JobID:     job.ID,
		Topic:     job.Topic,
		Books:     books,
		Timestamp: p.now().UTC(),
		Metadata:  BuildMetadata(books),
	}
}

func (p *Pipeline) storeResult(ctx context.Context, result models.JobResult) error {
	if err := p.store.PutResult(ctx, result.JobID, result); err != nil {
		return fmt.Errorf("failed to store result: %w", err)
	}
	p.publish(ctx, interfaces.EventJobResultStored, result)
	return nil
}

// releaser returns an idempotent close for session
func (p *Pipeline) releaser(jobID string, session interfaces.DiscoverySession) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			if err := session.Close(); err != nil {
				p.logger.Warn().Err(err).Str("job_id", jobID).Msg("Failed to close discovery session")
			}
		})
	}
}

func (p *Pipeline) transition(ctx context.Context, jobID string, status models.JobStatus, message string) error {
	job, err := p.store.SetStatus(ctx, jobID, status, message)
	if err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}

	p.logger.Info().
		Str("job_id", jobID).
		Str("status", string(status)).
		Msg(message)

	p.publish(ctx, interfaces.EventJobStatusChanged, job)
	return nil
}

// fail records cause on the job. A job that already reached a terminal status is left alone.
func (p *Pipeline) fail(ctx context.Context, jobID string, cause error) {
	message := fmt.Sprintf(msgFailed, cause.Error())
	job, err := p.store.SetStatus(ctx, jobID, models.JobStatusFailed, message)
	if err != nil {
		p.logger.Warn().
			Err(err).
			Str("job_id", jobID).
			Str("cause", cause.Error()).
			Msg("Could not mark job as failed")
		return
	}

	p.logger.Error().
		Str("job_id", jobID).
		Str("error", cause.Error()).
		Msg("Job failed")

	p.publish(ctx, interfaces.EventJobStatusChanged, job)
}

func (p *Pipeline) publish(ctx context.Context, eventType interfaces.EventType, payload interface{}) {
	if p.events == nil {
		return
	}
	if err := p.events.PublishSync(ctx, interfaces.Event{Type: eventType, Payload: payload}); err != nil {
		p.logger.Warn().Err(err).Str("event_type", string(eventType)).Msg("Failed to publish event")
	}
}
