package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/iamwebwiz/smart-book-discovery-agent/internal/interfaces"
	"github.com/iamwebwiz/smart-book-discovery-agent/internal/models"
	"github.com/iamwebwiz/smart-book-discovery-agent/internal/services/workers"
)

type fakeDiscovery struct {
	openErr error
	session *fakeSession
}

var _ interfaces.DiscoveryGateway = (*fakeDiscovery)(nil)

func (d *fakeDiscovery) Open(ctx context.Context) (interfaces.DiscoverySession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.openErr != nil {
		return nil, d.openErr
	}
	return d.session, nil
}

type fakeSession struct {
	books     []models.Book
	searchErr error
	details   map[string]string // keyed by title; missing titles fail
	closed    int32
}

var _ interfaces.DiscoverySession = (*fakeSession)(nil)

func (s *fakeSession) Search(ctx context.Context, topic string) ([]models.Book, error) {
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	return s.books, nil
}

func (s *fakeSession) FetchDetail(ctx context.Context, book models.Book) (string, error) {
	text, ok := s.details[book.Title]
	if !ok {
		return "", errors.New("detail page timed out")
	}
	return text, nil
}

func (s *fakeSession) Close() error {
	atomic.AddInt32(&s.closed, 1)
	return nil
}

func (s *fakeSession) closeCount() int {
	return int(atomic.LoadInt32(&s.closed))
}

// fakeEnricher scores by title; titles in fail return an error, titles in explode panic
type fakeEnricher struct {
	relevance map[string]int
	fail      map[string]bool
	explode   map[string]bool

	mu       sync.Mutex
	inFlight int
	peak     int
	topics   []string
}

var _ interfaces.EnrichmentGateway = (*fakeEnricher)(nil)

func (e *fakeEnricher) Score(ctx context.Context, book models.Book, topic string) (models.ScoredBook, error) {
	e.mu.Lock()
	e.inFlight++
	if e.inFlight > e.peak {
		e.peak = e.inFlight
	}
	e.topics = append(e.topics, topic)
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.inFlight--
		e.mu.Unlock()
	}()

	if e.explode[book.Title] {
		panic("malformed response")
	}
	if e.fail[book.Title] {
		return models.ScoredBook{}, errors.New("llm unavailable")
	}
	return models.NewScoredBook(book, "About "+book.Title, e.relevance[book.Title]), nil
}

type fakeDelivery struct {
	ok      bool
	mu      sync.Mutex
	results []models.JobResult
}

var _ interfaces.DeliveryGateway = (*fakeDelivery)(nil)

func (d *fakeDelivery) Send(ctx context.Context, result models.JobResult) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.results = append(d.results, result)
	return d.ok
}

func (d *fakeDelivery) sent() []models.JobResult {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]models.JobResult(nil), d.results...)
}

// inlineQueue runs submitted jobs synchronously, or rejects them with err
type inlineQueue struct {
	err error
}

func (q *inlineQueue) TrySubmit(job workers.Job) error {
	if q.err != nil {
		return q.err
	}
	_ = job(context.Background())
	return nil
}

// recordingEvents keeps every published job status
type recordingEvents struct {
	mu       sync.Mutex
	statuses []models.Job
	results  []models.JobResult
}

var _ interfaces.EventService = (*recordingEvents)(nil)

func (r *recordingEvents) Subscribe(eventType interfaces.EventType, handler interfaces.EventHandler) (string, error) {
	return "", nil
}

func (r *recordingEvents) Unsubscribe(eventType interfaces.EventType, subscriptionID string) error {
	return nil
}

func (r *recordingEvents) Publish(ctx context.Context, event interfaces.Event) error {
	return r.PublishSync(ctx, event)
}

func (r *recordingEvents) PublishSync(ctx context.Context, event interfaces.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch payload := event.Payload.(type) {
	case models.Job:
		r.statuses = append(r.statuses, payload)
	case models.JobResult:
		r.results = append(r.results, payload)
	}
	return nil
}

func (r *recordingEvents) Close() error {
	return nil
}

func (r *recordingEvents) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.statuses))
	for i, job := range r.statuses {
		out[i] = job.Message
	}
	return out
}

func (r *recordingEvents) jobStatuses() []models.JobStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.JobStatus, len(r.statuses))
	for i, job := range r.statuses {
		out[i] = job.Status
	}
	return out
}
