package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/iamwebwiz/smart-book-discovery-agent/internal/interfaces"
	"github.com/iamwebwiz/smart-book-discovery-agent/internal/models"
)

// scoreOutcome is the result of one enrichment call
type scoreOutcome struct {
	book models.ScoredBook
	err  error
}

// value unwraps the outcome, substituting the fallback for a failed call
func (o scoreOutcome) value(source models.Book) models.ScoredBook {
	if o.err != nil {
		return models.FallbackScoredBook(source)
	}
	return o.book
}

// batchScorer enriches books in fixed-size concurrent batches, pausing between batches
type batchScorer struct {
	enricher  interfaces.EnrichmentGateway
	batchSize int
	delay     time.Duration
	logger    arbor.ILogger
}

// scoreAll returns one scored book per input, in input order. A failed or
// panicking call yields the fallback for that book only. The error is non-nil
// only when ctx is cancelled during a pause between batches.
func (s *batchScorer) scoreAll(ctx context.Context, jobID, topic string, books []models.Book) ([]models.ScoredBook, error) {
	size := s.batchSize
	if size < 1 {
		size = 1
	}

	scored := make([]models.ScoredBook, len(books))
	for start := 0; start < len(books); start += size {
		if start > 0 {
			if err := sleep(ctx, s.delay); err != nil {
				return nil, err
			}
		}

		end := min(start+size, len(books))
		outcomes := make([]scoreOutcome, end-start)

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				outcomes[i-start] = s.scoreOne(ctx, topic, books[i])
			}(i)
		}
		wg.Wait()

		for i, outcome := range outcomes {
			book := books[start+i]
			if outcome.err != nil {
				s.logger.Warn().
					Err(outcome.err).
					Str("job_id", jobID).
					Str("title", book.Title).
					Msg("Enrichment failed, using fallback values")
			}
			scored[start+i] = outcome.value(book)
		}

		s.logger.Debug().
			Str("job_id", jobID).
			Int("processed", end).
			Int("total", len(books)).
			Msg("Enrichment batch finished")
	}

	return scored, nil
}

func (s *batchScorer) scoreOne(ctx context.Context, topic string, book models.Book) (outcome scoreOutcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = scoreOutcome{err: fmt.Errorf("enrichment panic: %v", r)}
		}
	}()

	scored, err := s.enricher.Score(ctx, book, topic)
	return scoreOutcome{book: scored, err: err}
}

// sleep waits for d or until ctx is done
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
