package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"

	"github.com/iamwebwiz/smart-book-discovery-agent/internal/interfaces"
	"github.com/iamwebwiz/smart-book-discovery-agent/internal/models"
)

// EnricherConfig controls the shared throttle and prompt of an Enricher
type EnricherConfig struct {
	RateLimit    time.Duration // Minimum interval between calls across all jobs; 0 disables the limiter
	RateBurst    int
	SystemPrompt string
	Retry        *RetryConfig // nil disables retries
}

// Enricher scores books through an LLM provider. One Enricher is shared by all
// jobs so its limiter bounds the provider call rate process-wide.
type Enricher struct {
	llm          interfaces.LLMService
	limiter      *rate.Limiter
	retry        *RetryConfig
	systemPrompt string
	logger       arbor.ILogger
}

var _ interfaces.EnrichmentGateway = (*Enricher)(nil)

// NewEnricher wraps service with the configured throttle
func NewEnricher(service interfaces.LLMService, config EnricherConfig, logger arbor.ILogger) *Enricher {
	var limiter *rate.Limiter
	if config.RateLimit > 0 {
		burst := config.RateBurst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Every(config.RateLimit), burst)
	}

	retry := config.Retry
	if retry == nil {
		retry = &RetryConfig{MaxRetries: 0}
	}

	return &Enricher{
		llm:          service,
		limiter:      limiter,
		retry:        retry,
		systemPrompt: config.SystemPrompt,
		logger:       logger,
	}
}

// Score asks the provider for a summary and relevance score for book.
// Returns an error when the provider call fails; callers substitute models.FallbackScoredBook.
func (e *Enricher) Score(ctx context.Context, book models.Book, topic string) (models.ScoredBook, error) {
	messages := BuildMessages(book, topic, e.systemPrompt)

	startTime := time.Now()
	reply, err := e.retry.Do(ctx, func() (string, error) {
		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return "", err
			}
		}
		return e.llm.Chat(ctx, messages)
	})
	if err != nil {
		return models.ScoredBook{}, fmt.Errorf("enrichment failed for %q: %w", book.Title, err)
	}

	summary, relevance := ParseEnrichment(reply)

	e.logger.Debug().
		Str("provider", e.llm.Name()).
		Str("title", book.Title).
		Int("relevance", relevance).
		Dur("duration", time.Since(startTime)).
		Msg("Book enriched")

	return models.NewScoredBook(book, summary, relevance), nil
}
