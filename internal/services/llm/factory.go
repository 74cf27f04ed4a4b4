package llm

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/iamwebwiz/smart-book-discovery-agent/internal/common"
	"github.com/iamwebwiz/smart-book-discovery-agent/internal/interfaces"
)

// NewLLMService creates the provider implementation selected by cfg.LLM.Provider
func NewLLMService(ctx context.Context, cfg *common.Config, logger arbor.ILogger) (interfaces.LLMService, error) {
	logger.Info().Str("provider", string(cfg.LLM.Provider)).Msg("Initializing LLM service")

	var (
		service interfaces.LLMService
		err     error
	)
	switch cfg.LLM.Provider {
	case common.LLMProviderOpenAI, "":
		service, err = unwrap(NewOpenAIService(&cfg.OpenAI, logger))
	case common.LLMProviderClaude:
		service, err = unwrap(NewClaudeService(&cfg.Claude, logger))
	case common.LLMProviderGemini:
		service, err = unwrap(NewGeminiService(ctx, &cfg.Gemini, logger))
	default:
		err = fmt.Errorf("unsupported LLM provider: %s", cfg.LLM.Provider)
	}
	if err != nil {
		return nil, err
	}
	return service, nil
}

// unwrap keeps a failed constructor's typed nil out of the interface
func unwrap[T interfaces.LLMService](service T, err error) (interfaces.LLMService, error) {
	if err != nil {
		return nil, err
	}
	return service, nil
}

// NewEnricherFromConfig builds the shared Enricher for service from the llm section of cfg
func NewEnricherFromConfig(service interfaces.LLMService, cfg *common.Config, logger arbor.ILogger) *Enricher {
	return NewEnricher(service, EnricherConfig{
		RateLimit:    common.ParseDuration(cfg.LLM.RateLimit, 0),
		RateBurst:    cfg.LLM.RateBurst,
		SystemPrompt: cfg.LLM.SystemPrompt,
		Retry:        NewDefaultRetryConfig(),
	}, logger)
}

// UnavailableService stands in for a provider that could not be configured.
// Every Chat call fails, so each book receives the fallback enrichment.
type UnavailableService struct {
	provider string
	reason   error
}

var _ interfaces.LLMService = (*UnavailableService)(nil)

// NewUnavailableService returns a service whose calls fail with reason
func NewUnavailableService(provider string, reason error) *UnavailableService {
	return &UnavailableService{provider: provider, reason: reason}
}

func (s *UnavailableService) Chat(ctx context.Context, messages []interfaces.Message) (string, error) {
	return "", fmt.Errorf("%s provider unavailable: %w", s.provider, s.reason)
}

func (s *UnavailableService) Name() string {
	return s.provider
}

func (s *UnavailableService) Close() error {
	return nil
}
