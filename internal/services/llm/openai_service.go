package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/iamwebwiz/smart-book-discovery-agent/internal/common"
	"github.com/iamwebwiz/smart-book-discovery-agent/internal/interfaces"
)

// OpenAIService implements LLMService against an OpenAI-compatible chat completions endpoint
type OpenAIService struct {
	endpoint    string
	model       string
	apiKey      string
	maxTokens   int
	temperature float32
	timeout     time.Duration
	httpClient  *http.Client
	logger      arbor.ILogger
}

var _ interfaces.LLMService = (*OpenAIService)(nil)

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float32         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

type openAIResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
}

// NewOpenAIService creates an OpenAI chat service. The API key is required.
func NewOpenAIService(config *common.OpenAIConfig, logger arbor.ILogger) (*OpenAIService, error) {
	if strings.TrimSpace(config.APIKey) == "" {
		return nil, fmt.Errorf("OpenAI API key is required (set via OPENAI_API_KEY or openai.api_key in config)")
	}

	model := config.Model
	if model == "" {
		model = "gpt-3.5-turbo"
	}
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	timeout := common.ParseDuration(config.Timeout, 30*time.Second)

	service := &OpenAIService{
		endpoint:    strings.TrimRight(baseURL, "/") + "/chat/completions",
		model:       model,
		apiKey:      config.APIKey,
		maxTokens:   config.MaxTokens,
		temperature: config.Temperature,
		timeout:     timeout,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logger,
	}

	logger.Debug().
		Str("model", model).
		Str("endpoint", service.endpoint).
		Dur("timeout", timeout).
		Msg("OpenAI LLM service initialized")

	return service, nil
}

// Chat posts messages to the chat completions endpoint and returns the first choice's content
func (s *OpenAIService) Chat(ctx context.Context, messages []interfaces.Message) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("messages cannot be empty for chat completion")
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	reqBody := openAIRequest{
		Model:       s.model,
		Messages:    make([]openAIMessage, 0, len(messages)),
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
	}
	for _, msg := range messages {
		reqBody.Messages = append(reqBody.Messages, openAIMessage{Role: msg.Role, Content: msg.Content})
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat completion request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("openai error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var parsed openAIResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("no response generated from OpenAI API")
	}

	return parsed.Choices[0].Message.Content, nil
}

func (s *OpenAIService) Name() string {
	return string(common.LLMProviderOpenAI)
}

func (s *OpenAIService) Close() error {
	s.httpClient.CloseIdleConnections()
	return nil
}
