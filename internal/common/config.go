package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Queue       QueueConfig     `toml:"queue"`
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
	Crawler     CrawlerConfig   `toml:"crawler"`
	Pipeline    PipelineConfig  `toml:"pipeline"`
	LLM         LLMConfig       `toml:"llm"`
	OpenAI      OpenAIConfig    `toml:"openai"`
	Claude      ClaudeConfig    `toml:"claude"`
	Gemini      GeminiConfig    `toml:"gemini"`
	Webhook     WebhookConfig   `toml:"webhook"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
}

type ServerConfig struct {
	Port int    `toml:"port" validate:"min=1,max=65535"`
	Host string `toml:"host"`
}

// QueueConfig bounds the number of jobs in flight
type QueueConfig struct {
	Workers  int `toml:"workers" validate:"min=1"`  // Jobs executed concurrently
	Capacity int `toml:"capacity" validate:"min=1"` // Jobs waiting for a worker before submissions are rejected
}

type StorageConfig struct {
	Type string `toml:"type" validate:"oneof=memory badger"` // "memory" or "badger" (badger runs in-memory)
}

type LoggingConfig struct {
	Level  string   `toml:"level" validate:"oneof=trace debug info warn error"` // "debug", "info", "warn", "error"
	Output []string `toml:"output"`                                             // "stdout", "file"
}

// CrawlerConfig contains book source scraping configuration
type CrawlerConfig struct {
	BaseURL          string `toml:"base_url" validate:"required,url"` // Book source site root
	UserAgent        string `toml:"user_agent"`                       // User agent for browser and HTTP sessions
	EnableJavaScript bool   `toml:"enable_javascript"`                // Render pages in headless Chrome (false = plain HTTP)
	Headless         bool   `toml:"headless"`                         // Run Chrome headless
	NoSandbox        bool   `toml:"no_sandbox"`                       // Pass --no-sandbox to Chrome (containers)
	PagesToScrape    int    `toml:"pages_to_scrape" validate:"min=1"` // Maximum search result pages per theme
	PageWaitTimeout  string `toml:"page_wait_timeout"`                // Wait for the results container (default: "10s")
	DetailTimeout    string `toml:"detail_timeout"`                   // Per-book detail page timeout (default: "5s")
	DetailDelay      string `toml:"detail_delay"`                     // Pause between detail fetches (default: "500ms")
	RequestTimeout   string `toml:"request_timeout"`                  // Search page timeout (default: "30s")
}

// PipelineConfig controls the scoring stage pacing
type PipelineConfig struct {
	BatchSize  int    `toml:"batch_size" validate:"min=1"` // Concurrent enrichment calls per batch (default: 3)
	BatchDelay string `toml:"batch_delay"`                 // Pause between batches (default: "1s")
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	LLMProviderOpenAI LLMProvider = "openai"
	LLMProviderClaude LLMProvider = "claude"
	LLMProviderGemini LLMProvider = "gemini"
)

// LLMConfig contains provider selection and the shared enrichment throttle
type LLMConfig struct {
	Provider     LLMProvider `toml:"provider" validate:"oneof=openai claude gemini"` // Provider used for enrichment (default: "openai")
	RateLimit    string      `toml:"rate_limit"`                                     // Minimum interval between enrichment calls across all jobs ("0" disables)
	RateBurst    int         `toml:"rate_burst" validate:"min=0"`                    // Calls allowed in a burst (default: 3)
	SystemPrompt string      `toml:"system_prompt"`                                  // System message sent with every enrichment prompt
}

// OpenAIConfig contains OpenAI-compatible chat completion configuration
type OpenAIConfig struct {
	APIKey      string  `toml:"api_key"`     // OpenAI API key (OPENAI_API_KEY)
	Model       string  `toml:"model"`       // Chat model (default: "gpt-3.5-turbo")
	BaseURL     string  `toml:"base_url"`    // API root (default: "https://api.openai.com/v1")
	MaxTokens   int     `toml:"max_tokens"`  // Maximum tokens in response (default: 150)
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0.3)
	Timeout     string  `toml:"timeout"`     // Per-call timeout (default: "30s")
}

// ClaudeConfig contains Anthropic Claude API configuration
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`     // Anthropic API key (ANTHROPIC_API_KEY or config)
	Model       string  `toml:"model"`       // Model for enrichment (default: "claude-3-5-haiku-latest")
	MaxTokens   int     `toml:"max_tokens"`  // Maximum tokens in response (default: 150)
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0.3)
	Timeout     string  `toml:"timeout"`     // Per-call timeout (default: "30s")
}

// GeminiConfig contains Google Gemini API configuration
type GeminiConfig struct {
	APIKey      string  `toml:"api_key"`     // Google Gemini API key (GEMINI_API_KEY or config)
	Model       string  `toml:"model"`       // Model for enrichment (default: "gemini-2.0-flash")
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0.3)
	Timeout     string  `toml:"timeout"`     // Per-call timeout (default: "30s")
}

// WebhookConfig contains downstream delivery configuration
type WebhookConfig struct {
	URL     string `toml:"url"`     // Make.com webhook URL (MAKE_WEBHOOK_URL); empty disables delivery
	Timeout string `toml:"timeout"` // Delivery request timeout (default: "30s")
}

// SchedulerConfig submits configured themes on a cron schedule
type SchedulerConfig struct {
	Enabled  bool     `toml:"enabled"`  // Disabled by default
	Schedule string   `toml:"schedule"` // Standard 5-field cron expression
	Themes   []string `toml:"themes"`   // Themes submitted on every tick
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 3000,
			Host: "0.0.0.0",
		},
		Queue: QueueConfig{
			Workers:  5,  // Matches the source site's tolerated concurrent sessions
			Capacity: 50, // Submissions beyond this are rejected with 503
		},
		Storage: StorageConfig{
			Type: "memory",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
		Crawler: CrawlerConfig{
			BaseURL:          "https://bookdp.com.au",
			UserAgent:        "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			EnableJavaScript: true,
			Headless:         true,
			NoSandbox:        false,
			PagesToScrape:    2,
			PageWaitTimeout:  "10s",
			DetailTimeout:    "5s",
			DetailDelay:      "500ms",
			RequestTimeout:   "30s",
		},
		Pipeline: PipelineConfig{
			BatchSize:  3,
			BatchDelay: "1s",
		},
		LLM: LLMConfig{
			Provider:     LLMProviderOpenAI,
			RateLimit:    "250ms",
			RateBurst:    3,
			SystemPrompt: "You are a helpful assistant that analyzes books and provides concise summaries and relevance scores.",
		},
		OpenAI: OpenAIConfig{
			Model:       "gpt-3.5-turbo",
			BaseURL:     "https://api.openai.com/v1",
			MaxTokens:   150,
			Temperature: 0.3,
			Timeout:     "30s",
		},
		Claude: ClaudeConfig{
			Model:       "claude-3-5-haiku-latest",
			MaxTokens:   150,
			Temperature: 0.3,
			Timeout:     "30s",
		},
		Gemini: GeminiConfig{
			Model:       "gemini-2.0-flash",
			Temperature: 0.3,
			Timeout:     "30s",
		},
		Webhook: WebhookConfig{
			Timeout: "30s",
		},
		Scheduler: SchedulerConfig{
			Enabled:  false,
			Schedule: "0 */6 * * *",
		},
	}
}

// LoadFromFiles loads configuration from multiple files with priority: default -> file1 -> file2 -> ... -> env -> CLI
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		// Unmarshal into config (merges with existing values, later values override)
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config.
// BOOKAGENT_* names win over the plain names the service has always honoured.
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("BOOKAGENT_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	setInt(&config.Server.Port, "PORT", "BOOKAGENT_SERVER_PORT")
	setString(&config.Server.Host, "BOOKAGENT_SERVER_HOST")

	// Queue configuration
	setInt(&config.Queue.Workers, "BOOKAGENT_QUEUE_WORKERS")
	setInt(&config.Queue.Capacity, "BOOKAGENT_QUEUE_CAPACITY")

	// Storage configuration
	setString(&config.Storage.Type, "BOOKAGENT_STORAGE_TYPE")

	// Logging configuration
	setString(&config.Logging.Level, "BOOKAGENT_LOG_LEVEL")
	if output := os.Getenv("BOOKAGENT_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if o = strings.TrimSpace(o); o != "" {
				outputs = append(outputs, o)
			}
		}
		config.Logging.Output = outputs
	}

	// Crawler configuration
	setString(&config.Crawler.BaseURL, "BOOKAGENT_CRAWLER_BASE_URL")
	setString(&config.Crawler.UserAgent, "BOOKAGENT_CRAWLER_USER_AGENT")
	setBool(&config.Crawler.EnableJavaScript, "BOOKAGENT_CRAWLER_ENABLE_JAVASCRIPT")
	setBool(&config.Crawler.Headless, "BOOKAGENT_CRAWLER_HEADLESS")
	setBool(&config.Crawler.NoSandbox, "BOOKAGENT_CRAWLER_NO_SANDBOX")
	setInt(&config.Crawler.PagesToScrape, "BOOKAGENT_CRAWLER_PAGES_TO_SCRAPE")
	setString(&config.Crawler.DetailTimeout, "BOOKAGENT_CRAWLER_DETAIL_TIMEOUT")
	setString(&config.Crawler.DetailDelay, "BOOKAGENT_CRAWLER_DETAIL_DELAY")

	// Pipeline configuration
	setInt(&config.Pipeline.BatchSize, "BOOKAGENT_PIPELINE_BATCH_SIZE")
	setString(&config.Pipeline.BatchDelay, "BOOKAGENT_PIPELINE_BATCH_DELAY")

	// LLM configuration
	if provider := os.Getenv("BOOKAGENT_LLM_PROVIDER"); provider != "" {
		config.LLM.Provider = LLMProvider(strings.ToLower(provider))
	}
	setString(&config.LLM.RateLimit, "BOOKAGENT_LLM_RATE_LIMIT")
	setInt(&config.LLM.RateBurst, "BOOKAGENT_LLM_RATE_BURST")

	setString(&config.OpenAI.APIKey, "OPENAI_API_KEY", "BOOKAGENT_OPENAI_API_KEY")
	setString(&config.OpenAI.Model, "BOOKAGENT_OPENAI_MODEL")
	setString(&config.OpenAI.BaseURL, "BOOKAGENT_OPENAI_BASE_URL")
	setString(&config.Claude.APIKey, "ANTHROPIC_API_KEY", "BOOKAGENT_CLAUDE_API_KEY")
	setString(&config.Claude.Model, "BOOKAGENT_CLAUDE_MODEL")
	setString(&config.Gemini.APIKey, "GEMINI_API_KEY", "BOOKAGENT_GEMINI_API_KEY")
	setString(&config.Gemini.Model, "BOOKAGENT_GEMINI_MODEL")

	// Webhook configuration
	setString(&config.Webhook.URL, "MAKE_WEBHOOK_URL", "BOOKAGENT_WEBHOOK_URL")

	// Scheduler configuration
	setBool(&config.Scheduler.Enabled, "BOOKAGENT_SCHEDULER_ENABLED")
	setString(&config.Scheduler.Schedule, "BOOKAGENT_SCHEDULER_SCHEDULE")
}

// setString assigns the last non-empty variable in names to dst
func setString(dst *string, names ...string) {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}
}

func setInt(dst *int, names ...string) {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
}

func setBool(dst *bool, names ...string) {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// ValidateConfig checks struct constraints, duration strings and the scheduler cron expression
func ValidateConfig(config *Config) error {
	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	durations := map[string]string{
		"crawler.page_wait_timeout": config.Crawler.PageWaitTimeout,
		"crawler.detail_timeout":    config.Crawler.DetailTimeout,
		"crawler.detail_delay":      config.Crawler.DetailDelay,
		"crawler.request_timeout":   config.Crawler.RequestTimeout,
		"pipeline.batch_delay":      config.Pipeline.BatchDelay,
		"llm.rate_limit":            config.LLM.RateLimit,
		"openai.timeout":            config.OpenAI.Timeout,
		"claude.timeout":            config.Claude.Timeout,
		"gemini.timeout":            config.Gemini.Timeout,
		"webhook.timeout":           config.Webhook.Timeout,
	}
	for key, value := range durations {
		if value == "" || value == "0" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid duration for %s '%s': %w", key, value, err)
		}
	}

	if config.Scheduler.Enabled {
		if _, err := cron.ParseStandard(config.Scheduler.Schedule); err != nil {
			return fmt.Errorf("invalid scheduler.schedule '%s': %w", config.Scheduler.Schedule, err)
		}
		if len(config.Scheduler.Themes) == 0 {
			return fmt.Errorf("scheduler is enabled but scheduler.themes is empty")
		}
	}

	return nil
}

// ParseDuration parses a duration string, returning fallback when s is empty or invalid.
// "0" yields zero.
func ParseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
