package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/iamwebwiz/smart-book-discovery-agent/internal/interfaces"
	"github.com/iamwebwiz/smart-book-discovery-agent/internal/models"
)

// Client posts finished job results to a Make.com scenario webhook
type Client struct {
	url        string
	httpClient *http.Client
	logger     arbor.ILogger
}

var _ interfaces.DeliveryGateway = (*Client)(nil)

// NewClient creates a webhook client. An empty url leaves delivery unconfigured;
// every Send then logs an error and reports false.
func NewClient(url string, timeout time.Duration, logger arbor.ILogger) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		url:        strings.TrimSpace(url),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Configured reports whether a webhook URL is set
func (c *Client) Configured() bool {
	return c.url != ""
}

// Send makes one attempt to POST result as JSON. Any 2xx response counts as delivered.
func (c *Client) Send(ctx context.Context, result models.JobResult) bool {
	if c.url == "" {
		c.logger.Error().
			Str("job_id", result.JobID).
			Msg("Make.com webhook URL is not configured")
		return false
	}

	body, err := json.Marshal(result)
	if err != nil {
		c.logger.Error().Err(err).Str("job_id", result.JobID).Msg("Failed to encode webhook payload")
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		c.logger.Error().Err(err).Str("job_id", result.JobID).Msg("Failed to create webhook request")
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().
			Err(err).
			Str("job_id", result.JobID).
			Msg("No response received from Make.com webhook")
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		c.logger.Error().
			Str("job_id", result.JobID).
			Int("status", resp.StatusCode).
			Str("response", strings.TrimSpace(string(payload))).
			Msg("Failed to send data to Make.com")
		return false
	}

	c.logger.Info().
		Str("job_id", result.JobID).
		Int("books", len(result.Books)).
		Msg("Successfully sent data to Make.com")
	return true
}
