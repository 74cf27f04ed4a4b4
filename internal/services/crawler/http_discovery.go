package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/iamwebwiz/smart-book-discovery-agent/internal/interfaces"
)

// maxPageBytes caps how much of a response body is read
const maxPageBytes = 10 << 20

// HTTPDiscovery fetches pages with plain HTTP requests, for sources that render server-side
type HTTPDiscovery struct {
	opts   Options
	client *http.Client
	logger arbor.ILogger
}

var _ interfaces.DiscoveryGateway = (*HTTPDiscovery)(nil)

// NewHTTPDiscovery creates an HTTP gateway. A nil client uses a client with the request timeout.
func NewHTTPDiscovery(opts Options, client *http.Client, logger arbor.ILogger) *HTTPDiscovery {
	if client == nil {
		client = &http.Client{Timeout: opts.RequestTimeout}
	}
	return &HTTPDiscovery{
		opts:   opts,
		client: client,
		logger: logger,
	}
}

// Open returns a session sharing the gateway's HTTP client
func (d *HTTPDiscovery) Open(ctx context.Context) (interfaces.DiscoverySession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return newSession(&httpFetcher{opts: d.opts, client: d.client}, d.opts, d.logger), nil
}

type httpFetcher struct {
	opts   Options
	client *http.Client
}

func (f *httpFetcher) fetchSearch(ctx context.Context, pageURL string) (string, error) {
	return f.get(ctx, pageURL)
}

func (f *httpFetcher) fetchDetail(ctx context.Context, productURL string) (string, error) {
	if f.opts.DetailTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.opts.DetailTimeout)
		defer cancel()
	}
	return f.get(ctx, productURL)
}

func (f *httpFetcher) get(ctx context.Context, target string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	if f.opts.UserAgent != "" {
		req.Header.Set("User-Agent", f.opts.UserAgent)
	}
	for k, v := range f.opts.ExtraHeaders {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", errPageNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("unexpected status %d from %s", resp.StatusCode, target)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	return string(body), nil
}

// close is a no-op; the client is owned by the gateway
func (f *httpFetcher) close() error {
	return nil
}
