package crawler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/iamwebwiz/smart-book-discovery-agent/internal/common"
	"github.com/iamwebwiz/smart-book-discovery-agent/internal/interfaces"
	"github.com/iamwebwiz/smart-book-discovery-agent/internal/models"
)

// errPageNotFound is returned by a fetcher when the source answers 404
var errPageNotFound = errors.New("page not found")

// Options configures discovery sessions
type Options struct {
	BaseURL         string
	UserAgent       string
	Headless        bool
	NoSandbox       bool
	PagesToScrape   int
	PageWaitTimeout time.Duration
	DetailTimeout   time.Duration
	RequestTimeout  time.Duration
	ExtraHeaders    map[string]string
}

// NewOptions converts crawler configuration into session options
func NewOptions(config common.CrawlerConfig) Options {
	pages := config.PagesToScrape
	if pages <= 0 {
		pages = 2
	}
	return Options{
		BaseURL:         config.BaseURL,
		UserAgent:       config.UserAgent,
		Headless:        config.Headless,
		NoSandbox:       config.NoSandbox,
		PagesToScrape:   pages,
		PageWaitTimeout: common.ParseDuration(config.PageWaitTimeout, 10*time.Second),
		DetailTimeout:   common.ParseDuration(config.DetailTimeout, 5*time.Second),
		RequestTimeout:  common.ParseDuration(config.RequestTimeout, 30*time.Second),
		ExtraHeaders: map[string]string{
			"Accept-Language": "en-AU,en;q=0.9",
		},
	}
}

// NewDiscovery returns the gateway selected by config: headless Chrome when JavaScript
// rendering is enabled, plain HTTP otherwise
func NewDiscovery(config common.CrawlerConfig, logger arbor.ILogger) interfaces.DiscoveryGateway {
	opts := NewOptions(config)
	if config.EnableJavaScript {
		return NewBrowserDiscovery(opts, logger)
	}
	return NewHTTPDiscovery(opts, nil, logger)
}

// pageFetcher loads raw page HTML for a session
type pageFetcher interface {
	// fetchSearch loads a results page, waiting for the results container when the fetcher renders pages
	fetchSearch(ctx context.Context, pageURL string) (string, error)
	// fetchDetail loads a product page within the detail timeout
	fetchDetail(ctx context.Context, productURL string) (string, error)
	close() error
}

// session implements interfaces.DiscoverySession over a pageFetcher
type session struct {
	fetcher pageFetcher
	opts    Options
	logger  arbor.ILogger
}

func newSession(fetcher pageFetcher, opts Options, logger arbor.ILogger) *session {
	return &session{fetcher: fetcher, opts: opts, logger: logger}
}

// Search walks the result pages for topic and stops at the first page with no books
func (s *session) Search(ctx context.Context, topic string) ([]models.Book, error) {
	books := make([]models.Book, 0)

	for page := 1; page <= s.opts.PagesToScrape; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pageURL := SearchURL(s.opts.BaseURL, topic, page)
		s.logger.Debug().
			Int("page", page).
			Str("url", pageURL).
			Msg("Fetching search results page")

		html, err := s.fetcher.fetchSearch(ctx, pageURL)
		if errors.Is(err, errPageNotFound) && page > 1 {
			s.logger.Debug().Int("page", page).Msg("Results page not found, ending pagination")
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load results page %d: %w", page, err)
		}

		pageBooks, err := ParseSearchPage(html, pageURL)
		if err != nil {
			return nil, err
		}

		s.logger.Debug().
			Int("page", page).
			Int("books", len(pageBooks)).
			Msg("Parsed search results page")

		if len(pageBooks) == 0 {
			break
		}
		books = append(books, pageBooks...)
	}

	return books, nil
}

// FetchDetail returns the first sentence of the book's product description
func (s *session) FetchDetail(ctx context.Context, book models.Book) (string, error) {
	if book.ProductURL == "" {
		return "", fmt.Errorf("book %q has no product url", book.Title)
	}

	html, err := s.fetcher.fetchDetail(ctx, book.ProductURL)
	if err != nil {
		return "", err
	}
	return ParseDetailPage(html)
}

func (s *session) Close() error {
	return s.fetcher.close()
}
