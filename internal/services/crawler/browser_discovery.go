package crawler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/ternarybob/arbor"

	"github.com/iamwebwiz/smart-book-discovery-agent/internal/interfaces"
)

// BrowserDiscovery renders the book source in headless Chrome.
// Every Open launches a dedicated browser that is torn down by the session's Close.
type BrowserDiscovery struct {
	opts   Options
	logger arbor.ILogger
}

var _ interfaces.DiscoveryGateway = (*BrowserDiscovery)(nil)

// NewBrowserDiscovery creates a headless Chrome gateway
func NewBrowserDiscovery(opts Options, logger arbor.ILogger) *BrowserDiscovery {
	return &BrowserDiscovery{
		opts:   opts,
		logger: logger,
	}
}

// Open launches Chrome, verifies it responds and applies the session request headers
func (d *BrowserDiscovery) Open(ctx context.Context) (interfaces.DiscoverySession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	startTime := time.Now()

	allocatorOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", d.opts.Headless),
		chromedp.Flag("no-sandbox", d.opts.NoSandbox),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if d.opts.UserAgent != "" {
		allocatorOpts = append(allocatorOpts, chromedp.UserAgent(d.opts.UserAgent))
	}

	allocatorCtx, allocatorCancel := chromedp.NewExecAllocator(context.Background(), allocatorOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocatorCtx)

	fetcher := &browserFetcher{
		opts:            d.opts,
		browserCtx:      browserCtx,
		browserCancel:   browserCancel,
		allocatorCancel: allocatorCancel,
		logger:          d.logger,
	}

	headers := make(network.Headers, len(d.opts.ExtraHeaders))
	for k, v := range d.opts.ExtraHeaders {
		headers[k] = v
	}

	// Start the browser on the un-timed context so operation timeouts never kill it
	if err := chromedp.Run(browserCtx); err != nil {
		_ = fetcher.close()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	err := fetcher.run(ctx, browserCtx, d.opts.RequestTimeout,
		chromedp.Navigate("about:blank"),
		network.Enable(),
		network.SetExtraHTTPHeaders(headers),
	)
	if err != nil {
		_ = fetcher.close()
		return nil, fmt.Errorf("browser failed startup test: %w", err)
	}

	d.logger.Debug().
		Dur("startup_time", time.Since(startTime)).
		Bool("headless", d.opts.Headless).
		Msg("Browser session started")

	return newSession(fetcher, d.opts, d.logger), nil
}

type browserFetcher struct {
	opts            Options
	browserCtx      context.Context
	browserCancel   context.CancelFunc
	allocatorCancel context.CancelFunc
	closeOnce       sync.Once
	logger          arbor.ILogger
}

// run executes actions on parent bounded by timeout, aborting early if the caller's ctx ends
func (f *browserFetcher) run(ctx context.Context, parent context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	opCtx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(opCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}

// fetchSearch navigates the main tab to pageURL. A missing results container is
// not an error; the page is parsed as-is and yields no books.
func (f *browserFetcher) fetchSearch(ctx context.Context, pageURL string) (string, error) {
	if err := f.run(ctx, f.browserCtx, f.opts.RequestTimeout, chromedp.Navigate(pageURL)); err != nil {
		return "", fmt.Errorf("navigation failed: %w", err)
	}

	if err := f.run(ctx, f.browserCtx, f.opts.PageWaitTimeout,
		chromedp.WaitVisible(ResultsSelector, chromedp.ByQuery),
	); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		f.logger.Debug().
			Str("url", pageURL).
			Msg("Results container did not appear")
	}

	var html string
	if err := f.run(ctx, f.browserCtx, f.opts.RequestTimeout,
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	); err != nil {
		return "", fmt.Errorf("content extraction failed: %w", err)
	}
	return html, nil
}

// fetchDetail loads productURL in its own tab, closed before returning
func (f *browserFetcher) fetchDetail(ctx context.Context, productURL string) (string, error) {
	tabCtx, closeTab := chromedp.NewContext(f.browserCtx)
	defer closeTab()

	var html string
	err := f.run(ctx, tabCtx, f.opts.DetailTimeout,
		chromedp.Navigate(productURL),
		chromedp.WaitVisible(detailSelector, chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("detail page failed: %w", err)
	}
	return html, nil
}

func (f *browserFetcher) close() error {
	f.closeOnce.Do(func() {
		f.browserCancel()
		f.allocatorCancel()
		f.logger.Debug().Msg("Browser session closed")
	})
	return nil
}
