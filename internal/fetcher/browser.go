package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/IshaanNene/newswire/internal/config"
	"github.com/IshaanNene/newswire/internal/types"
)

// BrowserFetcher implements Fetcher using a headless browser via Rod.
// It is used for listing pages that only render their links with JavaScript.
type BrowserFetcher struct {
	browser   *rod.Browser
	timeout   time.Duration
	userAgent string
	logger    *slog.Logger
	pagePool  chan *rod.Page
	maxPages  int
	scrolls   int
	scrollGap time.Duration
}

// BrowserOption configures the BrowserFetcher.
type BrowserOption func(*BrowserFetcher)

// WithMaxPages sets the maximum number of pooled browser pages.
func WithMaxPages(n int) BrowserOption {
	return func(bf *BrowserFetcher) { bf.maxPages = n }
}

// WithScrolls sets how many times a page is scrolled to the bottom after it
// settles, waiting gap between scrolls.
func WithScrolls(n int, gap time.Duration) BrowserOption {
	return func(bf *BrowserFetcher) {
		bf.scrolls = n
		bf.scrollGap = gap
	}
}

// NewBrowserFetcher launches Chromium and connects to it.
func NewBrowserFetcher(cfg *config.ScraperConfig, logger *slog.Logger, opts ...BrowserOption) (*BrowserFetcher, error) {
	bf := &BrowserFetcher{
		timeout:   cfg.RequestTimeout,
		logger:    logger.With("component", "browser_fetcher"),
		maxPages:  3,
		scrollGap: 500 * time.Millisecond,
	}
	if len(cfg.UserAgents) > 0 {
		bf.userAgent = cfg.UserAgents[0]
	}

	for _, opt := range opts {
		opt(bf)
	}
	if bf.maxPages < 1 {
		bf.maxPages = 1
	}

	launchURL, err := launcher.New().
		Headless(true).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("no-sandbox").
		Set("disable-blink-features", "AutomationControlled").
		Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(launchURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}

	bf.browser = browser
	bf.pagePool = make(chan *rod.Page, bf.maxPages)

	bf.logger.Info("browser fetcher ready", "max_pages", bf.maxPages)

	return bf, nil
}

// Fetch navigates to a URL and returns the rendered page content.
func (bf *BrowserFetcher) Fetch(ctx context.Context, rawURL string) (*types.Response, error) {
	start := time.Now()

	page, err := bf.getPage()
	if err != nil {
		return nil, &types.FetchError{URL: rawURL, Err: err}
	}
	defer bf.putPage(page)

	if bf.userAgent != "" {
		if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: bf.userAgent}); err != nil {
			bf.logger.Warn("failed to set user agent", "error", err)
		}
	}

	p := page.Context(ctx).Timeout(bf.timeout)
	defer p.CancelTimeout()

	// Record the status of the first document response, which is the main frame.
	statusCh := make(chan int, 1)
	evCtx, cancelEvents := context.WithCancel(ctx)
	defer cancelEvents()
	go p.Context(evCtx).EachEvent(func(e *proto.NetworkResponseReceived) bool {
		if e.Type != proto.NetworkResourceTypeDocument {
			return false
		}
		statusCh <- e.Response.Status
		return true
	})()

	if err := p.Navigate(rawURL); err != nil {
		return nil, &types.FetchError{URL: rawURL, Err: err}
	}
	if err := p.WaitLoad(); err != nil {
		bf.logger.Warn("page load wait failed, continuing", "url", rawURL, "error", err)
	}

	status := 0
	select {
	case status = <-statusCh:
	case <-time.After(time.Second):
	}
	status, err = documentStatus(rawURL, status)
	if err != nil {
		return nil, err
	}

	if err := p.WaitStable(300 * time.Millisecond); err != nil {
		bf.logger.Warn("page stability timeout, continuing", "url", rawURL, "error", err)
	}

	if n, err := bf.scrollToEnd(ctx, p); err != nil {
		bf.logger.Warn("scrolling stopped early", "url", rawURL, "scrolls", n, "error", err)
	}

	html, err := page.HTML()
	if err != nil {
		return nil, &types.FetchError{URL: rawURL, Err: err}
	}

	finalURL := rawURL
	if info, err := page.Info(); err == nil && info != nil {
		finalURL = info.URL
	}

	duration := time.Since(start)
	resp := types.NewBrowserResponse(rawURL, status, []byte(html), finalURL, duration)

	bf.logger.Debug("browser fetch complete",
		"url", rawURL,
		"final_url", finalURL,
		"status", status,
		"size", len(html),
		"duration", duration,
	)

	return resp, nil
}

// documentStatus turns the main document's status into an error when it is
// not 2xx. An unobserved status (0) is reported as 200.
func documentStatus(rawURL string, status int) (int, error) {
	if status == 0 {
		return http.StatusOK, nil
	}
	if status < 200 || status >= 300 {
		return status, &types.FetchError{
			URL:        rawURL,
			StatusCode: status,
			Err:        fmt.Errorf("HTTP %d", status),
		}
	}
	return status, nil
}

// scrollToEnd scrolls to the bottom up to bf.scrolls times, stopping once the
// page height no longer grows.
func (bf *BrowserFetcher) scrollToEnd(ctx context.Context, page *rod.Page) (int, error) {
	lastHeight := 0
	count := 0

	for count < bf.scrolls {
		result, err := page.Eval(`() => document.body.scrollHeight`)
		if err != nil {
			return count, err
		}
		height := result.Value.Int()
		if height == lastHeight {
			break
		}
		lastHeight = height

		if _, err := page.Eval(`() => window.scrollTo(0, document.body.scrollHeight)`); err != nil {
			return count, err
		}
		count++

		select {
		case <-ctx.Done():
			return count, ctx.Err()
		case <-time.After(bf.scrollGap):
		}
	}
	return count, nil
}

// Close shuts down the browser and releases resources.
func (bf *BrowserFetcher) Close() error {
	close(bf.pagePool)
	for page := range bf.pagePool {
		_ = page.Close()
	}
	if bf.browser != nil {
		return bf.browser.Close()
	}
	return nil
}

// Type returns the fetcher type identifier.
func (bf *BrowserFetcher) Type() string {
	return "browser"
}

// getPage retrieves a page from the pool or opens a new stealth page.
func (bf *BrowserFetcher) getPage() (*rod.Page, error) {
	select {
	case page := <-bf.pagePool:
		return page, nil
	default:
		return stealth.Page(bf.browser)
	}
}

// putPage returns a page to the pool.
func (bf *BrowserFetcher) putPage(page *rod.Page) {
	_ = page.Navigate("about:blank")

	select {
	case bf.pagePool <- page:
	default:
		_ = page.Close()
	}
}
