package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IshaanNene/newswire/internal/config"
	"github.com/IshaanNene/newswire/internal/types"
)

// Fetcher is the interface for all page fetcher implementations.
type Fetcher interface {
	// Fetch retrieves the content at rawURL. Non-2xx responses are errors.
	Fetch(ctx context.Context, rawURL string) (*types.Response, error)

	// Close releases any resources held by the fetcher.
	Close() error

	// Type returns the fetcher type identifier.
	Type() string
}

// Set hands out fetchers by type. The browser fetcher is launched on first use
// so configurations that never ask for it do not start Chromium.
type Set struct {
	cfg    *config.Config
	logger *slog.Logger
	http   Fetcher

	mu         sync.Mutex
	browser    Fetcher
	browserErr error
	newBrowser func() (Fetcher, error)
}

// NewSet creates a fetcher set backed by an HTTP fetcher.
func NewSet(cfg *config.Config, logger *slog.Logger) *Set {
	s := &Set{
		cfg:    cfg,
		logger: logger,
		http:   NewHTTPFetcher(&cfg.Scraper, logger),
	}
	s.newBrowser = func() (Fetcher, error) {
		return NewBrowserFetcher(&cfg.Scraper, logger,
			WithMaxPages(cfg.EffectivePoolSize()),
			WithScrolls(cfg.Scraper.BrowserScrolls, 500*time.Millisecond),
		)
	}
	return s
}

// NewStaticSet wraps an existing fetcher, used for every fetcher type.
func NewStaticSet(f Fetcher) *Set {
	return &Set{http: f, browser: f}
}

// Get returns the fetcher for the given type. Unknown and empty types map to HTTP.
func (s *Set) Get(fetcherType string) (Fetcher, error) {
	if fetcherType != "browser" {
		return s.http, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.browser != nil {
		return s.browser, nil
	}
	if s.browserErr != nil {
		return nil, s.browserErr
	}
	if s.newBrowser == nil {
		return s.http, nil
	}
	b, err := s.newBrowser()
	if err != nil {
		s.browserErr = fmt.Errorf("start browser fetcher: %w", err)
		return nil, s.browserErr
	}
	s.browser = b
	return b, nil
}

// Close releases every fetcher that was started.
func (s *Set) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var firstErr error
	if s.http != nil {
		firstErr = s.http.Close()
	}
	if s.browser != nil && s.browser != s.http {
		if err := s.browser.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
