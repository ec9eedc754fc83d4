// Package source scrapes a single news outlet: it fetches the listing page,
// discovers candidate article links and extracts articles from them.
package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IshaanNene/newswire/internal/config"
	"github.com/IshaanNene/newswire/internal/extractor"
	"github.com/IshaanNene/newswire/internal/fetcher"
	"github.com/IshaanNene/newswire/internal/observability"
	"github.com/IshaanNene/newswire/internal/types"
)

// Scraper runs the per-source collection loop.
type Scraper struct {
	minDelay  time.Duration
	maxDelay  time.Duration
	fetchers  *fetcher.Set
	extractor *extractor.Extractor
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewScraper creates a source scraper.
func NewScraper(cfg *config.ScraperConfig, fetchers *fetcher.Set, ext *extractor.Extractor, metrics *observability.Metrics, logger *slog.Logger) *Scraper {
	if metrics == nil {
		metrics = observability.NewMetrics(logger)
	}
	return &Scraper{
		minDelay:  cfg.PolitenessMin,
		maxDelay:  cfg.PolitenessMax,
		fetchers:  fetchers,
		extractor: ext,
		metrics:   metrics,
		logger:    logger.With("component", "source"),
	}
}

// Scrape collects up to src.MaxArticles articles from src. Failures of single
// candidates are logged and skipped; a failed listing fetch yields an empty
// result with Err set. The stop signal is checked before the listing fetch
// and before each candidate; a stop returns what has been collected so far
// with Err set to types.ErrStopped.
func (s *Scraper) Scrape(ctx context.Context, src config.SourceConfig, stop types.StopSignal) types.SourceResult {
	start := time.Now()
	result := types.SourceResult{Source: src.Name}
	logger := s.logger.With("source", src.Name)

	defer func() {
		result.Duration = time.Since(start)
	}()

	if stop.StopRequested() {
		logger.Info("stop requested before listing fetch")
		result.Err = types.ErrStopped
		return result
	}

	candidates, err := s.discover(ctx, src)
	if err != nil {
		logger.Warn("listing fetch failed", "url", src.ListingURL, "error", err)
		result.Err = err
		return result
	}
	s.metrics.CandidatesFound.Add(int64(len(candidates)))
	logger.Info("candidates discovered", "count", len(candidates))

	articleFetcher, err := s.fetchers.Get("http")
	if err != nil {
		result.Err = err
		return result
	}

	for i, cand := range candidates {
		if stop.StopRequested() {
			logger.Info("stop requested, ending source early", "collected", len(result.Articles))
			result.Err = types.ErrStopped
			break
		}
		if ctx.Err() != nil {
			break
		}

		article, err := s.scrapeArticle(ctx, articleFetcher, cand)
		if err != nil {
			logger.Debug("candidate skipped", "url", cand.URL, "error", err)
			continue
		}

		if src.Category != "" {
			article.Category = src.Category
		}
		article.Source = src.Name
		result.Articles = append(result.Articles, *article)
		logger.Info("article scraped", "url", article.URL, "title", truncate(article.Title, 60))

		if len(result.Articles) >= src.MaxArticles {
			break
		}
		if i < len(candidates)-1 && !sleepCtx(ctx, s.politenessDelay(src)) {
			break
		}
	}

	return result
}

// discover fetches the listing page and returns its candidate links.
func (s *Scraper) discover(ctx context.Context, src config.SourceConfig) ([]types.Candidate, error) {
	f, err := s.fetchers.Get(src.Fetcher)
	if err != nil {
		return nil, err
	}

	resp, err := f.Fetch(ctx, src.ListingURL)
	if err != nil {
		s.metrics.FetchErrors.Add(1)
		return nil, err
	}
	s.metrics.PagesFetched.Add(1)
	s.metrics.BytesDownloaded.Add(int64(len(resp.Body)))

	doc, err := resp.Document()
	if err != nil {
		return nil, fmt.Errorf("parse listing %s: %w", src.ListingURL, err)
	}
	return DiscoverCandidates(doc, src)
}

// scrapeArticle fetches one candidate and extracts its article.
func (s *Scraper) scrapeArticle(ctx context.Context, f fetcher.Fetcher, cand types.Candidate) (*types.Article, error) {
	resp, err := f.Fetch(ctx, cand.URL)
	if err != nil {
		s.metrics.FetchErrors.Add(1)
		return nil, err
	}
	s.metrics.PagesFetched.Add(1)
	s.metrics.BytesDownloaded.Add(int64(len(resp.Body)))

	article, err := s.extractor.ExtractResponse(resp)
	if err != nil {
		s.metrics.ExtractionFailures.Add(1)
		var extractErr *types.ExtractError
		if !errors.As(err, &extractErr) {
			err = &types.ExtractError{URL: cand.URL, Err: err}
		}
		return nil, err
	}
	s.metrics.ArticlesExtracted.Add(1)
	article.URL = cand.URL
	return article, nil
}

// politenessDelay jitters the source's delay within the configured bounds.
func (s *Scraper) politenessDelay(src config.SourceConfig) time.Duration {
	return fetcher.RandomDelay(src.PolitenessDelay, s.minDelay, s.maxDelay)
}

// sleepCtx waits for d and reports false if ctx ended first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
