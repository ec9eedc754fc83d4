package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/IshaanNene/newswire/internal/config"
	"github.com/IshaanNene/newswire/internal/observability"
	"github.com/IshaanNene/newswire/internal/types"
)

// SourceScraper collects articles from one source.
type SourceScraper interface {
	Scrape(ctx context.Context, src config.SourceConfig, stop types.StopSignal) types.SourceResult
}

// Orchestrator runs every source concurrently on a bounded pool and merges
// their results in completion order.
type Orchestrator struct {
	scraper       SourceScraper
	poolSize      int
	sourceTimeout time.Duration
	maxArticles   int
	metrics       *observability.Metrics
	logger        *slog.Logger
}

// NewOrchestrator creates an orchestrator from the scraper configuration.
func NewOrchestrator(cfg *config.Config, scraper SourceScraper, metrics *observability.Metrics, logger *slog.Logger) *Orchestrator {
	if metrics == nil {
		metrics = observability.NewMetrics(logger)
	}
	return &Orchestrator{
		scraper:       scraper,
		poolSize:      cfg.EffectivePoolSize(),
		sourceTimeout: cfg.Scraper.SourceTimeout,
		maxArticles:   cfg.Scraper.MaxArticles,
		metrics:       metrics,
		logger:        logger.With("component", "orchestrator"),
	}
}

type taskResult struct {
	index    int
	articles []types.Article
	report   types.SourceReport
}

// RunAll scrapes every source and returns the merged result. It never fails:
// errors, panics and timeouts of single sources degrade to empty
// contributions that are recorded in the per-source reports.
func (o *Orchestrator) RunAll(ctx context.Context, sources []config.SourceConfig, stop types.StopSignal) types.AggregateResult {
	if stop == nil {
		stop = types.NeverStop
	}

	reports := make([]types.SourceReport, len(sources))
	for i, src := range sources {
		reports[i].Source = src.Name
	}

	poolSize := o.poolSize
	if poolSize < 1 {
		poolSize = len(sources)
	}
	if poolSize < 1 {
		poolSize = 1
	}
	sem := semaphore.NewWeighted(int64(poolSize))
	done := make(chan taskResult, len(sources))
	dispatched := 0

	for i, src := range sources {
		if stop.StopRequested() {
			o.skip(&reports[i], types.ErrStopped.Error())
			continue
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			o.skip(&reports[i], err.Error())
			continue
		}
		// A stop may have arrived while waiting for a free slot.
		if stop.StopRequested() {
			sem.Release(1)
			o.skip(&reports[i], types.ErrStopped.Error())
			continue
		}

		dispatched++
		o.metrics.SourcesDispatched.Add(1)
		go func(index int, src config.SourceConfig) {
			defer sem.Release(1)
			done <- o.runTask(ctx, index, src, stop)
		}(i, src)
	}

	var articles []types.Article
	for n := 0; n < dispatched; n++ {
		res := <-done
		reports[res.index] = res.report
		articles = append(articles, res.articles...)
	}

	agg := types.AggregateResult{
		Collected: len(articles),
		Reports:   reports,
	}
	if o.maxArticles > 0 && len(articles) > o.maxArticles {
		articles = articles[:o.maxArticles]
	}
	agg.Articles = articles

	o.logger.Info("sources finished",
		"sources", len(sources),
		"succeeded", agg.Succeeded(),
		"failed", agg.Failed(),
		"collected", agg.Collected,
		"kept", len(agg.Articles),
	)
	return agg
}

func (o *Orchestrator) skip(report *types.SourceReport, reason string) {
	report.Skipped = true
	o.metrics.SourcesSkipped.Add(1)
	o.logger.Info("source skipped", "source", report.Source, "reason", reason)
}

// runTask runs one source under its own deadline. A task that overruns the
// deadline is abandoned and its partial work discarded.
func (o *Orchestrator) runTask(ctx context.Context, index int, src config.SourceConfig, stop types.StopSignal) taskResult {
	start := time.Now()
	o.metrics.ActiveSources.Add(1)
	defer o.metrics.ActiveSources.Add(-1)

	taskCtx, cancel := context.WithTimeout(ctx, o.sourceTimeout)
	defer cancel()

	inner := make(chan types.SourceResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				inner <- types.SourceResult{Source: src.Name, Err: fmt.Errorf("source task panicked: %v", r)}
			}
		}()
		inner <- o.scraper.Scrape(taskCtx, src, stop)
	}()

	report := types.SourceReport{Source: src.Name}

	var res types.SourceResult
	select {
	case res = <-inner:
	case <-taskCtx.Done():
	}
	report.Duration = time.Since(start)

	// A result that only arrived because the deadline fired still counts as a timeout.
	if err := taskCtx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			report.TimedOut = true
			report.Error = types.ErrSourceTimeout.Error()
			o.metrics.SourcesTimedOut.Add(1)
			o.logger.Warn("source timed out", "source", src.Name, "timeout", o.sourceTimeout)
		} else {
			report.Error = err.Error()
			o.metrics.SourcesFailed.Add(1)
			o.logger.Warn("source cancelled", "source", src.Name, "error", err)
		}
		return taskResult{index: index, report: report}
	}

	switch {
	case errors.Is(res.Err, types.ErrStopped):
		report.Stopped = true
		o.logger.Info("source stopped early", "source", src.Name, "articles", len(res.Articles))
	case res.Err != nil:
		report.Error = res.Err.Error()
		o.metrics.SourcesFailed.Add(1)
		o.logger.Warn("source failed", "source", src.Name, "error", res.Err, "duration", report.Duration)
	}
	articles := res.Articles
	if src.MaxArticles > 0 && len(articles) > src.MaxArticles {
		articles = articles[:src.MaxArticles]
	}
	report.Articles = len(articles)

	return taskResult{index: index, articles: articles, report: report}
}
