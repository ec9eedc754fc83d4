package observability

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
)

// Metrics tracks operational counters for scrape runs.
type Metrics struct {
	// Run metrics
	RunsStarted   atomic.Int64
	RunsCompleted atomic.Int64
	RunsStopped   atomic.Int64
	RunsFailed    atomic.Int64

	// Source metrics
	SourcesDispatched atomic.Int64
	SourcesFailed     atomic.Int64
	SourcesTimedOut   atomic.Int64
	SourcesSkipped    atomic.Int64

	// Page metrics
	PagesFetched    atomic.Int64
	FetchErrors     atomic.Int64
	BytesDownloaded atomic.Int64

	// Article metrics
	CandidatesFound    atomic.Int64
	ArticlesExtracted  atomic.Int64
	ExtractionFailures atomic.Int64
	ArticlesStored     atomic.Int64
	ArticlesDuplicate  atomic.Int64
	PersistErrors      atomic.Int64

	ActiveSources atomic.Int32

	logger *slog.Logger
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(logger *slog.Logger) *Metrics {
	return &Metrics{
		logger: logger.With("component", "metrics"),
	}
}

// ServeHTTP serves metrics in Prometheus text exposition format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	metrics := []struct {
		name  string
		help  string
		kind  string
		value int64
	}{
		{"newswire_runs_started_total", "Total scrape runs started", "counter", m.RunsStarted.Load()},
		{"newswire_runs_completed_total", "Total scrape runs completed", "counter", m.RunsCompleted.Load()},
		{"newswire_runs_stopped_total", "Total scrape runs stopped by request", "counter", m.RunsStopped.Load()},
		{"newswire_runs_failed_total", "Total scrape runs ended by an error", "counter", m.RunsFailed.Load()},
		{"newswire_sources_dispatched_total", "Total source tasks dispatched", "counter", m.SourcesDispatched.Load()},
		{"newswire_sources_failed_total", "Total source tasks that failed", "counter", m.SourcesFailed.Load()},
		{"newswire_sources_timed_out_total", "Total source tasks that timed out", "counter", m.SourcesTimedOut.Load()},
		{"newswire_sources_skipped_total", "Total source tasks skipped after a stop request", "counter", m.SourcesSkipped.Load()},
		{"newswire_pages_fetched_total", "Total pages fetched", "counter", m.PagesFetched.Load()},
		{"newswire_fetch_errors_total", "Total page fetch errors", "counter", m.FetchErrors.Load()},
		{"newswire_bytes_downloaded_total", "Total bytes downloaded", "counter", m.BytesDownloaded.Load()},
		{"newswire_candidates_found_total", "Total candidate article links discovered", "counter", m.CandidatesFound.Load()},
		{"newswire_articles_extracted_total", "Total articles extracted", "counter", m.ArticlesExtracted.Load()},
		{"newswire_extraction_failures_total", "Total pages that yielded no article", "counter", m.ExtractionFailures.Load()},
		{"newswire_articles_stored_total", "Total articles persisted", "counter", m.ArticlesStored.Load()},
		{"newswire_articles_duplicate_total", "Total articles skipped as already stored", "counter", m.ArticlesDuplicate.Load()},
		{"newswire_persist_errors_total", "Total article persistence errors", "counter", m.PersistErrors.Load()},
		{"newswire_active_sources", "Source tasks currently running", "gauge", int64(m.ActiveSources.Load())},
	}

	for _, metric := range metrics {
		fmt.Fprintf(w, "# HELP %s %s\n", metric.name, metric.help)
		fmt.Fprintf(w, "# TYPE %s %s\n", metric.name, metric.kind)
		fmt.Fprintf(w, "%s %d\n", metric.name, metric.value)
	}
}

// Snapshot returns all metrics as a map.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"runs_started":        m.RunsStarted.Load(),
		"runs_completed":      m.RunsCompleted.Load(),
		"runs_stopped":        m.RunsStopped.Load(),
		"runs_failed":         m.RunsFailed.Load(),
		"sources_dispatched":  m.SourcesDispatched.Load(),
		"sources_failed":      m.SourcesFailed.Load(),
		"sources_timed_out":   m.SourcesTimedOut.Load(),
		"sources_skipped":     m.SourcesSkipped.Load(),
		"pages_fetched":       m.PagesFetched.Load(),
		"fetch_errors":        m.FetchErrors.Load(),
		"bytes_downloaded":    m.BytesDownloaded.Load(),
		"candidates_found":    m.CandidatesFound.Load(),
		"articles_extracted":  m.ArticlesExtracted.Load(),
		"extraction_failures": m.ExtractionFailures.Load(),
		"articles_stored":     m.ArticlesStored.Load(),
		"articles_duplicate":  m.ArticlesDuplicate.Load(),
		"persist_errors":      m.PersistErrors.Load(),
		"active_sources":      int64(m.ActiveSources.Load()),
	}
}
