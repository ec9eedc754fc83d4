package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/newswire/internal/config"
	"github.com/IshaanNene/newswire/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

// fakeScraper runs a per-source behaviour keyed by source name.
type fakeScraper struct {
	mu     sync.Mutex
	calls  []string
	behave map[string]func(ctx context.Context, src config.SourceConfig) types.SourceResult
}

func (f *fakeScraper) Scrape(ctx context.Context, src config.SourceConfig, stop types.StopSignal) types.SourceResult {
	f.mu.Lock()
	f.calls = append(f.calls, src.Name)
	f.mu.Unlock()
	return f.behave[src.Name](ctx, src)
}

func (f *fakeScraper) called() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func articles(source string, n int) []types.Article {
	out := make([]types.Article, n)
	for i := range out {
		out[i] = types.Article{
			Title:  fmt.Sprintf("%s %d", source, i+1),
			URL:    fmt.Sprintf("https://%s.test/story/%d", source, i+1),
			Source: source,
		}
	}
	return out
}

func after(d time.Duration, res types.SourceResult) func(context.Context, config.SourceConfig) types.SourceResult {
	return func(ctx context.Context, _ config.SourceConfig) types.SourceResult {
		select {
		case <-time.After(d):
		case <-ctx.Done():
		}
		return res
	}
}

func hang(ctx context.Context, src config.SourceConfig) types.SourceResult {
	<-ctx.Done()
	return types.SourceResult{Source: src.Name, Articles: articles(src.Name, 1)}
}

func testConfig(names ...string) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Scraper.SourceTimeout = 150 * time.Millisecond
	cfg.Sources = nil
	for _, name := range names {
		cfg.Sources = append(cfg.Sources, config.SourceConfig{Name: name, MaxArticles: 3})
	}
	return cfg
}

func TestRunAllCompletionOrderAndGlobalCap(t *testing.T) {
	cfg := testConfig("A", "B", "C")
	cfg.Sources[1].MaxArticles = 1
	cfg.Sources[2].MaxArticles = 1

	scraper := &fakeScraper{behave: map[string]func(context.Context, config.SourceConfig) types.SourceResult{
		"A": after(40*time.Millisecond, types.SourceResult{Source: "A", Articles: articles("A", 3)}),
		"B": hang,
		"C": after(5*time.Millisecond, types.SourceResult{Source: "C", Articles: articles("C", 1)}),
	}}

	agg := NewOrchestrator(cfg, scraper, nil, testLogger).RunAll(context.Background(), cfg.Sources, types.NeverStop)

	assert.Equal(t, 4, agg.Collected)
	require.Len(t, agg.Articles, 3)
	assert.Equal(t, "C 1", agg.Articles[0].Title, "fastest source comes first")
	assert.Equal(t, "A 1", agg.Articles[1].Title)
	assert.Equal(t, "A 2", agg.Articles[2].Title)

	require.Len(t, agg.Reports, 3)
	assert.Equal(t, 3, agg.Reports[0].Articles)
	assert.True(t, agg.Reports[1].TimedOut)
	assert.Zero(t, agg.Reports[1].Articles, "partial work of a timed-out source is discarded")
	assert.Equal(t, 1, agg.Reports[2].Articles)
	assert.Equal(t, 2, agg.Succeeded())
	assert.Equal(t, 1, agg.Failed())
}

func TestRunAllTimeoutDoesNotBlockSiblings(t *testing.T) {
	cfg := testConfig("slow", "fast")
	scraper := &fakeScraper{behave: map[string]func(context.Context, config.SourceConfig) types.SourceResult{
		"slow": hang,
		"fast": after(time.Millisecond, types.SourceResult{Source: "fast", Articles: articles("fast", 1)}),
	}}

	start := time.Now()
	agg := NewOrchestrator(cfg, scraper, nil, testLogger).RunAll(context.Background(), cfg.Sources, types.NeverStop)

	assert.Less(t, time.Since(start), time.Second)
	require.Len(t, agg.Articles, 1)
	assert.Equal(t, "fast", agg.Articles[0].Source)
}

func TestRunAllAllFailed(t *testing.T) {
	cfg := testConfig("x", "y")
	scraper := &fakeScraper{behave: map[string]func(context.Context, config.SourceConfig) types.SourceResult{
		"x": func(context.Context, config.SourceConfig) types.SourceResult {
			return types.SourceResult{Source: "x", Err: errors.New("listing 503")}
		},
		"y": func(context.Context, config.SourceConfig) types.SourceResult {
			panic("selector blew up")
		},
	}}

	agg := NewOrchestrator(cfg, scraper, nil, testLogger).RunAll(context.Background(), cfg.Sources, types.NeverStop)

	assert.Empty(t, agg.Articles)
	assert.Zero(t, agg.Collected)
	assert.Equal(t, 2, agg.Failed())
	assert.Contains(t, agg.Reports[1].Error, "panicked")
}

func TestRunAllStopBeforeDispatch(t *testing.T) {
	cfg := testConfig("A", "B", "C")
	scraper := &fakeScraper{behave: map[string]func(context.Context, config.SourceConfig) types.SourceResult{
		"A": after(0, types.SourceResult{Source: "A", Articles: articles("A", 1)}),
		"B": after(0, types.SourceResult{Source: "B", Articles: articles("B", 1)}),
		"C": after(0, types.SourceResult{Source: "C", Articles: articles("C", 1)}),
	}}

	// Stop becomes visible after the first dispatch check.
	var checks atomic.Int64
	stop := types.StopFunc(func() bool { return checks.Add(1) > 2 })

	agg := NewOrchestrator(cfg, scraper, nil, testLogger).RunAll(context.Background(), cfg.Sources, stop)

	assert.Equal(t, []string{"A"}, scraper.called())
	assert.False(t, agg.Reports[0].Skipped)
	assert.True(t, agg.Reports[1].Skipped)
	assert.True(t, agg.Reports[2].Skipped)
	assert.Len(t, agg.Articles, 1)
}

func TestRunAllStoppedSourceKeepsPartialResult(t *testing.T) {
	cfg := testConfig("A", "B")
	scraper := &fakeScraper{behave: map[string]func(context.Context, config.SourceConfig) types.SourceResult{
		"A": after(0, types.SourceResult{Source: "A", Articles: articles("A", 1), Err: types.ErrStopped}),
		"B": after(0, types.SourceResult{Source: "B", Err: errors.New("listing fetch failed")}),
	}}

	agg := NewOrchestrator(cfg, scraper, nil, testLogger).RunAll(context.Background(), cfg.Sources, types.NeverStop)

	require.Len(t, agg.Articles, 1)
	assert.True(t, agg.Reports[0].Stopped)
	assert.Empty(t, agg.Reports[0].Error)
	assert.False(t, agg.Reports[0].Failed())
	assert.Equal(t, 1, agg.Reports[0].Articles)
	assert.True(t, agg.Reports[1].Failed())
	assert.Equal(t, 1, agg.Failed())
}

func TestRunAllPoolBound(t *testing.T) {
	cfg := testConfig("a", "b", "c", "d", "e")
	cfg.Scraper.PoolSize = 2
	cfg.Scraper.SourceTimeout = time.Second

	var active, peak atomic.Int64
	track := func(ctx context.Context, src config.SourceConfig) types.SourceResult {
		n := active.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		active.Add(-1)
		return types.SourceResult{Source: src.Name, Articles: articles(src.Name, 1)}
	}
	behave := map[string]func(context.Context, config.SourceConfig) types.SourceResult{}
	for _, s := range cfg.Sources {
		behave[s.Name] = track
	}

	agg := NewOrchestrator(cfg, &fakeScraper{behave: behave}, nil, testLogger).RunAll(context.Background(), cfg.Sources, types.NeverStop)

	assert.LessOrEqual(t, peak.Load(), int64(2))
	assert.Equal(t, 5, agg.Collected)
	assert.Len(t, agg.Articles, cfg.Scraper.MaxArticles)
}
