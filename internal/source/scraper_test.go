package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/newswire/internal/config"
	"github.com/IshaanNene/newswire/internal/extractor"
	"github.com/IshaanNene/newswire/internal/fetcher"
	"github.com/IshaanNene/newswire/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

const articleText = "Rescue teams reached the flooded villages early on Tuesday morning, " +
	"evacuating hundreds of residents to relief camps set up by the district administration."

func articlePage(title string) string {
	return `<html><body><h1>` + title + `</h1><div class="article-body"><p>` + articleText + `</p></div></body></html>`
}

// newsSite serves a listing page at /latest and article pages under /story/.
type newsSite struct {
	*httptest.Server
	hits atomic.Int64
}

func newNewsSite(t *testing.T, listing string, articles map[string]string) *newsSite {
	t.Helper()
	site := &newsSite{}
	site.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		site.hits.Add(1)
		if r.URL.Path == "/latest" {
			_, _ = w.Write([]byte(listing))
			return
		}
		body, ok := articles[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(site.Close)
	return site
}

func newTestScraper() *Scraper {
	cfg := config.DefaultConfig()
	cfg.Scraper.RequestTimeout = 2 * time.Second
	f := fetcher.NewHTTPFetcher(&cfg.Scraper, testLogger)
	return NewScraper(&cfg.Scraper, fetcher.NewStaticSet(f), extractor.New(&cfg.Scraper, testLogger), nil, testLogger)
}

func testSource(site *newsSite) config.SourceConfig {
	return config.SourceConfig{
		Name:            "Test Daily",
		ListingURL:      site.URL + "/latest",
		PathMarkers:     []string{"/story/"},
		ScanWindow:      10,
		MaxArticles:     2,
		PolitenessDelay: time.Millisecond,
		Fetcher:         "http",
	}
}

func TestDiscoverCandidates(t *testing.T) {
	listing := `<html><body>
		<a href="/story/one">One</a>
		<a href="/story/one/#comments">One again</a>
		<a href="/sports/two">Not a story</a>
		<a href="javascript:void(0)">JS</a>
		<a href="https://other.test/story/three">Three</a>
		<a href="#top">Top</a>
		<a href="/story/four?b=2&a=1">Four</a>
		<a href="/story/four?a=1&b=2">Four again</a>
		<a href="/story/five">Five</a>
	</body></html>`
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(listing))
	require.NoError(t, err)

	src := config.SourceConfig{
		Name:        "Example",
		ListingURL:  "https://www.example.com/latest-news",
		PathMarkers: []string{"/story/"},
		ScanWindow:  3,
	}
	candidates, err := DiscoverCandidates(doc, src)
	require.NoError(t, err)

	var urls []string
	for _, c := range candidates {
		assert.Equal(t, "Example", c.Source)
		urls = append(urls, c.URL)
	}
	assert.Equal(t, []string{
		"https://www.example.com/story/one",
		"https://other.test/story/three",
		"https://www.example.com/story/four?a=1&b=2",
	}, urls)
}

func TestDiscoverUsesBaseURL(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<a href="/news/x">x</a>`))
	require.NoError(t, err)

	src := config.SourceConfig{
		Name:        "Example",
		ListingURL:  "https://feeds.example.com/latest",
		BaseURL:     "https://www.example.com/ignored/path",
		PathMarkers: []string{"/news/"},
		ScanWindow:  5,
	}
	candidates, err := DiscoverCandidates(doc, src)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "https://www.example.com/news/x", candidates[0].URL)
}

func TestScrapeRespectsCapAndCategory(t *testing.T) {
	listing := `<a href="/story/a">a</a><a href="/story/broken">b</a><a href="/story/b">b</a><a href="/story/c">c</a>`
	site := newNewsSite(t, listing, map[string]string{
		"/story/a":      articlePage("First"),
		"/story/broken": "<html><h1>Broken</h1><p>too short</p></html>",
		"/story/b":      articlePage("Second"),
		"/story/c":      articlePage("Third"),
	})

	src := testSource(site)
	src.Category = "India"

	result := newTestScraper().Scrape(context.Background(), src, types.NeverStop)
	require.NoError(t, result.Err)
	require.Len(t, result.Articles, 2)

	assert.Equal(t, "First", result.Articles[0].Title)
	assert.Equal(t, "Second", result.Articles[1].Title)
	for _, a := range result.Articles {
		assert.Equal(t, "India", a.Category)
		assert.Equal(t, "Test Daily", a.Source)
		assert.True(t, strings.HasPrefix(a.URL, site.URL))
	}
	// listing + a + broken + b; c is never requested once the cap is reached.
	assert.EqualValues(t, 4, site.hits.Load())
}

func TestScrapeDefaultCategory(t *testing.T) {
	site := newNewsSite(t, `<a href="/story/a">a</a>`, map[string]string{"/story/a": articlePage("Only")})

	result := newTestScraper().Scrape(context.Background(), testSource(site), types.NeverStop)
	require.Len(t, result.Articles, 1)
	assert.Equal(t, types.DefaultCategory, result.Articles[0].Category)
}

func TestScrapeListingFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	src := config.SourceConfig{
		Name:        "Down",
		ListingURL:  srv.URL + "/latest",
		PathMarkers: []string{"/story/"},
		ScanWindow:  5,
		MaxArticles: 1,
	}
	result := newTestScraper().Scrape(context.Background(), src, types.NeverStop)
	assert.Error(t, result.Err)
	assert.Empty(t, result.Articles)
}

func TestScrapeStopBeforeListing(t *testing.T) {
	site := newNewsSite(t, `<a href="/story/a">a</a>`, map[string]string{"/story/a": articlePage("A")})

	stopped := types.StopFunc(func() bool { return true })
	result := newTestScraper().Scrape(context.Background(), testSource(site), stopped)

	assert.ErrorIs(t, result.Err, types.ErrStopped)
	assert.Empty(t, result.Articles)
	assert.Zero(t, site.hits.Load(), "no network call after stop")
}

func TestScrapeStopMidSource(t *testing.T) {
	listing := `<a href="/story/a">a</a><a href="/story/b">b</a><a href="/story/c">c</a>`
	site := newNewsSite(t, listing, map[string]string{
		"/story/a": articlePage("A"),
		"/story/b": articlePage("B"),
		"/story/c": articlePage("C"),
	})

	src := testSource(site)
	src.MaxArticles = 3

	// Allow the listing check and the first candidate check, then stop.
	var checks atomic.Int64
	stop := types.StopFunc(func() bool { return checks.Add(1) > 2 })

	result := newTestScraper().Scrape(context.Background(), src, stop)
	require.Len(t, result.Articles, 1)
	assert.Equal(t, "A", result.Articles[0].Title)
	assert.ErrorIs(t, result.Err, types.ErrStopped)
}

func TestPolitenessDelayStaysInBounds(t *testing.T) {
	s := newTestScraper()
	for _, src := range config.DefaultSources() {
		for i := 0; i < 500; i++ {
			d := s.politenessDelay(src)
			require.GreaterOrEqual(t, d, 300*time.Millisecond, src.Name)
			require.LessOrEqual(t, d, 500*time.Millisecond, src.Name)
		}
	}
}

func TestScrapeNoDuplicateURLs(t *testing.T) {
	var links strings.Builder
	for i := 0; i < 4; i++ {
		fmt.Fprintf(&links, `<a href="/story/same">x</a><a href="/story/same/#c%d">y</a>`, i)
	}
	site := newNewsSite(t, links.String(), map[string]string{"/story/same": articlePage("Same")})

	src := testSource(site)
	src.MaxArticles = 5

	result := newTestScraper().Scrape(context.Background(), src, types.NeverStop)
	assert.Len(t, result.Articles, 1)
}
