package pipeline

import (
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/IshaanNene/newswire/internal/config"
	"github.com/IshaanNene/newswire/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

const longBody = "The monsoon reached Kerala on Friday, the weather office said. " +
	"Farmers across the state welcomed the monsoon rain after a long dry spell. " +
	"Traffic was slow in Kochi. " +
	"The weather office expects the monsoon rain to cover the state within a week. " +
	"Schools reopened on Monday."

func newRecord() *types.StoredArticle {
	return &types.StoredArticle{
		Title:    "  Monsoon <b>arrives</b> &amp; rain  ",
		URL:      " https://news.test/story/1 ",
		FullText: longBody,
	}
}

func TestPipelineBasic(t *testing.T) {
	p := New(testLogger)
	p.Use(&TrimMiddleware{})

	rec := &types.StoredArticle{Title: "  Hello World  ", URL: "https://example.com", Category: " India "}

	result, err := p.Process(rec)
	if err != nil {
		t.Fatalf("pipeline error: %v", err)
	}
	if result.Title != "Hello World" {
		t.Errorf("expected trimmed title, got %q", result.Title)
	}
	if result.Category != "India" {
		t.Errorf("expected trimmed category, got %q", result.Category)
	}
}

func TestDefaultPipeline(t *testing.T) {
	p := NewDefault(&config.SummaryConfig{MaxSentences: 2}, testLogger)
	if p.Len() != 7 {
		t.Fatalf("expected 7 middlewares, got %d", p.Len())
	}

	result, err := p.Process(newRecord())
	if err != nil {
		t.Fatalf("pipeline error: %v", err)
	}
	if result.Title != "Monsoon arrives & rain" {
		t.Errorf("unexpected title %q", result.Title)
	}
	if result.URL != "https://news.test/story/1" {
		t.Errorf("unexpected url %q", result.URL)
	}
	if result.Category != types.DefaultCategory {
		t.Errorf("expected default category, got %q", result.Category)
	}
	if result.PublicationDate.IsZero() {
		t.Error("expected publication date to be filled")
	}
	if result.Summary == "" || result.Summary == longBody {
		t.Errorf("expected a shortened summary, got %q", result.Summary)
	}
}

func TestDefaultPipelineKeepsCategoryAndSummary(t *testing.T) {
	p := NewDefault(&config.SummaryConfig{MaxSentences: 3}, testLogger)

	rec := newRecord()
	rec.Category = "Breaking"
	rec.Summary = "Existing summary."

	result, err := p.Process(rec)
	if err != nil {
		t.Fatalf("pipeline error: %v", err)
	}
	if result.Category != "Breaking" {
		t.Errorf("category overwritten: %q", result.Category)
	}
	if result.Summary != "Existing summary." {
		t.Errorf("summary overwritten: %q", result.Summary)
	}
}

func TestRequiredFieldsMiddleware(t *testing.T) {
	m := &RequiredFieldsMiddleware{}

	result, err := m.Process(&types.StoredArticle{Title: "Hello", URL: "https://example.com"})
	if err != nil || result == nil {
		t.Error("article with title and url should pass")
	}

	result, _ = m.Process(&types.StoredArticle{URL: "https://example.com"})
	if result != nil {
		t.Error("article without title should be dropped (nil)")
	}
}

func TestPipelineDropStopsChain(t *testing.T) {
	p := New(testLogger)
	p.Use(&RequiredFieldsMiddleware{})
	p.Use(&DefaultCategoryMiddleware{Category: "General"})

	result, err := p.Process(&types.StoredArticle{Title: "   "})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != nil {
		t.Error("expected dropped article")
	}
}

type failingMiddleware struct{}

func (failingMiddleware) Name() string { return "failing" }

func (failingMiddleware) Process(*types.StoredArticle) (*types.StoredArticle, error) {
	return nil, errors.New("boom")
}

func TestPipelineErrorNamesStage(t *testing.T) {
	p := New(testLogger)
	p.Use(&TrimMiddleware{})
	p.Use(failingMiddleware{})

	_, err := p.Process(&types.StoredArticle{Title: "t", URL: "https://example.com/a"})
	var perr *types.PipelineError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PipelineError, got %v", err)
	}
	if perr.Stage != "failing" || perr.URL != "https://example.com/a" {
		t.Errorf("unexpected error fields: %+v", perr)
	}
}

func TestHTMLSanitizeMiddleware(t *testing.T) {
	m := NewHTMLSanitizeMiddleware()
	rec := &types.StoredArticle{Title: `<p>Hello <b>World</b></p> &amp; <a href="x">link</a>`}

	result, err := m.Process(rec)
	if err != nil {
		t.Fatalf("error: %v", err)
	}
	if result.Title != "Hello World & link" {
		t.Errorf("expected 'Hello World & link', got %q", result.Title)
	}
}

func TestTitleTruncateMiddleware(t *testing.T) {
	m := &TitleTruncateMiddleware{MaxRunes: MaxTitleLength}
	rec := &types.StoredArticle{Title: strings.Repeat("अ", MaxTitleLength+20)}

	result, _ := m.Process(rec)
	if n := utf8.RuneCountInString(result.Title); n != MaxTitleLength {
		t.Errorf("expected %d runes, got %d", MaxTitleLength, n)
	}

	short := &types.StoredArticle{Title: "Short"}
	result, _ = m.Process(short)
	if result.Title != "Short" {
		t.Errorf("short title changed: %q", result.Title)
	}
}

func TestPublishedAtMiddleware(t *testing.T) {
	fixed := time.Date(2025, 3, 1, 10, 0, 0, 0, time.FixedZone("IST", 5*3600+1800))
	m := &PublishedAtMiddleware{Now: func() time.Time { return fixed }}

	result, _ := m.Process(&types.StoredArticle{})
	if !result.PublicationDate.Equal(fixed) {
		t.Errorf("expected %v, got %v", fixed, result.PublicationDate)
	}
	if result.PublicationDate.Location() != time.UTC {
		t.Errorf("expected UTC, got %v", result.PublicationDate.Location())
	}
}

func TestSummarizeMiddlewareShortText(t *testing.T) {
	m := &SummarizeMiddleware{MaxSentences: 3}
	result, _ := m.Process(&types.StoredArticle{FullText: "Too short to summarize."})
	if result.Summary != "Too short to summarize." {
		t.Errorf("expected text unchanged, got %q", result.Summary)
	}
}

// --- Benchmarks ---

func BenchmarkPipeline(b *testing.B) {
	p := NewDefault(&config.SummaryConfig{MaxSentences: 3}, testLogger)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		p.Process(newRecord())
	}
}
