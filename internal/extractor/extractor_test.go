package extractor

import (
	"errors"
	"log/slog"
	"os"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IshaanNene/newswire/internal/config"
	"github.com/IshaanNene/newswire/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func newTestExtractor(opts ...Option) *Extractor {
	cfg := config.DefaultConfig().Scraper
	return New(&cfg, testLogger, opts...)
}

const longParagraph = "The state cabinet approved a new flood relief package on Monday, " +
	"allocating funds for rebuilding roads and bridges damaged during the monsoon."

func TestExtractStoryBody(t *testing.T) {
	html := `<html><body>
		<h1>  Cabinet   approves
		relief package </h1>
		<div class="story-body"><p>` + longParagraph + `</p><p>   </p><p>Officials said work begins next week.</p></div>
		<p>Unrelated footer paragraph.</p>
	</body></html>`

	article, err := newTestExtractor().Extract([]byte(html), "https://news.test/story/1")
	require.NoError(t, err)

	assert.Equal(t, "Cabinet approves relief package", article.Title)
	assert.Equal(t, longParagraph+" Officials said work begins next week.", article.FullText)
	assert.Equal(t, types.DefaultCategory, article.Category)
	assert.Equal(t, "https://news.test/story/1", article.URL)
	assert.NotContains(t, article.FullText, "footer")
}

func TestExtractTitlePriority(t *testing.T) {
	html := `<html><body>
		<div class="title">Generic title</div>
		<div class="headline">Headline wins</div>
		<p>` + longParagraph + `</p>
	</body></html>`

	article, err := newTestExtractor().Extract([]byte(html), "https://news.test/a")
	require.NoError(t, err)
	assert.Equal(t, "Headline wins", article.Title)
}

func TestExtractStructuredDataTitle(t *testing.T) {
	html := `<html><body>
		<span data-testid="headline">  Markets rally on rate cut </span>
		<div data-testid="text-block"><p>` + longParagraph + `</p></div>
	</body></html>`

	article, err := newTestExtractor().Extract([]byte(html), "https://news.test/b")
	require.NoError(t, err)
	assert.Equal(t, "Markets rally on rate cut", article.Title)
	assert.Equal(t, longParagraph, article.FullText)
}

func TestExtractFallbackParagraphs(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body><h1>Fallback</h1>")
	for i := 0; i < 15; i++ {
		b.WriteString("<p>paragraph number " + string(rune('a'+i)) + " with enough words to count</p>")
	}
	b.WriteString("</body></html>")

	article, err := newTestExtractor().Extract([]byte(b.String()), "https://news.test/c")
	require.NoError(t, err)
	assert.Contains(t, article.FullText, "paragraph number j")
	assert.NotContains(t, article.FullText, "paragraph number k", "only the first 10 paragraphs are used")
}

func TestExtractShortTextRejected(t *testing.T) {
	// Three short paragraphs totalling 40 characters.
	html := `<html><body><h1>Short story</h1>
		<p>Twelve chars</p><p>Thirteen char</p><p>Fifteen chars..</p>
	</body></html>`

	article, err := newTestExtractor().Extract([]byte(html), "https://news.test/short")
	assert.Nil(t, article)
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrTextTooShort))

	var extractErr *types.ExtractError
	require.True(t, errors.As(err, &extractErr))
	assert.Equal(t, "https://news.test/short", extractErr.URL)
}

func TestExtractNoTitle(t *testing.T) {
	html := `<html><body><h1>   </h1><p>` + longParagraph + `</p></body></html>`

	_, err := newTestExtractor().Extract([]byte(html), "https://news.test/untitled")
	assert.True(t, errors.Is(err, types.ErrNoTitle))
}

func TestExtractBoundaryLength(t *testing.T) {
	body := strings.Repeat("é", 100)
	html := `<html><body><h1>T</h1><div class="content"><p>` + body + `</p></div></body></html>`

	article, err := newTestExtractor().Extract([]byte(html), "https://news.test/d")
	require.NoError(t, err)
	assert.Equal(t, 100, utf8.RuneCountInString(article.FullText))
}

func TestExtractRecoversMatcherPanic(t *testing.T) {
	boom := Matcher{Name: "boom", Find: func(*goquery.Document) []string { panic("bad selector state") }}
	e := newTestExtractor(WithTitleMatchers(boom))

	article, err := e.Extract([]byte("<html><h1>x</h1></html>"), "https://news.test/panic")
	assert.Nil(t, article)
	assert.True(t, errors.Is(err, types.ErrUnparseable))
}

func TestExtractorNeverReturnsInvalidArticle(t *testing.T) {
	pages := []string{
		"",
		"<html></html>",
		"<h1>Only title</h1>",
		"<p>" + longParagraph + "</p>",
		"<h1>Title</h1><div class='post-content'><p>tiny</p></div>",
		"<h1>Title</h1><div class='post-content'><p>" + longParagraph + "</p></div>",
		"<<<not really html>>>",
	}
	e := newTestExtractor()
	for _, page := range pages {
		article, err := e.Extract([]byte(page), "https://news.test/x")
		if err != nil {
			assert.Nil(t, article)
			continue
		}
		assert.NotEmpty(t, article.Title)
		assert.GreaterOrEqual(t, utf8.RuneCountInString(article.FullText), 100)
	}
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "a b c", Normalize("  a\n\tb   c "))
	assert.Equal(t, "", Normalize(" \n "))
}

func TestSelectorOptions(t *testing.T) {
	html := `<html><body>
		<h1>Site banner</h1>
		<h2 class="story-title">Configured title</h2>
		<div class="story-body"><p>Default body paragraph that should lose to the configured one.</p></div>
		<section class="main-copy"><p>` + longParagraph + `</p></section>
	</body></html>`

	article, err := newTestExtractor(SelectorOptions([]string{".story-title"}, []string{".main-copy p"})...).
		Extract([]byte(html), "https://news.test/story/3")
	require.NoError(t, err)
	assert.Equal(t, "Configured title", article.Title)
	assert.Equal(t, longParagraph, article.FullText)

	assert.Empty(t, SelectorOptions(nil, nil))
}
