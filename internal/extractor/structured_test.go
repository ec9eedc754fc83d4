package extractor

import (
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func docFrom(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestPublishedAt(t *testing.T) {
	want := time.Date(2025, 3, 4, 5, 30, 0, 0, time.UTC)

	tests := []struct {
		name string
		html string
		want time.Time
	}{
		{
			name: "json-ld object",
			html: `<script type="application/ld+json">{"@type":"NewsArticle","datePublished":"2025-03-04T11:00:00+05:30"}</script>`,
			want: want,
		},
		{
			name: "json-ld graph",
			html: `<script type="application/ld+json">{"@graph":[{"@type":"WebPage"},{"@type":"NewsArticle","datePublished":"2025-03-04T05:30:00Z"}]}</script>`,
			want: want,
		},
		{
			name: "json-ld array",
			html: `<script type="application/ld+json">[{"@type":"NewsArticle","datePublished":"2025-03-04T05:30:00Z"}]</script>`,
			want: want,
		},
		{
			name: "meta tag",
			html: `<meta property="article:published_time" content="2025-03-04T05:30:00Z">`,
			want: want,
		},
		{
			name: "time element",
			html: `<time datetime="2025-03-04">March 4</time>`,
			want: time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "malformed json falls through to meta",
			html: `<script type="application/ld+json">{broken</script><meta itemprop="datePublished" content="2025-03-04T05:30:00Z">`,
			want: want,
		},
		{
			name: "nothing declared",
			html: `<p>no dates here</p>`,
		},
		{
			name: "unparseable value",
			html: `<meta property="article:published_time" content="yesterday">`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PublishedAt(docFrom(t, "<html><head>"+tt.html+"</head><body></body></html>"))
			assert.True(t, tt.want.Equal(got), "want %v, got %v", tt.want, got)
		})
	}
}

func TestExtractSetsPublishedAt(t *testing.T) {
	html := `<html><head><meta property="article:published_time" content="2025-03-04T05:30:00Z"></head>
		<body><h1>Headline</h1><div class="story-body"><p>` + longParagraph + `</p></div></body></html>`

	article, err := newTestExtractor().Extract([]byte(html), "https://news.test/story/2")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 4, 5, 30, 0, 0, time.UTC), article.PublishedAt)
}
