package pipeline

import (
	"html"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/IshaanNene/newswire/internal/summarize"
	"github.com/IshaanNene/newswire/internal/types"
)

// HTMLSanitizeMiddleware strips HTML tags and entities from the title and summary.
type HTMLSanitizeMiddleware struct {
	stripRe *regexp.Regexp
}

func NewHTMLSanitizeMiddleware() *HTMLSanitizeMiddleware {
	return &HTMLSanitizeMiddleware{
		stripRe: regexp.MustCompile(`<[^>]*>`),
	}
}

func (m *HTMLSanitizeMiddleware) Name() string { return "html_sanitize" }

func (m *HTMLSanitizeMiddleware) Process(rec *types.StoredArticle) (*types.StoredArticle, error) {
	rec.Title = m.clean(rec.Title)
	rec.Summary = m.clean(rec.Summary)
	return rec, nil
}

func (m *HTMLSanitizeMiddleware) clean(s string) string {
	if s == "" {
		return s
	}
	cleaned := m.stripRe.ReplaceAllString(s, "")
	cleaned = html.UnescapeString(cleaned)
	return strings.Join(strings.Fields(cleaned), " ")
}

// PublishedAtMiddleware fills a missing publication date and stores it in UTC.
type PublishedAtMiddleware struct {
	Now func() time.Time
}

func (m *PublishedAtMiddleware) Name() string { return "published_at" }

func (m *PublishedAtMiddleware) Process(rec *types.StoredArticle) (*types.StoredArticle, error) {
	if rec.PublicationDate.IsZero() {
		rec.PublicationDate = m.Now()
	}
	rec.PublicationDate = rec.PublicationDate.UTC()
	return rec, nil
}

// TitleTruncateMiddleware caps the title at MaxRunes runes.
type TitleTruncateMiddleware struct {
	MaxRunes int
}

func (m *TitleTruncateMiddleware) Name() string { return "title_truncate" }

func (m *TitleTruncateMiddleware) Process(rec *types.StoredArticle) (*types.StoredArticle, error) {
	if m.MaxRunes > 0 && utf8.RuneCountInString(rec.Title) > m.MaxRunes {
		rec.Title = strings.TrimSpace(string([]rune(rec.Title)[:m.MaxRunes]))
	}
	return rec, nil
}

// SummarizeMiddleware fills an empty summary from the full text.
type SummarizeMiddleware struct {
	MaxSentences int
}

func (m *SummarizeMiddleware) Name() string { return "summarize" }

func (m *SummarizeMiddleware) Process(rec *types.StoredArticle) (*types.StoredArticle, error) {
	if rec.Summary == "" {
		rec.Summary = summarize.Summarize(rec.FullText, m.MaxSentences)
	}
	return rec, nil
}
