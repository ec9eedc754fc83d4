// Package extractor turns an article page into a validated article using
// ordered, heuristic selector matchers.
package extractor

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/newswire/internal/config"
	"github.com/IshaanNene/newswire/internal/types"
)

// Extractor pulls a title and body out of article HTML.
type Extractor struct {
	titleMatchers      []Matcher
	bodyMatchers       []Matcher
	minTextLength      int
	fallbackParagraphs int
	logger             *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithTitleMatchers replaces the title matcher list.
func WithTitleMatchers(m ...Matcher) Option {
	return func(e *Extractor) { e.titleMatchers = m }
}

// WithBodyMatchers replaces the body matcher list.
func WithBodyMatchers(m ...Matcher) Option {
	return func(e *Extractor) { e.bodyMatchers = m }
}

// SelectorOptions puts the given CSS selectors ahead of the default title
// and body matchers. Empty lists leave the defaults untouched.
func SelectorOptions(titleSelectors, bodySelectors []string) []Option {
	var opts []Option
	if len(titleSelectors) > 0 {
		opts = append(opts, WithTitleMatchers(append(cssMatchers(titleSelectors), DefaultTitleMatchers()...)...))
	}
	if len(bodySelectors) > 0 {
		opts = append(opts, WithBodyMatchers(append(cssMatchers(bodySelectors), DefaultBodyMatchers()...)...))
	}
	return opts
}

func cssMatchers(selectors []string) []Matcher {
	matchers := make([]Matcher, 0, len(selectors))
	for _, sel := range selectors {
		matchers = append(matchers, CSSMatcher(sel))
	}
	return matchers
}

// New creates an Extractor with the default matchers.
func New(cfg *config.ScraperConfig, logger *slog.Logger, opts ...Option) *Extractor {
	e := &Extractor{
		titleMatchers:      DefaultTitleMatchers(),
		bodyMatchers:       DefaultBodyMatchers(),
		minTextLength:      cfg.MinTextLength,
		fallbackParagraphs: cfg.FallbackParagraphs,
		logger:             logger.With("component", "extractor"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract parses body and returns the article found at sourceURL.
func (e *Extractor) Extract(body []byte, sourceURL string) (*types.Article, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &types.ExtractError{URL: sourceURL, Reason: "parse", Err: fmt.Errorf("%w: %v", types.ErrUnparseable, err)}
	}
	return e.ExtractDocument(doc, sourceURL)
}

// ExtractResponse extracts from a fetched response, reusing its parsed document.
func (e *Extractor) ExtractResponse(resp *types.Response) (*types.Article, error) {
	doc, err := resp.Document()
	if err != nil {
		return nil, &types.ExtractError{URL: resp.URL, Reason: "parse", Err: fmt.Errorf("%w: %v", types.ErrUnparseable, err)}
	}
	return e.ExtractDocument(doc, resp.URL)
}

// ExtractDocument applies the title and body matchers to doc. It never returns
// an article with an empty title or a body shorter than the minimum length.
func (e *Extractor) ExtractDocument(doc *goquery.Document, sourceURL string) (article *types.Article, err error) {
	defer func() {
		if r := recover(); r != nil {
			article = nil
			err = &types.ExtractError{URL: sourceURL, Reason: "panic", Err: fmt.Errorf("%w: %v", types.ErrUnparseable, r)}
		}
	}()

	title := e.findTitle(doc)
	if title == "" {
		return nil, &types.ExtractError{URL: sourceURL, Reason: "title", Err: types.ErrNoTitle}
	}

	text := e.findBody(doc)
	if utf8.RuneCountInString(text) < e.minTextLength {
		return nil, &types.ExtractError{
			URL:    sourceURL,
			Reason: fmt.Sprintf("body has %d chars, need %d", utf8.RuneCountInString(text), e.minTextLength),
			Err:    types.ErrTextTooShort,
		}
	}

	return &types.Article{
		Title:        title,
		FullText:     text,
		URL:          sourceURL,
		Category:     types.DefaultCategory,
		DiscoveredAt: time.Now(),
		PublishedAt:  PublishedAt(doc),
	}, nil
}

func (e *Extractor) findTitle(doc *goquery.Document) string {
	for _, m := range e.titleMatchers {
		if values := m.Find(doc); len(values) > 0 {
			e.logger.Debug("title matched", "matcher", m.Name)
			return values[0]
		}
	}
	return ""
}

func (e *Extractor) findBody(doc *goquery.Document) string {
	for _, m := range e.bodyMatchers {
		if paragraphs := m.Find(doc); len(paragraphs) > 0 {
			e.logger.Debug("body matched", "matcher", m.Name, "paragraphs", len(paragraphs))
			return strings.Join(paragraphs, " ")
		}
	}

	var paragraphs []string
	doc.Find("p").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if i >= e.fallbackParagraphs {
			return false
		}
		if val := Normalize(sel.Text()); val != "" {
			paragraphs = append(paragraphs, val)
		}
		return true
	})
	return strings.Join(paragraphs, " ")
}
