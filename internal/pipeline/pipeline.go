package pipeline

import (
	"log/slog"
	"strings"
	"time"

	"github.com/IshaanNene/newswire/internal/config"
	"github.com/IshaanNene/newswire/internal/types"
)

// MaxTitleLength is the longest title, in runes, that is persisted.
const MaxTitleLength = 500

// Middleware processes an article and returns the (possibly modified) article.
// Return nil to drop the article from the pipeline.
type Middleware interface {
	// Name returns the middleware's identifier.
	Name() string

	// Process transforms an article. Return nil to drop it.
	Process(rec *types.StoredArticle) (*types.StoredArticle, error)
}

// Pipeline chains middleware processors together.
type Pipeline struct {
	middlewares []Middleware
	logger      *slog.Logger
}

// New creates a new Pipeline.
func New(logger *slog.Logger) *Pipeline {
	return &Pipeline{
		logger: logger.With("component", "pipeline"),
	}
}

// NewDefault builds the chain every article goes through before it is
// stored: sanitize, trim, require title and URL, default the category and
// publication date, cap the title, then summarize.
func NewDefault(cfg *config.SummaryConfig, logger *slog.Logger) *Pipeline {
	p := New(logger)
	p.Use(NewHTMLSanitizeMiddleware())
	p.Use(&TrimMiddleware{})
	p.Use(&RequiredFieldsMiddleware{})
	p.Use(&DefaultCategoryMiddleware{Category: types.DefaultCategory})
	p.Use(&PublishedAtMiddleware{Now: time.Now})
	p.Use(&TitleTruncateMiddleware{MaxRunes: MaxTitleLength})
	p.Use(&SummarizeMiddleware{MaxSentences: cfg.MaxSentences})
	return p
}

// Use adds a middleware to the pipeline chain.
func (p *Pipeline) Use(mw Middleware) {
	p.middlewares = append(p.middlewares, mw)
	p.logger.Debug("middleware added", "name", mw.Name(), "position", len(p.middlewares))
}

// Process runs the article through all middleware in order.
func (p *Pipeline) Process(rec *types.StoredArticle) (*types.StoredArticle, error) {
	current := rec

	for _, mw := range p.middlewares {
		result, err := mw.Process(current)
		if err != nil {
			return nil, &types.PipelineError{
				Stage: mw.Name(),
				URL:   current.URL,
				Err:   err,
			}
		}
		if result == nil {
			p.logger.Debug("article dropped", "stage", mw.Name(), "url", rec.URL)
			return nil, nil
		}
		current = result
	}

	return current, nil
}

// Len returns the number of middleware in the chain.
func (p *Pipeline) Len() int {
	return len(p.middlewares)
}

// --- Built-in Middleware ---

// TrimMiddleware trims whitespace from the text fields.
type TrimMiddleware struct{}

func (m *TrimMiddleware) Name() string { return "trim" }

func (m *TrimMiddleware) Process(rec *types.StoredArticle) (*types.StoredArticle, error) {
	rec.Title = strings.TrimSpace(rec.Title)
	rec.URL = strings.TrimSpace(rec.URL)
	rec.Category = strings.TrimSpace(rec.Category)
	rec.FullText = strings.TrimSpace(rec.FullText)
	rec.Summary = strings.TrimSpace(rec.Summary)
	return rec, nil
}

// RequiredFieldsMiddleware drops articles without a title or URL.
type RequiredFieldsMiddleware struct{}

func (m *RequiredFieldsMiddleware) Name() string { return "required_fields" }

func (m *RequiredFieldsMiddleware) Process(rec *types.StoredArticle) (*types.StoredArticle, error) {
	if rec.Title == "" || rec.URL == "" {
		return nil, nil
	}
	return rec, nil
}

// DefaultCategoryMiddleware sets Category when it is empty.
type DefaultCategoryMiddleware struct {
	Category string
}

func (m *DefaultCategoryMiddleware) Name() string { return "default_category" }

func (m *DefaultCategoryMiddleware) Process(rec *types.StoredArticle) (*types.StoredArticle, error) {
	if rec.Category == "" {
		rec.Category = m.Category
	}
	return rec, nil
}
