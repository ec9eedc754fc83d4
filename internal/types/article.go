package types

import (
	"time"
	"unicode/utf8"
)

// DefaultCategory is assigned to articles whose source sets no category.
const DefaultCategory = "General"

// Candidate is a discovered article link awaiting extraction.
type Candidate struct {
	// URL is absolute and canonicalized.
	URL string

	// Source is the name of the source that discovered this link.
	Source string
}

// Article is the content extracted from one article page.
// Title is never empty and FullText is never shorter than the configured minimum.
type Article struct {
	Title        string    `json:"title"`
	FullText     string    `json:"full_text"`
	URL          string    `json:"url"`
	Category     string    `json:"category"`
	Source       string    `json:"source"`
	DiscoveredAt time.Time `json:"discovered_at"`

	// PublishedAt is the publication time declared by the page, if any.
	PublishedAt time.Time `json:"published_at,omitempty"`
}

// SourceResult is what one source task produced.
type SourceResult struct {
	Source   string
	Articles []Article
	Err      error
	Duration time.Duration
}

// SourceReport summarizes one source's outcome in a run.
type SourceReport struct {
	Source   string        `json:"source"`
	Articles int           `json:"articles"`
	Error    string        `json:"error,omitempty"`
	TimedOut bool          `json:"timed_out,omitempty"`
	Skipped  bool          `json:"skipped,omitempty"`
	Stopped  bool          `json:"stopped,omitempty"`
	Duration time.Duration `json:"duration"`
}

// Failed reports whether the source contributed nothing because of an error or timeout.
func (r SourceReport) Failed() bool {
	return r.TimedOut || r.Error != ""
}

// AggregateResult is the merged, capped outcome of a multi-source scrape.
type AggregateResult struct {
	// Articles holds results in completion order, truncated to the global cap.
	Articles []Article

	// Collected is the number of articles gathered before truncation.
	Collected int

	// Reports has one entry per configured source.
	Reports []SourceReport
}

// Succeeded returns the number of sources that finished without error.
func (a AggregateResult) Succeeded() int {
	n := 0
	for _, r := range a.Reports {
		if !r.Failed() && !r.Skipped {
			n++
		}
	}
	return n
}

// Failed returns the number of sources that errored or timed out.
func (a AggregateResult) Failed() int {
	n := 0
	for _, r := range a.Reports {
		if r.Failed() {
			n++
		}
	}
	return n
}

// StoredArticle is the persisted form of an article.
type StoredArticle struct {
	ID              string    `json:"id"               bson:"_id,omitempty"    db:"id"`
	Title           string    `json:"title"            bson:"title"            db:"title"`
	URL             string    `json:"url"              bson:"url"              db:"url"`
	Category        string    `json:"category"         bson:"category"         db:"category"`
	PublicationDate time.Time `json:"publication_date" bson:"publication_date" db:"publication_date"`
	FullText        string    `json:"full_text"        bson:"full_text"        db:"full_text"`
	Summary         string    `json:"summary"          bson:"summary"          db:"summary"`
	CreatedAt       time.Time `json:"created_at"       bson:"created_at"       db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"       bson:"updated_at"       db:"updated_at"`
}

// NewStoredArticle builds a record from an extracted article.
func NewStoredArticle(a Article) *StoredArticle {
	published := a.PublishedAt
	if published.IsZero() {
		published = a.DiscoveredAt
	}
	if published.IsZero() {
		published = time.Now()
	}
	return &StoredArticle{
		Title:           a.Title,
		URL:             a.URL,
		Category:        a.Category,
		PublicationDate: published,
		FullText:        a.FullText,
	}
}

// ShortSummary returns the summary (or the full text when there is none)
// truncated to n characters.
func (s StoredArticle) ShortSummary(n int) string {
	text := s.Summary
	if text == "" {
		text = s.FullText
	}
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	return string(runes[:n]) + "..."
}
