package types

import (
	"bytes"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Response represents the result of fetching a page.
type Response struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Headers are the response HTTP headers.
	Headers http.Header

	// Body is the raw (decompressed) response body.
	Body []byte

	// URL is the requested URL.
	URL string

	// FinalURL is the URL after any redirects.
	FinalURL string

	// ContentType is the MIME type of the response.
	ContentType string

	// Doc is a parsed goquery document (lazily loaded).
	Doc *goquery.Document

	// FetchDuration is how long the fetch took.
	FetchDuration time.Duration

	// FetchedAt is when this response was received.
	FetchedAt time.Time
}

// NewResponse creates a Response from an http.Response.
func NewResponse(rawURL string, httpResp *http.Response, body []byte, duration time.Duration) *Response {
	finalURL := rawURL
	if httpResp.Request != nil && httpResp.Request.URL != nil {
		finalURL = httpResp.Request.URL.String()
	}
	return &Response{
		StatusCode:    httpResp.StatusCode,
		Headers:       httpResp.Header,
		Body:          body,
		URL:           rawURL,
		FinalURL:      finalURL,
		ContentType:   httpResp.Header.Get("Content-Type"),
		FetchDuration: duration,
		FetchedAt:     time.Now(),
	}
}

// NewBrowserResponse creates a Response from headless browser output.
func NewBrowserResponse(rawURL string, statusCode int, body []byte, finalURL string, duration time.Duration) *Response {
	return &Response{
		StatusCode:    statusCode,
		Headers:       make(http.Header),
		Body:          body,
		URL:           rawURL,
		FinalURL:      finalURL,
		ContentType:   "text/html",
		FetchDuration: duration,
		FetchedAt:     time.Now(),
	}
}

// Document returns a parsed goquery document, lazily initializing it.
func (r *Response) Document() (*goquery.Document, error) {
	if r.Doc != nil {
		return r.Doc, nil
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(r.Body))
	if err != nil {
		return nil, err
	}
	r.Doc = doc
	return doc, nil
}

// IsSuccess returns true if the response status is 2xx.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
