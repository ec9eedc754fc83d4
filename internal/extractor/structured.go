package extractor

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// publishedTimeLayouts are tried in order when parsing declared publication times.
var publishedTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02",
}

// publishedMetaSelectors are meta tags that carry a publication time.
var publishedMetaSelectors = []string{
	`meta[property="article:published_time"]`,
	`meta[property="og:published_time"]`,
	`meta[itemprop="datePublished"]`,
	`meta[name="publish-date"]`,
	`meta[name="pubdate"]`,
}

// PublishedAt returns the publication time declared in the page's JSON-LD or
// meta tags, or the zero time when none parses.
func PublishedAt(doc *goquery.Document) time.Time {
	for _, obj := range jsonLDObjects(doc) {
		if raw, ok := obj["datePublished"].(string); ok {
			if t, ok := parsePublished(raw); ok {
				return t
			}
		}
	}

	for _, sel := range publishedMetaSelectors {
		if content, ok := doc.Find(sel).First().Attr("content"); ok {
			if t, ok := parsePublished(content); ok {
				return t
			}
		}
	}

	if dt, ok := doc.Find("time[datetime]").First().Attr("datetime"); ok {
		if t, ok := parsePublished(dt); ok {
			return t
		}
	}
	return time.Time{}
}

// jsonLDObjects parses every <script type="application/ld+json"> block,
// flattening arrays and @graph containers.
func jsonLDObjects(doc *goquery.Document) []map[string]any {
	var results []map[string]any

	doc.Find(`script[type="application/ld+json"]`).Each(func(i int, sel *goquery.Selection) {
		raw := strings.TrimSpace(sel.Text())
		if raw == "" {
			return
		}

		var data map[string]any
		if err := json.Unmarshal([]byte(raw), &data); err == nil {
			results = append(results, data)
			if graph, ok := data["@graph"].([]any); ok {
				results = append(results, objects(graph)...)
			}
			return
		}

		var dataArr []any
		if err := json.Unmarshal([]byte(raw), &dataArr); err == nil {
			results = append(results, objects(dataArr)...)
		}
	})

	return results
}

func objects(values []any) []map[string]any {
	var out []map[string]any
	for _, v := range values {
		if m, ok := v.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func parsePublished(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range publishedTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
