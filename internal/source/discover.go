package source

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/newswire/internal/config"
	"github.com/IshaanNene/newswire/internal/types"
)

// BaseOrigin returns the origin relative links of src resolve against.
func BaseOrigin(src config.SourceConfig) (*url.URL, error) {
	raw := src.BaseURL
	if raw == "" {
		raw = src.ListingURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q has no scheme or host", types.ErrInvalidURL, raw)
	}
	return &url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/"}, nil
}

// DiscoverCandidates scans every <a href> in document order and returns the
// de-duplicated article links of src, limited to its scan window.
func DiscoverCandidates(doc *goquery.Document, src config.SourceConfig) ([]types.Candidate, error) {
	base, err := BaseOrigin(src)
	if err != nil {
		return nil, err
	}

	dedup := NewDeduplicator(64)
	var candidates []types.Candidate

	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if src.ScanWindow > 0 && len(candidates) >= src.ScanWindow {
			return false
		}

		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" ||
			strings.HasPrefix(href, "#") ||
			strings.HasPrefix(href, "javascript:") ||
			strings.HasPrefix(href, "mailto:") ||
			strings.HasPrefix(href, "tel:") ||
			strings.HasPrefix(href, "data:") {
			return true
		}

		parsedHref, err := url.Parse(href)
		if err != nil {
			return true
		}
		resolved := base.ResolveReference(parsedHref)
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return true
		}
		if !matchesMarker(resolved.Path, src.PathMarkers) {
			return true
		}

		canonical := CanonicalizeURL(resolved.String())
		if !dedup.Add(canonical) {
			return true
		}
		candidates = append(candidates, types.Candidate{URL: canonical, Source: src.Name})
		return true
	})

	return candidates, nil
}

func matchesMarker(path string, markers []string) bool {
	for _, m := range markers {
		if m != "" && strings.Contains(path, m) {
			return true
		}
	}
	return false
}
