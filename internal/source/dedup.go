package source

import (
	"net/url"
	"sort"
	"strings"
)

// Deduplicator tracks canonical URLs already discovered within one source.
// It is owned by a single task and is not safe for concurrent use.
type Deduplicator struct {
	seen map[string]struct{}
}

// NewDeduplicator creates a new Deduplicator with the given estimated capacity.
func NewDeduplicator(estimatedCapacity int) *Deduplicator {
	return &Deduplicator{
		seen: make(map[string]struct{}, estimatedCapacity),
	}
}

// Add records rawURL and reports whether it was new.
func (d *Deduplicator) Add(rawURL string) bool {
	canonical := CanonicalizeURL(rawURL)
	if _, ok := d.seen[canonical]; ok {
		return false
	}
	d.seen[canonical] = struct{}{}
	return true
}

// CanonicalizeURL normalizes a URL for deduplication:
// - lowercases scheme and host
// - removes fragment
// - sorts query parameters
// - removes trailing slash (except root)
// - removes default ports (80 for http, 443 for https)
func CanonicalizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""

	host := u.Hostname()
	port := u.Port()
	if (u.Scheme == "http" && port == "80") || (u.Scheme == "https" && port == "443") {
		u.Host = host
	}

	if u.RawQuery != "" {
		params := u.Query()
		keys := make([]string, 0, len(params))
		for k := range params {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var sorted []string
		for _, k := range keys {
			vals := params[k]
			sort.Strings(vals)
			for _, v := range vals {
				sorted = append(sorted, url.QueryEscape(k)+"="+url.QueryEscape(v))
			}
		}
		u.RawQuery = strings.Join(sorted, "&")
	}

	if u.Path != "/" && strings.HasSuffix(u.Path, "/") {
		u.Path = strings.TrimRight(u.Path, "/")
		u.RawPath = ""
	}

	if u.Path == "" {
		u.Path = "/"
	}

	return u.String()
}
