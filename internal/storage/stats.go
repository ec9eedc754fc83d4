package storage

import (
	"fmt"
	"net/url"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/IshaanNene/newswire/internal/types"
)

// Stats summarizes the stored article set.
type Stats struct {
	TotalArticles       int       `json:"total_articles"`
	SourcesCount        int       `json:"sources_count"`
	SummariesCount      int       `json:"summaries_count"`
	RecentUpdatesCount  int       `json:"recent_updates_count"`
	TimeSinceLastUpdate string    `json:"time_since_last_update"`
	LatestCreatedAt     time.Time `json:"latest_created_at,omitempty"`
}

// ComputeStats derives Stats from articles as of now.
// An empty set reports one source, the single outlet configured by default.
func ComputeStats(articles []types.StoredArticle, now time.Time) Stats {
	st := Stats{
		TotalArticles:       len(articles),
		SourcesCount:        1,
		TimeSinceLastUpdate: "No updates",
	}
	if len(articles) == 0 {
		return st
	}

	hosts := make(map[string]struct{})
	dayAgo := now.Add(-24 * time.Hour)
	for _, a := range articles {
		if domain := sourceDomain(a.URL); domain != "" {
			hosts[domain] = struct{}{}
		}
		if a.Summary != "" {
			st.SummariesCount++
		}
		if !a.CreatedAt.Before(dayAgo) {
			st.RecentUpdatesCount++
		}
		if a.CreatedAt.After(st.LatestCreatedAt) {
			st.LatestCreatedAt = a.CreatedAt
		}
	}
	st.SourcesCount = len(hosts)
	st.TimeSinceLastUpdate = sinceLabel(now.Sub(st.LatestCreatedAt))
	return st
}

// sourceDomain returns the registrable domain of rawURL, so www.ndtv.com and
// ndtv.com count as one source. Hosts without a public suffix are used as is.
func sourceDomain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	host := u.Hostname()
	if domain, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return domain
	}
	return host
}

func sinceLabel(d time.Duration) string {
	switch {
	case d >= 24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d/(24*time.Hour)))
	case d > time.Hour:
		return fmt.Sprintf("%dh ago", int(d/time.Hour))
	case d > time.Minute:
		return fmt.Sprintf("%dm ago", int(d/time.Minute))
	default:
		return "Just now"
	}
}
