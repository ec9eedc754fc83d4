package source

import "testing"

func TestDeduplicator(t *testing.T) {
	d := NewDeduplicator(16)

	if !d.Add("https://example.com/story/1") {
		t.Error("first add should report a new URL")
	}
	if d.Add("https://example.com/story/1") {
		t.Error("second add should report a duplicate")
	}
	if !d.Add("https://example.com/story/2") {
		t.Error("a different URL should be new")
	}
}

func TestDeduplicatorURLVariants(t *testing.T) {
	tests := []struct {
		variant string
		dup     bool
		reason  string
	}{
		{"https://example.com/Path?b=2&a=1", true, "hostname should be case-insensitive"},
		{"https://example.com/Path?a=1&b=2", true, "query params should be order-insensitive"},
		{"https://example.com/Path/?a=1&b=2#comments", true, "trailing slash and fragment should be ignored"},
		{"https://example.com:443/Path?a=1&b=2", true, "default port should be ignored"},
		{"https://example.com/path?a=1&b=2", false, "path should stay case-sensitive"},
	}

	for _, tt := range tests {
		d := NewDeduplicator(16)
		d.Add("https://Example.COM/Path?b=2&a=1")
		if isNew := d.Add(tt.variant); isNew == tt.dup {
			t.Error(tt.reason)
		}
	}
}

func TestCanonicalizeURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"HTTPS://News.Example.com/story/1/", "https://news.example.com/story/1"},
		{"http://example.com:80", "http://example.com/"},
		{"https://example.com/a?z=1&a=2#top", "https://example.com/a?a=2&z=1"},
		{"https://example.com:8443/a", "https://example.com:8443/a"},
	}
	for _, tt := range tests {
		if got := CanonicalizeURL(tt.in); got != tt.want {
			t.Errorf("CanonicalizeURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
