package fetcher

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/andybalholm/brotli"

	"github.com/IshaanNene/newswire/internal/config"
	"github.com/IshaanNene/newswire/internal/types"
)

// HTTPFetcher implements Fetcher using net/http.
type HTTPFetcher struct {
	client      *http.Client
	timeout     time.Duration
	maxBodySize int64
	logger      *slog.Logger
	userAgents  []string
	uaIndex     atomic.Int64
}

// NewHTTPFetcher creates a new HTTP fetcher.
func NewHTTPFetcher(cfg *config.ScraperConfig, logger *slog.Logger) *HTTPFetcher {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   cfg.RequestTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		DisableCompression:  true, // decompression is handled here, including brotli
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   cfg.RequestTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 10 {
				return fmt.Errorf("max redirects (%d) reached", len(via))
			}
			return nil
		},
	}

	return &HTTPFetcher{
		client:      client,
		timeout:     cfg.RequestTimeout,
		maxBodySize: cfg.MaxBodySize,
		logger:      logger.With("component", "http_fetcher"),
		userAgents:  cfg.UserAgents,
	}
}

// Fetch executes a GET request and returns the response.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*types.Response, error) {
	if f.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &types.FetchError{URL: rawURL, Err: err}
	}

	httpReq.Header.Set("User-Agent", f.nextUserAgent())
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	httpReq.Header.Set("Accept-Language", "en-US,en;q=0.9")
	httpReq.Header.Set("Accept-Encoding", "gzip, deflate, br")

	start := time.Now()
	httpResp, err := f.client.Do(httpReq)
	duration := time.Since(start)

	if err != nil {
		return nil, &types.FetchError{URL: rawURL, Err: err}
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(httpResp.Body, 512))
		return nil, &types.FetchError{
			URL:        rawURL,
			StatusCode: httpResp.StatusCode,
			Err:        fmt.Errorf("HTTP %d: %s", httpResp.StatusCode, strings.TrimSpace(string(body))),
		}
	}

	body, err := f.readBody(httpResp)
	if err != nil {
		return nil, &types.FetchError{URL: rawURL, Err: err}
	}

	resp := types.NewResponse(rawURL, httpResp, body, duration)

	f.logger.Debug("fetch complete",
		"url", rawURL,
		"status", resp.StatusCode,
		"size", len(body),
		"duration", duration,
	)

	return resp, nil
}

// Close releases resources.
func (f *HTTPFetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}

// Type returns the fetcher type identifier.
func (f *HTTPFetcher) Type() string {
	return "http"
}

// nextUserAgent returns the next User-Agent in rotation.
func (f *HTTPFetcher) nextUserAgent() string {
	if len(f.userAgents) == 0 {
		return "newswire/" + config.Version
	}
	idx := f.uaIndex.Add(1) % int64(len(f.userAgents))
	return f.userAgents[idx]
}

// readBody decodes the response body and reads at most maxBodySize bytes of
// it. The limit applies to the wire bytes and to the decoded bytes, so a
// small compressed payload cannot expand past it.
func (f *HTTPFetcher) readBody(resp *http.Response) ([]byte, error) {
	var reader io.Reader = resp.Body
	if f.maxBodySize > 0 {
		reader = io.LimitReader(reader, f.maxBodySize)
	}

	decoded, err := decompressReader(resp, reader)
	if err != nil {
		return nil, err
	}
	if c, ok := decoded.(io.Closer); ok {
		defer c.Close()
	}
	if f.maxBodySize > 0 {
		decoded = io.LimitReader(decoded, f.maxBodySize)
	}
	return io.ReadAll(decoded)
}

// decompressReader wraps a reader with the appropriate decompressor.
// Handles gzip, deflate, and brotli (br) encodings.
func decompressReader(resp *http.Response, reader io.Reader) (io.Reader, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		return gzip.NewReader(reader)
	case "deflate":
		return flate.NewReader(reader), nil
	case "br":
		return brotli.NewReader(reader), nil
	default:
		return reader, nil
	}
}

// RandomDelay returns a random delay within ±25% of base, clamped to
// [lo, hi] when hi is positive.
func RandomDelay(base, lo, hi time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	jitter := float64(base) * 0.25
	d := base + time.Duration(rand.Float64()*2*jitter-jitter)
	if hi > 0 {
		d = min(max(d, lo), hi)
	}
	return d
}
