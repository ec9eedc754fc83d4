package config

import (
	"fmt"
	"net/url"

	"github.com/robfig/cron/v3"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.Scraper.RequestTimeout <= 0 {
		return fmt.Errorf("scraper.request_timeout must be > 0")
	}
	if cfg.Scraper.SourceTimeout <= 0 {
		return fmt.Errorf("scraper.source_timeout must be > 0")
	}
	if cfg.Scraper.MaxArticles < 1 {
		return fmt.Errorf("scraper.max_articles must be >= 1, got %d", cfg.Scraper.MaxArticles)
	}
	if cfg.Scraper.PoolSize < 0 {
		return fmt.Errorf("scraper.pool_size must be >= 0, got %d", cfg.Scraper.PoolSize)
	}
	if cfg.Scraper.MinTextLength < 0 {
		return fmt.Errorf("scraper.min_text_length must be >= 0, got %d", cfg.Scraper.MinTextLength)
	}
	if cfg.Scraper.FallbackParagraphs < 0 {
		return fmt.Errorf("scraper.fallback_paragraphs must be >= 0, got %d", cfg.Scraper.FallbackParagraphs)
	}
	if cfg.Scraper.MaxBodySize <= 0 {
		return fmt.Errorf("scraper.max_body_size must be > 0")
	}
	if cfg.Scraper.BrowserScrolls < 0 {
		return fmt.Errorf("scraper.browser_scrolls must be >= 0, got %d", cfg.Scraper.BrowserScrolls)
	}
	if cfg.Scraper.PolitenessMin < 0 {
		return fmt.Errorf("scraper.politeness_min must be >= 0")
	}
	if cfg.Scraper.PolitenessMax < cfg.Scraper.PolitenessMin {
		return fmt.Errorf("scraper.politeness_max (%s) must be >= politeness_min (%s)",
			cfg.Scraper.PolitenessMax, cfg.Scraper.PolitenessMin)
	}

	if len(cfg.Sources) == 0 {
		return fmt.Errorf("at least one source must be configured")
	}
	seen := make(map[string]bool, len(cfg.Sources))
	for i, src := range cfg.Sources {
		if err := validateSource(src); err != nil {
			return fmt.Errorf("sources[%d]: %w", i, err)
		}
		if seen[src.Name] {
			return fmt.Errorf("sources[%d]: duplicate source name %q", i, src.Name)
		}
		seen[src.Name] = true
	}

	validStorageTypes := map[string]bool{
		"memory": true, "file": true, "mongodb": true, "postgres": true,
	}
	if !validStorageTypes[cfg.Storage.Type] {
		return fmt.Errorf("storage.type %q is not supported (valid: memory, file, mongodb, postgres)", cfg.Storage.Type)
	}
	if cfg.Storage.Type == "file" && cfg.Storage.Path == "" {
		return fmt.Errorf("storage.path is required for file storage")
	}
	if cfg.Storage.Type == "postgres" && cfg.Storage.PostgresDSN == "" {
		return fmt.Errorf("storage.postgres_dsn is required for postgres storage")
	}
	if cfg.Storage.Type == "mongodb" && cfg.Storage.MongoURI == "" {
		return fmt.Errorf("storage.mongo_uri is required for mongodb storage")
	}

	if cfg.Summary.MaxSentences < 1 {
		return fmt.Errorf("summary.max_sentences must be >= 1, got %d", cfg.Summary.MaxSentences)
	}
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", cfg.Server.Port)
	}
	if cfg.Schedule.Cron != "" {
		if _, err := cron.ParseStandard(cfg.Schedule.Cron); err != nil {
			return fmt.Errorf("schedule.cron %q: %w", cfg.Schedule.Cron, err)
		}
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	return nil
}

func validateSource(src SourceConfig) error {
	if src.Name == "" {
		return fmt.Errorf("name is required")
	}
	if err := ValidateURL(src.ListingURL); err != nil {
		return fmt.Errorf("listing_url: %w", err)
	}
	if src.BaseURL != "" {
		if err := ValidateURL(src.BaseURL); err != nil {
			return fmt.Errorf("base_url: %w", err)
		}
	}
	if len(src.PathMarkers) == 0 {
		return fmt.Errorf("at least one path marker is required")
	}
	if src.ScanWindow < 1 {
		return fmt.Errorf("scan_window must be >= 1, got %d", src.ScanWindow)
	}
	if src.MaxArticles < 1 {
		return fmt.Errorf("max_articles must be >= 1, got %d", src.MaxArticles)
	}
	if src.PolitenessDelay < 0 {
		return fmt.Errorf("politeness_delay must be >= 0")
	}
	if src.Fetcher != "http" && src.Fetcher != "browser" {
		return fmt.Errorf("fetcher must be 'http' or 'browser', got %q", src.Fetcher)
	}
	return nil
}

// ValidateURL checks if a URL string is valid for scraping.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
