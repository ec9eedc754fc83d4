package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for newswire.
type Config struct {
	Scraper  ScraperConfig  `mapstructure:"scraper"  yaml:"scraper"`
	Sources  []SourceConfig `mapstructure:"sources"  yaml:"sources"`
	Storage  StorageConfig  `mapstructure:"storage"  yaml:"storage"`
	Summary  SummaryConfig  `mapstructure:"summary"  yaml:"summary"`
	Server   ServerConfig   `mapstructure:"server"   yaml:"server"`
	Schedule ScheduleConfig `mapstructure:"schedule" yaml:"schedule"`
	Logging  LoggingConfig  `mapstructure:"logging"  yaml:"logging"`
}

// ScraperConfig controls the scrape run as a whole.
type ScraperConfig struct {
	// RequestTimeout bounds every single page fetch.
	RequestTimeout time.Duration `mapstructure:"request_timeout"     yaml:"request_timeout"`
	// SourceTimeout bounds one source task, measured from dispatch.
	SourceTimeout time.Duration `mapstructure:"source_timeout"      yaml:"source_timeout"`
	// MaxArticles is the global cap applied after merging all sources.
	MaxArticles int `mapstructure:"max_articles"        yaml:"max_articles"`
	// PoolSize is the number of concurrent source tasks. Zero means one per source.
	PoolSize           int      `mapstructure:"pool_size"           yaml:"pool_size"`
	MinTextLength      int      `mapstructure:"min_text_length"     yaml:"min_text_length"`
	FallbackParagraphs int      `mapstructure:"fallback_paragraphs" yaml:"fallback_paragraphs"`
	MaxBodySize        int64    `mapstructure:"max_body_size"       yaml:"max_body_size"`
	UserAgents         []string `mapstructure:"user_agents"         yaml:"user_agents"`
	// BrowserScrolls is how many times the browser fetcher scrolls a listing
	// to trigger lazily loaded links.
	BrowserScrolls int `mapstructure:"browser_scrolls" yaml:"browser_scrolls"`
	// PolitenessMin and PolitenessMax bound the jittered per-source delay
	// between article fetches.
	PolitenessMin time.Duration `mapstructure:"politeness_min" yaml:"politeness_min"`
	PolitenessMax time.Duration `mapstructure:"politeness_max" yaml:"politeness_max"`
	// TitleSelectors and BodySelectors are CSS selectors tried ahead of the
	// built-in matchers.
	TitleSelectors []string `mapstructure:"title_selectors" yaml:"title_selectors,omitempty"`
	BodySelectors  []string `mapstructure:"body_selectors"  yaml:"body_selectors,omitempty"`
}

// SourceConfig describes one news outlet.
type SourceConfig struct {
	Name       string `mapstructure:"name"        yaml:"name"`
	ListingURL string `mapstructure:"listing_url" yaml:"listing_url"`
	// BaseURL is the origin relative links resolve against. Defaults to the
	// origin of ListingURL.
	BaseURL         string        `mapstructure:"base_url"         yaml:"base_url"`
	PathMarkers     []string      `mapstructure:"path_markers"     yaml:"path_markers"`
	ScanWindow      int           `mapstructure:"scan_window"      yaml:"scan_window"`
	MaxArticles     int           `mapstructure:"max_articles"     yaml:"max_articles"`
	Category        string        `mapstructure:"category"         yaml:"category"`
	PolitenessDelay time.Duration `mapstructure:"politeness_delay" yaml:"politeness_delay"`
	Fetcher         string        `mapstructure:"fetcher"          yaml:"fetcher"` // http, browser
}

// StorageConfig selects and configures the article store.
type StorageConfig struct {
	Type            string `mapstructure:"type"             yaml:"type"` // memory, file, mongodb, postgres
	Path            string `mapstructure:"path"             yaml:"path"`
	MongoURI        string `mapstructure:"mongo_uri"        yaml:"mongo_uri"`
	MongoDatabase   string `mapstructure:"mongo_database"   yaml:"mongo_database"`
	MongoCollection string `mapstructure:"mongo_collection" yaml:"mongo_collection"`
	PostgresDSN     string `mapstructure:"postgres_dsn"     yaml:"postgres_dsn"`
}

// SummaryConfig controls the extractive summarizer.
type SummaryConfig struct {
	MaxSentences int `mapstructure:"max_sentences" yaml:"max_sentences"`
}

// ServerConfig controls the JSON control API.
type ServerConfig struct {
	Port int `mapstructure:"port" yaml:"port"`
}

// ScheduleConfig controls periodic runs. An empty Cron disables scheduling.
type ScheduleConfig struct {
	Cron string `mapstructure:"cron" yaml:"cron"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// DefaultSources returns the reference outlets.
func DefaultSources() []SourceConfig {
	return []SourceConfig{
		{
			Name:            "India Today",
			ListingURL:      "https://www.indiatoday.in/latest-news",
			BaseURL:         "https://www.indiatoday.in",
			PathMarkers:     []string{"/story/", "/news/"},
			ScanWindow:      10,
			MaxArticles:     3,
			PolitenessDelay: 500 * time.Millisecond,
			Fetcher:         "http",
		},
		{
			Name:            "Times of India",
			ListingURL:      "https://timesofindia.indiatimes.com/home/headlines",
			BaseURL:         "https://timesofindia.indiatimes.com",
			PathMarkers:     []string{"/articleshow/", "/city/"},
			ScanWindow:      5,
			MaxArticles:     1,
			Category:        "India",
			PolitenessDelay: 300 * time.Millisecond,
			Fetcher:         "http",
		},
		{
			Name:            "NDTV",
			ListingURL:      "https://www.ndtv.com/latest",
			BaseURL:         "https://www.ndtv.com",
			PathMarkers:     []string{"/news/", "/india-news/"},
			ScanWindow:      5,
			MaxArticles:     1,
			Category:        "Breaking",
			PolitenessDelay: 300 * time.Millisecond,
			Fetcher:         "http",
		},
	}
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Scraper: ScraperConfig{
			RequestTimeout:     10 * time.Second,
			SourceTimeout:      30 * time.Second,
			MaxArticles:        3,
			PoolSize:           0,
			MinTextLength:      100,
			FallbackParagraphs: 10,
			MaxBodySize:        10 * 1024 * 1024, // 10MB
			UserAgents: []string{
				"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			},
			BrowserScrolls: 2,
			PolitenessMin:  300 * time.Millisecond,
			PolitenessMax:  500 * time.Millisecond,
		},
		Sources: DefaultSources(),
		Storage: StorageConfig{
			Type:            "file",
			Path:            "./data/articles.json",
			MongoURI:        "mongodb://localhost:27017",
			MongoDatabase:   "newswire",
			MongoCollection: "articles",
		},
		Summary: SummaryConfig{
			MaxSentences: 3,
		},
		Server: ServerConfig{
			Port: 8080,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// EffectivePoolSize returns the number of concurrent source tasks to run.
func (c *Config) EffectivePoolSize() int {
	if c.Scraper.PoolSize > 0 {
		return c.Scraper.PoolSize
	}
	if len(c.Sources) == 0 {
		return 1
	}
	return len(c.Sources)
}
