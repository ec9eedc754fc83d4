package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configuration from file, environment, and defaults.
// Priority (highest to lowest): env vars > config file > defaults.
// A .env file in the working directory is loaded first when present.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix("NEWSWIRE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("newswire")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".newswire"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// A configured source list replaces the defaults instead of merging into them.
	if v.InConfig("sources") {
		cfg.Sources = nil
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applySourceDefaults(cfg)

	return cfg, nil
}

// setDefaults registers default values in viper.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("scraper.request_timeout", cfg.Scraper.RequestTimeout)
	v.SetDefault("scraper.source_timeout", cfg.Scraper.SourceTimeout)
	v.SetDefault("scraper.max_articles", cfg.Scraper.MaxArticles)
	v.SetDefault("scraper.pool_size", cfg.Scraper.PoolSize)
	v.SetDefault("scraper.min_text_length", cfg.Scraper.MinTextLength)
	v.SetDefault("scraper.fallback_paragraphs", cfg.Scraper.FallbackParagraphs)
	v.SetDefault("scraper.max_body_size", cfg.Scraper.MaxBodySize)
	v.SetDefault("scraper.user_agents", cfg.Scraper.UserAgents)
	v.SetDefault("scraper.browser_scrolls", cfg.Scraper.BrowserScrolls)
	v.SetDefault("scraper.politeness_min", cfg.Scraper.PolitenessMin)
	v.SetDefault("scraper.politeness_max", cfg.Scraper.PolitenessMax)
	v.SetDefault("scraper.title_selectors", cfg.Scraper.TitleSelectors)
	v.SetDefault("scraper.body_selectors", cfg.Scraper.BodySelectors)

	v.SetDefault("storage.type", cfg.Storage.Type)
	v.SetDefault("storage.path", cfg.Storage.Path)
	v.SetDefault("storage.mongo_uri", cfg.Storage.MongoURI)
	v.SetDefault("storage.mongo_database", cfg.Storage.MongoDatabase)
	v.SetDefault("storage.mongo_collection", cfg.Storage.MongoCollection)
	v.SetDefault("storage.postgres_dsn", cfg.Storage.PostgresDSN)

	v.SetDefault("summary.max_sentences", cfg.Summary.MaxSentences)
	v.SetDefault("server.port", cfg.Server.Port)
	v.SetDefault("schedule.cron", cfg.Schedule.Cron)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
}

// applySourceDefaults fills per-source fields left empty in a config file.
func applySourceDefaults(cfg *Config) {
	for i := range cfg.Sources {
		src := &cfg.Sources[i]
		if src.Fetcher == "" {
			src.Fetcher = "http"
		}
		if src.MaxArticles == 0 {
			src.MaxArticles = 1
		}
		if src.ScanWindow == 0 {
			src.ScanWindow = 5
		}
	}
}
