package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/IshaanNene/newswire/internal/config"
	"github.com/IshaanNene/newswire/internal/engine"
	"github.com/IshaanNene/newswire/internal/extractor"
	"github.com/IshaanNene/newswire/internal/fetcher"
	"github.com/IshaanNene/newswire/internal/observability"
	"github.com/IshaanNene/newswire/internal/pipeline"
	"github.com/IshaanNene/newswire/internal/source"
	"github.com/IshaanNene/newswire/internal/storage"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "newswire",
		Short: "Newswire, a breaking-news scraper",
		Long: `Newswire scrapes breaking-news listings from several outlets in parallel,
extracts article text, summarizes it and stores new articles.

Features:
  • Concurrent multi-source scraping with per-source timeouts
  • Cooperative stop between articles
  • Extractive summaries
  • File, MongoDB and PostgreSQL storage
  • JSON control API with Prometheus metrics
  • Cron-scheduled runs`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(scrapeCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(exportCmd())
	rootCmd.AddCommand(extractCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Newswire %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand that prints the effective configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(cfg)
		},
	}
}

// loadConfig loads the configuration, applies any command-line overrides
// and validates the result.
func loadConfig(overrides ...func(*config.Config)) (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	for _, apply := range overrides {
		apply(cfg)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// setupLogger creates a structured logger from the logging section.
func setupLogger(cfg *config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// app holds the wired components shared by scrape and serve.
type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	metrics    *observability.Metrics
	fetchers   *fetcher.Set
	store      storage.ArticleStore
	controller *engine.Controller
}

// newApp wires fetchers, extractor, scraper, orchestrator, storage, pipeline
// and the run controller. ctx bounds the lifetime of every run.
func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	store, err := storage.Open(ctx, &cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	metrics := observability.NewMetrics(logger)
	fetchers := fetcher.NewSet(cfg, logger)
	ext := extractor.New(&cfg.Scraper, logger,
		extractor.SelectorOptions(cfg.Scraper.TitleSelectors, cfg.Scraper.BodySelectors)...)
	scraper := source.NewScraper(&cfg.Scraper, fetchers, ext, metrics, logger)
	orch := engine.NewOrchestrator(cfg, scraper, metrics, logger)
	pipe := pipeline.NewDefault(&cfg.Summary, logger)
	ctrl := engine.NewController(ctx, cfg, orch, store, pipe, metrics, logger)

	logger.Info("newswire ready",
		"sources", len(cfg.Sources),
		"pool_size", cfg.EffectivePoolSize(),
		"max_articles", cfg.Scraper.MaxArticles,
		"storage", store.Name(),
	)

	return &app{
		cfg:        cfg,
		logger:     logger,
		metrics:    metrics,
		fetchers:   fetchers,
		store:      store,
		controller: ctrl,
	}, nil
}

// Close stops any run and releases fetchers and storage.
func (a *app) Close() {
	a.controller.Close()
	if err := a.fetchers.Close(); err != nil {
		a.logger.Warn("fetcher close failed", "error", err)
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("storage close failed", "error", err)
	}
}
