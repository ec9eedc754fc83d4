package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/newswire/internal/config"
	"github.com/IshaanNene/newswire/internal/extractor"
	"github.com/IshaanNene/newswire/internal/fetcher"
	"github.com/IshaanNene/newswire/internal/pipeline"
	"github.com/IshaanNene/newswire/internal/storage"
	"github.com/IshaanNene/newswire/internal/types"
)

var (
	extractFetcher   string
	extractSave      bool
	extractTitleSels []string
	extractBodySels  []string
)

// errArticleDropped is returned when the pipeline filters the extracted article out.
var errArticleDropped = errors.New("article dropped by pipeline")

// extractCmd creates the "extract" subcommand that runs the extractor against
// a single article URL, for checking selectors against a live page.
func extractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <url>",
		Short: "Extract one article URL and optionally store it",
		Args:  cobra.ExactArgs(1),
		RunE:  runExtract,
	}

	cmd.Flags().StringVar(&extractFetcher, "fetcher", "http", "fetcher to use: http, browser")
	cmd.Flags().BoolVar(&extractSave, "save", false, "run the pipeline and store the article")
	cmd.Flags().StringSliceVar(&extractTitleSels, "title-selector", nil, "extra CSS title selector, tried first (repeatable)")
	cmd.Flags().StringSliceVar(&extractBodySels, "body-selector", nil, "extra CSS body paragraph selector, tried first (repeatable)")

	return cmd
}

// applyExtractOverrides prepends the command-line selectors to the configured ones.
func applyExtractOverrides(cfg *config.Config) {
	if len(extractTitleSels) > 0 {
		cfg.Scraper.TitleSelectors = append(append([]string(nil), extractTitleSels...), cfg.Scraper.TitleSelectors...)
	}
	if len(extractBodySels) > 0 {
		cfg.Scraper.BodySelectors = append(append([]string(nil), extractBodySels...), cfg.Scraper.BodySelectors...)
	}
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(applyExtractOverrides)
	if err != nil {
		return err
	}
	logger := setupLogger(&cfg.Logging)
	rawURL := args[0]
	if err := config.ValidateURL(rawURL); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Scraper.SourceTimeout)
	defer cancel()

	fetchers := fetcher.NewSet(cfg, logger)
	defer fetchers.Close()
	f, err := fetchers.Get(extractFetcher)
	if err != nil {
		return err
	}
	ext := extractor.New(&cfg.Scraper, logger,
		extractor.SelectorOptions(cfg.Scraper.TitleSelectors, cfg.Scraper.BodySelectors)...)

	article, err := extractOne(ctx, f, ext, rawURL)
	if err != nil {
		return err
	}
	printArticle(cmd.OutOrStdout(), article)

	if !extractSave {
		return nil
	}

	store, err := storage.Open(ctx, &cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	saved, created, err := saveArticle(ctx, store, pipeline.NewDefault(&cfg.Summary, logger), article)
	if err != nil {
		return err
	}
	action := "updated"
	if created {
		action = "created"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "\nStored (%s) in %s as %s\n", action, store.Name(), saved.ID)
	return nil
}

// extractOne fetches rawURL and extracts its article.
func extractOne(ctx context.Context, f fetcher.Fetcher, ext *extractor.Extractor, rawURL string) (*types.Article, error) {
	resp, err := f.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	article, err := ext.ExtractResponse(resp)
	if err != nil {
		return nil, err
	}
	article.URL = rawURL
	return article, nil
}

// saveArticle runs article through pipe and upserts the result by URL.
func saveArticle(ctx context.Context, store storage.ArticleStore, pipe *pipeline.Pipeline, article *types.Article) (types.StoredArticle, bool, error) {
	rec, err := pipe.Process(types.NewStoredArticle(*article))
	if err != nil {
		return types.StoredArticle{}, false, err
	}
	if rec == nil {
		return types.StoredArticle{}, false, errArticleDropped
	}
	return store.UpsertByURL(ctx, rec)
}

func printArticle(w io.Writer, a *types.Article) {
	fmt.Fprintf(w, "Title:     %s\n", a.Title)
	fmt.Fprintf(w, "URL:       %s\n", a.URL)
	fmt.Fprintf(w, "Category:  %s\n", a.Category)
	if !a.PublishedAt.IsZero() {
		fmt.Fprintf(w, "Published: %s\n", a.PublishedAt.Format("2006-01-02 15:04 MST"))
	}
	fmt.Fprintf(w, "Length:    %d chars\n\n%s\n", len(a.FullText), a.FullText)
}
