package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/IshaanNene/newswire/internal/config"
	"github.com/IshaanNene/newswire/internal/types"
)

const (
	titleColumnWidth   = 60
	summaryColumnWidth = 80
	tableSummaryLength = 200
)

var (
	maxArticles int
	storageType string
	sourceNames string
)

// scrapeCmd creates the "scrape" subcommand that performs a single run.
func scrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Run one scrape across all configured sources",
		Long: `Run one scrape across all configured sources and store new articles.
Press Ctrl+C once to stop after the current article, twice to abort.`,
		RunE: runScrape,
	}

	cmd.Flags().IntVarP(&maxArticles, "max-articles", "m", 0, "global article cap for this run (0 = use config)")
	cmd.Flags().StringVarP(&storageType, "storage", "s", "", "storage backend: memory, file, mongodb, postgres")
	cmd.Flags().StringVar(&sourceNames, "sources", "", "comma-separated source names to scrape (default all)")

	return cmd
}

// applyScrapeOverrides applies command-line flag values to the config.
func applyScrapeOverrides(cfg *config.Config) {
	if maxArticles > 0 {
		cfg.Scraper.MaxArticles = maxArticles
	}
	if storageType != "" {
		cfg.Storage.Type = strings.ToLower(storageType)
	}
	if sourceNames != "" {
		wanted := make(map[string]bool)
		for _, name := range strings.Split(sourceNames, ",") {
			if name = strings.TrimSpace(name); name != "" {
				wanted[strings.ToLower(name)] = true
			}
		}
		var kept []config.SourceConfig
		for _, src := range cfg.Sources {
			if wanted[strings.ToLower(src.Name)] {
				kept = append(kept, src)
			}
		}
		cfg.Sources = kept
	}
}

// runScrape executes the scrape command.
func runScrape(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(applyScrapeOverrides)
	if err != nil {
		return err
	}
	logger := setupLogger(&cfg.Logging)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	// First signal asks for a cooperative stop, the second aborts in-flight work.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, stopping after current article", "signal", sig)
			_ = a.controller.RequestStop()
		case <-ctx.Done():
			return
		}
		select {
		case sig := <-sigCh:
			logger.Warn("received second signal, aborting", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	start := time.Now()
	runID, err := a.controller.Start()
	if err != nil {
		return fmt.Errorf("start run: %w", err)
	}
	a.controller.Wait()

	status := a.controller.Progress()
	elapsed := time.Since(start)
	stats := a.metrics.Snapshot()

	logger.Info("scrape complete",
		"run_id", runID,
		"elapsed", elapsed,
		"processed", status.Processed,
		"skipped", status.Skipped,
		"failed", status.Failed,
	)

	fmt.Printf("\n%s\n", status.Message)
	fmt.Printf("   Elapsed:   %s\n", elapsed.Round(time.Millisecond))
	fmt.Printf("   Sources:   %v dispatched, %v failed, %v timed out\n",
		stats["sources_dispatched"], stats["sources_failed"], stats["sources_timed_out"])
	fmt.Printf("   Articles:  %d new, %d skipped, %d failed\n", status.Processed, status.Skipped, status.Failed)
	fmt.Printf("   Storage:   %s\n", a.store.Name())

	if status.Processed > 0 {
		listCtx, listCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer listCancel()
		latest, err := a.store.List(listCtx, status.Processed)
		if err != nil {
			return fmt.Errorf("list stored articles: %w", err)
		}
		renderArticles(latest)
	}

	if strings.HasPrefix(status.Message, "Error:") {
		return fmt.Errorf("run %s failed: %s", runID, strings.TrimPrefix(status.Message, "Error: "))
	}
	return nil
}

// renderArticles prints articles as a table.
func renderArticles(articles []types.StoredArticle) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleRounded)
	t.Style().Options.SeparateRows = true
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, WidthMax: titleColumnWidth},
		{Number: 4, WidthMax: summaryColumnWidth},
	})

	t.AppendHeader(table.Row{"#", "Title", "Category", "Summary"})
	for i, a := range articles {
		t.AppendRow(table.Row{i + 1, a.Title, a.Category, a.ShortSummary(tableSummaryLength)})
	}
	t.AppendFooter(table.Row{"Total", len(articles), "", ""})

	fmt.Fprintf(os.Stdout, "\nStored Articles:\n")
	t.Render()
}
