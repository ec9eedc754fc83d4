package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/IshaanNene/newswire/internal/storage"
)

var (
	exportFormat string
	exportOutput string
	exportLimit  int
)

// statsCmd creates the "stats" subcommand that summarizes stored articles.
func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show statistics about stored articles",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := setupLogger(&cfg.Logging)

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			store, err := storage.Open(ctx, &cfg.Storage, logger)
			if err != nil {
				return fmt.Errorf("open storage: %w", err)
			}
			defer store.Close()

			articles, err := store.List(ctx, 0)
			if err != nil {
				return err
			}
			st := storage.ComputeStats(articles, time.Now())

			t := table.NewWriter()
			t.SetOutputMirror(os.Stdout)
			t.SetStyle(table.StyleRounded)
			t.AppendHeader(table.Row{"Metric", "Value"})
			t.AppendRows([]table.Row{
				{"Total articles", st.TotalArticles},
				{"Sources", st.SourcesCount},
				{"With summary", st.SummariesCount},
				{"Last 24h", st.RecentUpdatesCount},
				{"Last update", st.TimeSinceLastUpdate},
				{"Storage", store.Name()},
			})
			t.Render()
			return nil
		},
	}
}

// exportCmd creates the "export" subcommand that writes stored articles to a file.
func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored articles as JSON, JSONL or CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger := setupLogger(&cfg.Logging)

			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			store, err := storage.Open(ctx, &cfg.Storage, logger)
			if err != nil {
				return fmt.Errorf("open storage: %w", err)
			}
			defer store.Close()

			articles, err := store.List(ctx, exportLimit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if exportOutput != "" && exportOutput != "-" {
				f, err := os.Create(exportOutput)
				if err != nil {
					return fmt.Errorf("create output file: %w", err)
				}
				defer f.Close()
				out = f
			}

			if err := storage.Export(out, exportFormat, articles); err != nil {
				return err
			}
			logger.Info("export complete", "format", exportFormat, "count", len(articles), "output", exportOutput)
			return nil
		},
	}

	cmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "output format: json, jsonl, csv")
	cmd.Flags().StringVarP(&exportOutput, "output", "o", "-", "output file path (- for stdout)")
	cmd.Flags().IntVarP(&exportLimit, "limit", "n", 0, "maximum articles to export, newest first (0 = all)")

	return cmd
}
