package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/IshaanNene/newswire/internal/types"
)

var csvHeaders = []string{"id", "title", "url", "category", "publication_date", "summary", "created_at", "updated_at"}

// Export writes records to w as csv, json or jsonl.
func Export(w io.Writer, format string, records []types.StoredArticle) error {
	switch format {
	case "csv":
		return exportCSV(w, records)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(records); err != nil {
			return fmt.Errorf("encode JSON: %w", err)
		}
		return nil
	case "jsonl":
		enc := json.NewEncoder(w)
		for _, rec := range records {
			if err := enc.Encode(rec); err != nil {
				return fmt.Errorf("encode JSONL: %w", err)
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported export format: %s", format)
	}
}

func exportCSV(w io.Writer, records []types.StoredArticle) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeaders); err != nil {
		return fmt.Errorf("write CSV header: %w", err)
	}
	for _, rec := range records {
		row := []string{
			rec.ID,
			rec.Title,
			rec.URL,
			rec.Category,
			rec.PublicationDate.Format(time.RFC3339),
			rec.Summary,
			rec.CreatedAt.Format(time.RFC3339),
			rec.UpdatedAt.Format(time.RFC3339),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write CSV row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}
