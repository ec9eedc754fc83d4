package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/IshaanNene/newswire/internal/config"
	"github.com/IshaanNene/newswire/internal/types"
)

// ArticleStore persists articles keyed by their unique URL.
type ArticleStore interface {
	// ExistsByURL reports whether an article with this URL is stored.
	ExistsByURL(ctx context.Context, url string) (bool, error)

	// UpsertByURL inserts rec, or updates the stored record with the same URL
	// in place. CreatedAt and ID of an existing record are preserved. The
	// returned bool is true when a new record was created.
	UpsertByURL(ctx context.Context, rec *types.StoredArticle) (types.StoredArticle, bool, error)

	// List returns up to limit articles, newest first. A limit <= 0 means all.
	List(ctx context.Context, limit int) ([]types.StoredArticle, error)

	// Close releases resources.
	Close() error

	// Name returns the storage backend identifier.
	Name() string
}

// Open creates the store selected by cfg.Type.
func Open(ctx context.Context, cfg *config.StorageConfig, logger *slog.Logger) (ArticleStore, error) {
	switch cfg.Type {
	case "", "memory":
		return NewMemoryStore(), nil
	case "file":
		return NewFileStore(cfg.Path, logger)
	case "mongodb":
		return NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection, logger)
	case "postgres":
		return NewPostgresStore(ctx, cfg.PostgresDSN, logger)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}

func storageErr(backend, op string, err error) error {
	return &types.StorageError{Backend: backend, Op: op, Err: err}
}
