package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/IshaanNene/newswire/internal/types"
)

const (
	defaultMaxOpenConns    = 10
	defaultMaxIdleConns    = 2
	defaultConnMaxLifetime = 5 * time.Minute
)

const articlesSchema = `
CREATE TABLE IF NOT EXISTS articles (
	id               TEXT PRIMARY KEY,
	title            VARCHAR(500) NOT NULL,
	url              TEXT NOT NULL UNIQUE,
	category         VARCHAR(100) NOT NULL DEFAULT 'General',
	publication_date TIMESTAMPTZ NOT NULL,
	full_text        TEXT NOT NULL,
	summary          TEXT NOT NULL DEFAULT '',
	created_at       TIMESTAMPTZ NOT NULL,
	updated_at       TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS articles_created_at_idx ON articles (created_at DESC);
`

var articleColumns = []string{
	"id", "title", "url", "category", "publication_date",
	"full_text", "summary", "created_at", "updated_at",
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresStore keeps articles in a PostgreSQL table.
type PostgresStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewPostgresStore connects to PostgreSQL and creates the articles table if needed.
func NewPostgresStore(ctx context.Context, dsn string, logger *slog.Logger) (*PostgresStore, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(defaultMaxOpenConns)
	db.SetMaxIdleConns(defaultMaxIdleConns)
	db.SetConnMaxLifetime(defaultConnMaxLifetime)

	s := NewPostgresStoreFromDB(db, logger)
	if err := s.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStoreFromDB wraps an existing connection.
func NewPostgresStoreFromDB(db *sqlx.DB, logger *slog.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: logger.With("component", "postgres_storage"),
	}
}

// EnsureSchema creates the articles table and its indexes.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, articlesSchema); err != nil {
		return storageErr(s.Name(), "schema", err)
	}
	return nil
}

func (s *PostgresStore) Name() string { return "postgres" }

func (s *PostgresStore) ExistsByURL(ctx context.Context, url string) (bool, error) {
	query, args, err := buildExistsQuery(url)
	if err != nil {
		return false, storageErr(s.Name(), "exists", err)
	}
	var exists bool
	if err := s.db.GetContext(ctx, &exists, query, args...); err != nil {
		return false, storageErr(s.Name(), "exists", err)
	}
	return exists, nil
}

// upsertRow is the RETURNING row of an upsert.
type upsertRow struct {
	types.StoredArticle
	Inserted bool `db:"inserted"`
}

func (s *PostgresStore) UpsertByURL(ctx context.Context, rec *types.StoredArticle) (types.StoredArticle, bool, error) {
	if rec == nil || rec.URL == "" {
		return types.StoredArticle{}, false, storageErr(s.Name(), "upsert", fmt.Errorf("%w: empty url", types.ErrInvalidURL))
	}

	query, args, err := buildUpsertQuery(rec, time.Now().UTC())
	if err != nil {
		return types.StoredArticle{}, false, storageErr(s.Name(), "upsert", err)
	}

	var row upsertRow
	if err := s.db.QueryRowxContext(ctx, query, args...).StructScan(&row); err != nil {
		return types.StoredArticle{}, false, storageErr(s.Name(), "upsert", err)
	}
	return row.StoredArticle, row.Inserted, nil
}

func (s *PostgresStore) List(ctx context.Context, limit int) ([]types.StoredArticle, error) {
	query, args, err := buildListQuery(limit)
	if err != nil {
		return nil, storageErr(s.Name(), "list", err)
	}
	var out []types.StoredArticle
	if err := s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, storageErr(s.Name(), "list", err)
	}
	return out, nil
}

func (s *PostgresStore) Close() error {
	s.logger.Info("postgres storage closing")
	return s.db.Close()
}

func buildExistsQuery(url string) (string, []any, error) {
	return psql.Select("COUNT(1) > 0").From("articles").Where(sq.Eq{"url": url}).ToSql()
}

// buildUpsertQuery inserts rec or updates the row with the same url. xmax is
// zero only for freshly inserted rows, which tells the caller whether the
// record is new.
func buildUpsertQuery(rec *types.StoredArticle, now time.Time) (string, []any, error) {
	id := rec.ID
	if id == "" {
		id = uuid.NewString()
	}
	return psql.Insert("articles").
		Columns(articleColumns...).
		Values(id, rec.Title, rec.URL, rec.Category, rec.PublicationDate,
			rec.FullText, rec.Summary, now, now).
		Suffix(`ON CONFLICT (url) DO UPDATE SET
			title = EXCLUDED.title,
			category = EXCLUDED.category,
			publication_date = EXCLUDED.publication_date,
			full_text = EXCLUDED.full_text,
			summary = EXCLUDED.summary,
			updated_at = EXCLUDED.updated_at
		RETURNING id, title, url, category, publication_date, full_text, summary,
			created_at, updated_at, (xmax = 0) AS inserted`).
		ToSql()
}

func buildListQuery(limit int) (string, []any, error) {
	q := psql.Select(articleColumns...).From("articles").OrderBy("created_at DESC", "url")
	if limit > 0 {
		q = q.Limit(uint64(limit))
	}
	return q.ToSql()
}
