package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/IshaanNene/newswire/internal/types"
)

// FileStore keeps articles in memory and writes the full set to a JSON file
// after every change, so runs of the CLI share their history.
type FileStore struct {
	*MemoryStore
	path   string
	logger *slog.Logger
}

// NewFileStore opens (or creates) the JSON article file at path.
func NewFileStore(path string, logger *slog.Logger) (*FileStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	s := &FileStore{
		MemoryStore: NewMemoryStore(),
		path:        path,
		logger:      logger.With("component", "file_storage"),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) Name() string { return "file" }

func (s *FileStore) load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return storageErr(s.Name(), "load", err)
	}
	if len(data) == 0 {
		return nil
	}

	var records []types.StoredArticle
	if err := json.Unmarshal(data, &records); err != nil {
		return storageErr(s.Name(), "load", fmt.Errorf("decode %s: %w", s.path, err))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		s.byURL[rec.URL] = rec
	}
	s.logger.Debug("articles loaded", "path", s.path, "count", len(records))
	return nil
}

func (s *FileStore) UpsertByURL(_ context.Context, rec *types.StoredArticle) (types.StoredArticle, bool, error) {
	if rec == nil || rec.URL == "" {
		return types.StoredArticle{}, false, storageErr(s.Name(), "upsert", fmt.Errorf("%w: empty url", types.ErrInvalidURL))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	previous, existed := s.byURL[rec.URL]
	saved, created := s.upsertLocked(rec)
	if err := s.flushLocked(); err != nil {
		if existed {
			s.byURL[rec.URL] = previous
		} else {
			delete(s.byURL, rec.URL)
		}
		return types.StoredArticle{}, false, err
	}
	return saved, created, nil
}

// flushLocked writes all records to a temp file and renames it into place.
func (s *FileStore) flushLocked() error {
	records := s.listLocked(0)

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".articles-*.json")
	if err != nil {
		return storageErr(s.Name(), "flush", err)
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		tmp.Close()
		return storageErr(s.Name(), "flush", fmt.Errorf("encode JSON: %w", err))
	}
	if err := tmp.Close(); err != nil {
		return storageErr(s.Name(), "flush", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return storageErr(s.Name(), "flush", err)
	}
	return nil
}

func (s *FileStore) Close() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.logger.Info("file storage closing", "path", s.path, "total_items", len(s.byURL))
	return nil
}
