package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/IshaanNene/newswire/internal/types"
)

// MemoryStore keeps articles in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	byURL map[string]types.StoredArticle
	now   func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byURL: make(map[string]types.StoredArticle),
		now:   time.Now,
	}
}

func (s *MemoryStore) Name() string { return "memory" }

func (s *MemoryStore) ExistsByURL(_ context.Context, url string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byURL[url]
	return ok, nil
}

func (s *MemoryStore) UpsertByURL(_ context.Context, rec *types.StoredArticle) (types.StoredArticle, bool, error) {
	if rec == nil || rec.URL == "" {
		return types.StoredArticle{}, false, storageErr(s.Name(), "upsert", fmt.Errorf("%w: empty url", types.ErrInvalidURL))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	saved, created := s.upsertLocked(rec)
	return saved, created, nil
}

func (s *MemoryStore) upsertLocked(rec *types.StoredArticle) (types.StoredArticle, bool) {
	now := s.now().UTC()
	next := *rec
	next.UpdatedAt = now

	existing, ok := s.byURL[rec.URL]
	if ok {
		next.ID = existing.ID
		next.CreatedAt = existing.CreatedAt
	} else {
		if next.ID == "" {
			next.ID = uuid.NewString()
		}
		next.CreatedAt = now
	}
	s.byURL[rec.URL] = next
	return next, !ok
}

func (s *MemoryStore) List(_ context.Context, limit int) ([]types.StoredArticle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listLocked(limit), nil
}

func (s *MemoryStore) listLocked(limit int) []types.StoredArticle {
	out := make([]types.StoredArticle, 0, len(s.byURL))
	for _, rec := range s.byURL {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].URL < out[j].URL
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (s *MemoryStore) Close() error { return nil }
