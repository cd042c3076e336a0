package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dgallion1/skillsprint/internal/lesson"
)

type memEntry struct {
	doc       *lesson.Document
	hash      string
	createdAt time.Time
}

// MemoryStore keeps documents in process memory. Documents are copied on
// the way in and out so callers cannot mutate stored state.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memEntry
	byHash  map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memEntry),
		byHash:  make(map[string]string),
	}
}

func (s *MemoryStore) Put(ctx context.Context, id, contentHash string, doc *lesson.Document) error {
	if doc == nil {
		return fmt.Errorf("put %s: nil document", id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; ok {
		return fmt.Errorf("put %s: %w", id, ErrExists)
	}
	s.entries[id] = memEntry{doc: doc.Clone(), hash: contentHash, createdAt: time.Now()}
	if contentHash != "" {
		if _, ok := s.byHash[contentHash]; !ok {
			s.byHash[contentHash] = id
		}
	}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*lesson.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	return e.doc.Clone(), nil
}

func (s *MemoryStore) FindByHash(ctx context.Context, contentHash string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byHash[contentHash]
	return id, ok, nil
}

// List returns the newest lessons first.
func (s *MemoryStore) List(ctx context.Context, limit int) ([]Summary, error) {
	s.mu.RLock()
	out := make([]Summary, 0, len(s.entries))
	for id, e := range s.entries {
		out = append(out, summarize(id, e.doc, e.createdAt))
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
