// Package storage persists conversation transcripts. The default backend
// keeps items in memory, which is enough for a single workflow run where the
// engine's history is the real durability layer. Durable external backends
// must be driven through an activity, never from workflow code directly.
package storage

import (
	"sync"

	"github.com/mfateev/codex-temporal/internal/models"
)

// Backend receives transcript snapshots as the conversation grows.
type Backend interface {
	// Save appends items to the stored transcript.
	Save(items []models.ResponseItem) error
}

// InMemoryStorage is a Backend that accumulates items in process memory.
type InMemoryStorage struct {
	mu    sync.Mutex
	items []models.ResponseItem
}

// NewInMemoryStorage returns an empty in-memory backend.
func NewInMemoryStorage() *InMemoryStorage {
	return &InMemoryStorage{}
}

// Save appends items to the transcript.
func (s *InMemoryStorage) Save(items []models.ResponseItem) error {
	s.mu.Lock()
	s.items = append(s.items, items...)
	s.mu.Unlock()
	return nil
}

// Items returns a copy of everything saved so far.
func (s *InMemoryStorage) Items() []models.ResponseItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ResponseItem, len(s.items))
	copy(out, s.items)
	return out
}

// Len reports how many items have been saved.
func (s *InMemoryStorage) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
