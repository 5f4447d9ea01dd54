package memory

import (
	"context"
	"slices"
	"sync"
)

// InMemoryRepository keeps memories in a map. Used in tests and local runs.
type InMemoryRepository struct {
	mu    sync.RWMutex
	items map[string]Memory
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{items: map[string]Memory{}}
}

func (r *InMemoryRepository) Save(_ context.Context, m Memory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m.Tags = slices.Clone(m.Tags)
	r.items[m.ID] = m
	return nil
}

func (r *InMemoryRepository) GetMany(_ context.Context, userID string, ids []string) ([]Memory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Memory, 0, len(ids))
	for _, id := range ids {
		if m, ok := r.items[id]; ok && m.UserID == userID {
			m.Tags = slices.Clone(m.Tags)
			out = append(out, m)
		}
	}
	return out, nil
}

// Len returns the number of stored memories.
func (r *InMemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}
