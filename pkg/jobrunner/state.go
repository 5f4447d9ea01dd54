package jobrunner

import (
	"context"
	"sync"
	"time"
)

// StateStore persists the next planned run of every job so a restarted
// runner can tell a recoverable misfire from a missed run.
type StateStore interface {
	// Load returns false when nothing was stored for jobID.
	Load(ctx context.Context, jobID string) (time.Time, bool, error)
	Save(ctx context.Context, jobID string, nextRun time.Time) error
}

// MemoryStateStore keeps state for the lifetime of the process.
type MemoryStateStore struct {
	mu   sync.RWMutex
	next map[string]time.Time
}

func NewMemoryStateStore() *MemoryStateStore {
	return &MemoryStateStore{next: make(map[string]time.Time)}
}

func (s *MemoryStateStore) Load(_ context.Context, jobID string) (time.Time, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.next[jobID]
	return t, ok, nil
}

func (s *MemoryStateStore) Save(_ context.Context, jobID string, nextRun time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next[jobID] = nextRun.UTC()
	return nil
}
