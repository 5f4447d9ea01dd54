package subscription

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"
)

// MemoryStore is a Store backed by a map. It is used in tests and local
// runs; records are copied on the way in and out.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
	writes  int64
}

// NewMemoryStore returns a store seeded with records.
func NewMemoryStore(records ...Record) *MemoryStore {
	s := &MemoryStore{records: make(map[string]Record, len(records))}
	for _, r := range records {
		s.records[r.UserID] = r.Clone()
	}
	return s
}

func (s *MemoryStore) Get(_ context.Context, userID string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[userID]
	if !ok {
		return nil, ErrNotFound
	}
	out := rec.Clone()
	return &out, nil
}

func (s *MemoryStore) CreateDefault(_ context.Context, userID string, now time.Time) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[userID]; ok {
		out := rec.Clone()
		return &out, nil
	}

	rec := NewDefaultRecord(userID, now)
	s.records[userID] = rec
	s.writes++
	out := rec.Clone()
	return &out, nil
}

func (s *MemoryStore) Update(_ context.Context, userID string, patch Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[userID]
	if !ok {
		return ErrNotFound
	}
	patch.Apply(&rec)
	s.records[userID] = rec
	s.writes++
	return nil
}

func (s *MemoryStore) BulkUpdateAll(_ context.Context, patch Patch) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, rec := range s.records {
		patch.Apply(&rec)
		s.records[id] = rec
	}
	s.writes++
	return int64(len(s.records)), nil
}

func (s *MemoryStore) Query(_ context.Context, filter Filter, page, pageSize int) ([]Record, int64, error) {
	page, pageSize = normalizePage(page, pageSize)

	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := slices.SortedFunc(maps.Keys(s.records), strings.Compare)
	matched := make([]Record, 0, len(ids))
	for _, id := range ids {
		if rec := s.records[id]; filter.Match(rec) {
			matched = append(matched, rec.Clone())
		}
	}

	total := int64(len(matched))
	from := (page - 1) * pageSize
	if from >= len(matched) {
		return []Record{}, total, nil
	}
	to := min(from+pageSize, len(matched))
	return matched[from:to], total, nil
}

// Writes returns the number of write operations performed.
func (s *MemoryStore) Writes() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
