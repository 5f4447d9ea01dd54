package analytics

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/dmitrymomot/memkeep/pkg/logger"
)

// Sink accepts single events.
type Sink interface {
	Store(ctx context.Context, event Event) error
}

// BatchSink accepts events in bulk. AsyncWriter only wraps batch sinks.
type BatchSink interface {
	StoreBatch(ctx context.Context, events []Event) error
}

// LogSink writes events to a slog logger. It is the default sink when no
// storage backend is configured.
type LogSink struct {
	log   *slog.Logger
	level slog.Level
}

// NewLogSink returns a sink logging at info level.
func NewLogSink(log *slog.Logger) *LogSink {
	if log == nil {
		log = slog.Default()
	}
	return &LogSink{log: log, level: slog.LevelInfo}
}

func (s *LogSink) Store(ctx context.Context, event Event) error {
	s.log.LogAttrs(ctx, s.level, "analytics event",
		slog.String("event_id", event.ID),
		logger.EventType(event.Type),
		logger.UserID(event.UserID),
		slog.Any("data", event.Data),
		slog.Time("timestamp", event.Timestamp),
	)
	return nil
}

func (s *LogSink) StoreBatch(ctx context.Context, events []Event) error {
	for _, e := range events {
		_ = s.Store(ctx, e)
	}
	return nil
}

// MemorySink keeps events in memory. Safe for concurrent use.
type MemorySink struct {
	mu     sync.RWMutex
	events []Event
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Store(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *MemorySink) StoreBatch(_ context.Context, events []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, events...)
	return nil
}

// Events returns a copy of everything stored so far.
func (s *MemorySink) Events() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.events)
}

// ByType returns the stored events of the given type.
func (s *MemorySink) ByType(t EventType) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Event
	for _, e := range s.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

func (s *MemorySink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}

// MultiSink fans events out to several sinks. Every sink is attempted and
// the failures are joined.
type MultiSink []Sink

func (m MultiSink) Store(ctx context.Context, event Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Store(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// StoreBatch writes the batch to every sink, one event at a time for sinks
// without batch support.
func (m MultiSink) StoreBatch(ctx context.Context, events []Event) error {
	var errs []error
	for _, s := range m {
		if bs, ok := s.(BatchSink); ok {
			if err := bs.StoreBatch(ctx, events); err != nil {
				errs = append(errs, err)
			}
			continue
		}
		for _, e := range events {
			if err := s.Store(ctx, e); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
