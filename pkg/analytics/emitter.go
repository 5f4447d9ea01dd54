package analytics

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/memkeep/pkg/logger"
)

// Emitter raises events in a fire-and-forget manner: sink errors are logged
// and never returned to the caller.
type Emitter struct {
	sink    Sink
	log     *slog.Logger
	now     func() time.Time
	timeout time.Duration
}

// EmitterOption configures an Emitter.
type EmitterOption func(*Emitter)

// WithEmitterLogger sets the logger used for sink failures.
func WithEmitterLogger(log *slog.Logger) EmitterOption {
	return func(e *Emitter) {
		if log != nil {
			e.log = log
		}
	}
}

// WithEmitterClock overrides the timestamp source.
func WithEmitterClock(now func() time.Time) EmitterOption {
	return func(e *Emitter) {
		if now != nil {
			e.now = now
		}
	}
}

// WithEmitTimeout bounds a single sink call. Defaults to 2s.
func WithEmitTimeout(d time.Duration) EmitterOption {
	return func(e *Emitter) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// NewEmitter panics if sink is nil.
func NewEmitter(sink Sink, opts ...EmitterOption) *Emitter {
	if sink == nil {
		panic("analytics: sink cannot be nil")
	}

	e := &Emitter{
		sink:    sink,
		log:     slog.Default(),
		now:     func() time.Time { return time.Now().UTC() },
		timeout: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Emit builds an event and hands it to the sink. It returns the event so
// callers can correlate it in logs.
func (e *Emitter) Emit(ctx context.Context, t EventType, userID string, subscription any, data map[string]any) Event {
	event := Event{
		ID:           uuid.NewString(),
		Type:         t,
		UserID:       userID,
		Subscription: subscription,
		Data:         data,
		Timestamp:    e.now().UTC(),
	}

	// The primary operation may already be finishing; its cancellation must
	// not drop the event.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.timeout)
	defer cancel()

	if err := e.sink.Store(ctx, event); err != nil {
		e.log.WarnContext(ctx, "failed to emit analytics event",
			logger.EventType(t),
			logger.UserID(userID),
			logger.Error(err),
		)
	}

	return event
}
