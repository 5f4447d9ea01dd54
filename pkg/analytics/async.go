package analytics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dmitrymomot/memkeep/pkg/logger"
)

// AsyncOptions configures batching for AsyncWriter.
type AsyncOptions struct {
	BufferSize     int           // Events queued before Store falls back to a direct write.
	BatchSize      int           // Events per StoreBatch call.
	FlushInterval  time.Duration // Max time a partial batch waits.
	StorageTimeout time.Duration // Timeout for each StoreBatch call.
	Logger         *slog.Logger
}

// AsyncWriter batches events in the background and writes them to a
// BatchSink. Store never waits for the write.
type AsyncWriter struct {
	sink    BatchSink
	events  chan Event
	done    chan struct{}
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	options AsyncOptions
}

// NewAsyncWriter starts the background flusher. Panics if sink is nil.
func NewAsyncWriter(sink BatchSink, opts AsyncOptions) *AsyncWriter {
	if sink == nil {
		panic("analytics: batch sink cannot be nil")
	}

	if opts.BufferSize <= 0 {
		opts.BufferSize = 1000
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = time.Second
	}
	if opts.StorageTimeout <= 0 {
		opts.StorageTimeout = 5 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	w := &AsyncWriter{
		sink:    sink,
		events:  make(chan Event, opts.BufferSize),
		done:    make(chan struct{}),
		options: opts,
	}

	w.wg.Add(1)
	go w.run()

	return w
}

// Store queues the event. When the buffer is full the event is written
// synchronously so it is not lost.
func (w *AsyncWriter) Store(ctx context.Context, event Event) error {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if w.closed {
		return ErrSinkClosed
	}

	select {
	case w.events <- event:
		return nil
	default:
		return w.sink.StoreBatch(ctx, []Event{event})
	}
}

func (w *AsyncWriter) run() {
	defer w.wg.Done()

	batch := make([]Event, 0, w.options.BatchSize)
	ticker := time.NewTicker(w.options.FlushInterval)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), w.options.StorageTimeout)
		defer cancel()

		if err := w.sink.StoreBatch(ctx, batch); err != nil {
			w.options.Logger.Error("failed to flush analytics batch",
				logger.Count(int64(len(batch))),
				logger.Error(err),
			)
		}

		clear(batch)
		batch = batch[:0]
	}

	for {
		select {
		case e := <-w.events:
			batch = append(batch, e)
			if len(batch) >= w.options.BatchSize {
				flush()
			}

		case <-ticker.C:
			flush()

		case <-w.done:
			for {
				select {
				case e := <-w.events:
					batch = append(batch, e)
					if len(batch) >= w.options.BatchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}
		}
	}
}

// Close stops accepting events and flushes what is queued. The context
// bounds how long Close waits for the final flush.
func (w *AsyncWriter) Close(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.done)
	w.mu.Unlock()

	flushed := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(flushed)
	}()

	select {
	case <-flushed:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
