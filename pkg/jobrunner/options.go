package jobrunner

import (
	"log/slog"
	"time"
)

// Option configures a Runner.
type Option func(*options)

type options struct {
	workers        int
	tickInterval   time.Duration
	misfireGrace   time.Duration
	defaultTimeout time.Duration
	lockTTL        time.Duration
	historySize    int
	state          StateStore
	locker         Locker
	logger         *slog.Logger
	clock          func() time.Time
}

func defaultOptions() *options {
	return &options{
		workers:        2,
		tickInterval:   time.Second,
		misfireGrace:   5 * time.Minute,
		defaultTimeout: 30 * time.Minute,
		lockTTL:        time.Hour,
		historySize:    DefaultHistorySize,
		logger:         slog.Default(),
		clock:          time.Now,
	}
}

// WithWorkers sets the size of the worker pool.
func WithWorkers(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithTickInterval sets how often due jobs are checked.
func WithTickInterval(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.tickInterval = d
		}
	}
}

// WithMisfireGrace sets how late a run may start and still count.
func WithMisfireGrace(d time.Duration) Option {
	return func(o *options) {
		if d >= 0 {
			o.misfireGrace = d
		}
	}
}

// WithJobTimeout sets the timeout for jobs that define none.
func WithJobTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.defaultTimeout = d
		}
	}
}

// WithHistorySize sets how many execution records are kept.
func WithHistorySize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.historySize = n
		}
	}
}

// WithStateStore persists next runs. Defaults to an in-memory store.
func WithStateStore(s StateStore) Option {
	return func(o *options) {
		if s != nil {
			o.state = s
		}
	}
}

// WithLocker enables cross-process locking. The ttl should exceed the
// longest expected run.
func WithLocker(l Locker, ttl time.Duration) Option {
	return func(o *options) {
		if l != nil {
			o.locker = l
		}
		if ttl > 0 {
			o.lockTTL = ttl
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.clock = now
		}
	}
}
