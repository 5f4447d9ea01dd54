package jobrunner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/memkeep/pkg/logger"
)

// entry is a registered job plus its scheduling state.
type entry struct {
	job  Job
	next time.Time // guarded by Runner.mu
	busy atomic.Bool

	mu         sync.Mutex
	lastRun    *time.Time
	lastStatus ExecutionStatus
}

// Runner fires registered jobs on their schedules using a fixed worker pool.
// A job never runs concurrently with itself.
type Runner struct {
	opts  *options
	state StateStore
	hist  *history
	sem   chan struct{}

	mu        sync.Mutex
	jobs      map[string]*entry
	order     []string
	running   bool
	startedAt time.Time
	baseCtx   context.Context
	cancel    context.CancelFunc
	loopDone  chan struct{}
	stopping  chan struct{}
	inflight  sync.WaitGroup
}

// New creates a stopped runner.
func New(opts ...Option) *Runner {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	if o.state == nil {
		o.state = NewMemoryStateStore()
	}

	return &Runner{
		opts:  o,
		state: o.state,
		hist:  newHistory(o.historySize),
		sem:   make(chan struct{}, o.workers),
		jobs:  make(map[string]*entry),
	}
}

// Register adds jobs. Jobs cannot be added while the runner is running.
func (r *Runner) Register(jobs ...Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return ErrAlreadyRunning
	}

	for _, job := range jobs {
		if job.ID == "" || job.Schedule == nil || job.Run == nil {
			return errors.Join(ErrInvalidJob, fmt.Errorf("job %q needs an id, a schedule and a body", job.ID))
		}
		if _, exists := r.jobs[job.ID]; exists {
			return errors.Join(ErrJobAlreadyRegistered, fmt.Errorf("job %q", job.ID))
		}
		if job.Name == "" {
			job.Name = job.ID
		}

		r.jobs[job.ID] = &entry{job: job}
		r.order = append(r.order, job.ID)

		r.opts.logger.Info("registered job",
			logger.JobID(job.ID),
			slog.String("schedule", job.Schedule.String()),
		)
	}

	return nil
}

// Start plans the next run of every job and begins triggering. A persisted
// run that was due while the process was down fires once if it is no older
// than the misfire grace; older ones are counted as missed and dropped.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return ErrAlreadyRunning
	}
	if len(r.jobs) == 0 {
		return ErrNoJobs
	}

	now := r.now()
	var recovered []*entry

	for _, id := range r.order {
		e := r.jobs[id]
		e.next = e.job.Schedule.Next(now)

		planned, ok, err := r.state.Load(ctx, id)
		if err != nil {
			r.opts.logger.WarnContext(ctx, "failed to load job state", logger.JobID(id), logger.Error(err))
		}
		if ok {
			switch {
			case planned.After(now):
				e.next = planned
			case now.Sub(planned) <= r.opts.misfireGrace:
				recovered = append(recovered, e)
			default:
				r.missed(ctx, e, planned, now)
			}
		}

		r.persist(ctx, e)
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r.baseCtx = context.WithoutCancel(ctx)
	r.cancel = cancel
	r.loopDone = make(chan struct{})
	r.stopping = make(chan struct{})
	r.startedAt = now
	r.running = true

	for _, e := range recovered {
		r.opts.logger.InfoContext(ctx, "recovering misfired job", logger.JobID(e.job.ID))
		r.dispatch(e, TriggerRecovered)
	}

	go r.loop(loopCtx, r.loopDone)

	r.opts.logger.InfoContext(ctx, "job runner started",
		logger.Count(int64(len(r.jobs))),
		slog.Int("workers", cap(r.sem)),
	)

	return nil
}

// Stop halts triggering and waits for in-flight executions. The context
// bounds the wait only; running jobs are not cancelled.
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return ErrNotRunning
	}
	r.running = false
	r.cancel()
	close(r.stopping)
	loopDone := r.loopDone
	r.mu.Unlock()

	<-loopDone

	drained := make(chan struct{})
	go func() {
		r.inflight.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		r.opts.logger.InfoContext(ctx, "job runner stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run starts the runner and stops it when ctx is cancelled. The returned
// function fits errgroup.Group.Go.
func (r *Runner) Run(ctx context.Context, shutdownTimeout time.Duration) func() error {
	return func() error {
		if err := r.Start(ctx); err != nil {
			return err
		}
		<-ctx.Done()

		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return r.Stop(stopCtx)
	}
}

// ForceExecute runs a job synchronously outside its schedule. It counts in
// metrics like a scheduled run and is rejected with ErrJobAlreadyRunning while
// the same job is in flight. A failing job is returned joined with
// ErrJobExecution.
func (r *Runner) ForceExecute(ctx context.Context, jobID string) (ExecutionRecord, error) {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return ExecutionRecord{}, ErrNotRunning
	}
	e, ok := r.jobs[jobID]
	if !ok {
		r.mu.Unlock()
		return ExecutionRecord{}, errors.Join(ErrJobNotFound, fmt.Errorf("job %q", jobID))
	}
	if !e.busy.CompareAndSwap(false, true) {
		r.skip(e, TriggerForced, "execution already in progress")
		r.mu.Unlock()
		return ExecutionRecord{}, ErrJobAlreadyRunning
	}
	r.inflight.Add(1)
	r.mu.Unlock()

	defer r.inflight.Done()
	defer e.busy.Store(false)

	select {
	case r.sem <- struct{}{}:
	case <-ctx.Done():
		return ExecutionRecord{}, ctx.Err()
	}
	defer func() { <-r.sem }()

	rec, err := r.execute(context.WithoutCancel(ctx), e, TriggerForced)
	if err != nil && !errors.Is(err, ErrJobAlreadyRunning) {
		return rec, errors.Join(ErrJobExecution, err)
	}
	return rec, err
}

// IsRunning reports whether the runner is triggering jobs.
func (r *Runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Status returns a snapshot of the runner and its jobs.
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := Status{
		Running: r.running,
		Workers: cap(r.sem),
		Jobs:    make([]JobStatus, 0, len(r.order)),
	}
	if r.running {
		started := r.startedAt
		st.StartedAt = &started
	}

	for _, id := range r.order {
		e := r.jobs[id]
		js := JobStatus{
			ID:       e.job.ID,
			Name:     e.job.Name,
			Schedule: e.job.Schedule.String(),
			NextRun:  e.next,
			Running:  e.busy.Load(),
		}
		e.mu.Lock()
		if e.lastRun != nil {
			last := *e.lastRun
			js.LastRun = &last
		}
		js.LastStatus = e.lastStatus
		e.mu.Unlock()

		st.Jobs = append(st.Jobs, js)
	}

	return st
}

// Metrics returns a copy of the counters.
func (r *Runner) Metrics() Metrics {
	return r.hist.snapshot()
}

// History returns the most recent execution records, oldest first.
func (r *Runner) History() []ExecutionRecord {
	return r.hist.list()
}

// ResetMetrics clears counters and history.
func (r *Runner) ResetMetrics() {
	r.hist.reset()
}

func (r *Runner) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(r.opts.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

// tick dispatches every due job and plans its next run from now, so a
// stalled process never accumulates a backlog.
func (r *Runner) tick(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return
	}

	now := r.now()
	for _, id := range r.order {
		e := r.jobs[id]
		if e.next.After(now) {
			continue
		}

		planned := e.next
		e.next = e.job.Schedule.Next(now)

		if now.Sub(planned) > r.opts.misfireGrace {
			r.missed(ctx, e, planned, now)
		} else {
			r.dispatch(e, TriggerScheduled)
		}

		r.persist(ctx, e)
	}
}

// dispatch hands the job to the pool. Caller holds r.mu and r.running is true.
func (r *Runner) dispatch(e *entry, trigger Trigger) {
	if !e.busy.CompareAndSwap(false, true) {
		r.skip(e, trigger, "previous execution still running")
		return
	}

	r.inflight.Add(1)
	base := r.baseCtx
	stopping := r.stopping

	go func() {
		defer r.inflight.Done()
		defer e.busy.Store(false)

		select {
		case r.sem <- struct{}{}:
		case <-stopping:
			r.skip(e, trigger, "runner stopped before a worker was free")
			return
		}
		defer func() { <-r.sem }()

		_, _ = r.execute(base, e, trigger)
	}()
}

func (r *Runner) execute(base context.Context, e *entry, trigger Trigger) (ExecutionRecord, error) {
	rec := ExecutionRecord{
		ID:        uuid.NewString(),
		JobID:     e.job.ID,
		Trigger:   trigger,
		StartTime: r.now().UTC(),
	}

	timeout := e.job.Timeout
	if timeout <= 0 {
		timeout = r.opts.defaultTimeout
	}
	ctx, cancel := context.WithTimeout(base, timeout)
	defer cancel()

	if r.opts.locker != nil {
		release, err := r.opts.locker.Acquire(ctx, e.job.ID, r.opts.lockTTL)
		if errors.Is(err, ErrLockNotAcquired) {
			rec.Status = StatusSkipped
			rec.Error = err.Error()
			r.finish(ctx, e, rec)
			return rec, ErrJobAlreadyRunning
		}
		if err != nil {
			rec.Status = StatusError
			rec.Error = "acquire lock: " + err.Error()
			r.finish(ctx, e, rec)
			return rec, err
		}
		defer func() {
			relCtx, relCancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer relCancel()
			if err := release(relCtx); err != nil {
				r.opts.logger.Warn("failed to release job lock", logger.JobID(e.job.ID), logger.Error(err))
			}
		}()
	}

	result, err := invoke(ctx, e.job.Run)

	rec.EndTime = r.now().UTC()
	rec.Duration = rec.EndTime.Sub(rec.StartTime)
	rec.Result = result
	if err != nil {
		rec.Status = StatusError
		rec.Error = err.Error()
	} else {
		rec.Status = StatusSuccess
	}

	r.finish(ctx, e, rec)
	return rec, err
}

// invoke turns a panic in the job body into an error.
func invoke(ctx context.Context, fn Func) (result any, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return fn(ctx)
}

func (r *Runner) finish(ctx context.Context, e *entry, rec ExecutionRecord) {
	r.hist.add(rec)

	e.mu.Lock()
	start := rec.StartTime
	e.lastRun = &start
	e.lastStatus = rec.Status
	e.mu.Unlock()

	attrs := []any{
		logger.JobID(rec.JobID),
		logger.ExecutionID(rec.ID),
		slog.String("trigger", string(rec.Trigger)),
		logger.Duration(rec.Duration),
	}

	switch rec.Status {
	case StatusSuccess:
		r.opts.logger.InfoContext(ctx, "job completed", attrs...)
	case StatusSkipped:
		r.opts.logger.InfoContext(ctx, "job skipped", append(attrs, slog.String("reason", rec.Error))...)
	default:
		r.opts.logger.ErrorContext(ctx, "job failed", append(attrs, slog.String("error", rec.Error))...)
	}
}

func (r *Runner) skip(e *entry, trigger Trigger, reason string) {
	now := r.now().UTC()
	rec := ExecutionRecord{
		ID:        uuid.NewString(),
		JobID:     e.job.ID,
		Status:    StatusSkipped,
		Trigger:   trigger,
		StartTime: now,
		EndTime:   now,
		Error:     reason,
	}
	r.hist.add(rec)

	r.opts.logger.Info("job skipped",
		logger.JobID(e.job.ID),
		slog.String("trigger", string(trigger)),
		slog.String("reason", reason),
	)
}

func (r *Runner) missed(ctx context.Context, e *entry, planned, now time.Time) {
	r.hist.missed()
	r.opts.logger.WarnContext(ctx, "job run missed",
		logger.JobID(e.job.ID),
		slog.Time("planned", planned),
		slog.Duration("late_by", now.Sub(planned)),
	)
}

func (r *Runner) persist(ctx context.Context, e *entry) {
	if err := r.state.Save(ctx, e.job.ID, e.next); err != nil {
		r.opts.logger.WarnContext(ctx, "failed to persist job state", logger.JobID(e.job.ID), logger.Error(err))
	}
}

func (r *Runner) now() time.Time {
	return r.opts.clock().UTC()
}
