// Package jobrunner runs recurring jobs in-process against UTC wall time.
//
// A Runner owns a fixed pool of workers (two by default), the next planned
// run of each job, a ring buffer of the last 50 execution records and the
// executed, failed, missed and skipped counters. Nothing is global: tests
// create their own runner and call ResetMetrics when they need a clean slate.
//
// # Overlap
//
// A job runs at most once at a time. A scheduled trigger that arrives while
// the previous execution is still going is skipped and recorded with status
// "skipped"; ForceExecute returns ErrJobAlreadyRunning instead. With
// WithLocker the same holds across processes through a Redis lock.
//
// # Restarts
//
// Next runs are saved to a StateStore (PostgresStateStore in production).
// On Start a run that fell due while the process was down fires once with
// trigger "recovered" when it is at most the misfire grace (5 minutes by
// default) late. Older runs are counted as missed and dropped.
//
// # Usage
//
//	r := jobrunner.New(
//		jobrunner.WithStateStore(jobrunner.NewPostgresStateStore(pool)),
//		jobrunner.WithLogger(log),
//	)
//	if err := r.Register(subs.Jobs(schedule.Monthly(), schedule.Daily())...); err != nil {
//		return err
//	}
//	g.Go(r.Run(ctx, 30*time.Second))
package jobrunner
