package jobrunner

import "errors"

var (
	// ErrJobExecution wraps the error or panic raised inside a job body.
	ErrJobExecution = errors.New("job execution failed")

	// ErrJobAlreadyRunning is returned by ForceExecute while the same job is in flight.
	ErrJobAlreadyRunning = errors.New("job is already running")

	ErrJobNotFound          = errors.New("job not found")
	ErrJobAlreadyRegistered = errors.New("job already registered")
	ErrInvalidJob           = errors.New("invalid job definition")
	ErrNoJobs               = errors.New("no jobs registered")

	ErrAlreadyRunning = errors.New("job runner is already running")
	ErrNotRunning     = errors.New("job runner is not running")

	// ErrLockNotAcquired means another process holds the job's lock.
	ErrLockNotAcquired = errors.New("job lock held by another instance")

	ErrStateStore = errors.New("job state store failure")
)
