package jobrunner

import (
	"context"
	"time"

	"github.com/dmitrymomot/memkeep/pkg/schedule"
)

// Func is a job body. The returned value is stored in the execution record.
type Func func(ctx context.Context) (any, error)

// Job is a recurring unit of work.
type Job struct {
	ID       string
	Name     string
	Schedule schedule.Schedule
	// Timeout bounds one execution. Zero means the runner default.
	Timeout time.Duration
	Run     Func
}

// ExecutionStatus is the outcome of one execution.
type ExecutionStatus string

const (
	StatusSuccess ExecutionStatus = "success"
	StatusError   ExecutionStatus = "error"
	StatusSkipped ExecutionStatus = "skipped"
)

// Trigger tells what started an execution.
type Trigger string

const (
	TriggerScheduled Trigger = "scheduled"
	TriggerForced    Trigger = "forced"
	TriggerRecovered Trigger = "recovered"
)

// ExecutionRecord describes one execution attempt.
type ExecutionRecord struct {
	ID        string          `json:"id"`
	JobID     string          `json:"job_id"`
	Status    ExecutionStatus `json:"status"`
	Trigger   Trigger         `json:"trigger"`
	StartTime time.Time       `json:"start_time"`
	EndTime   time.Time       `json:"end_time"`
	Duration  time.Duration   `json:"duration"`
	Result    any             `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// Metrics are counters owned by a Runner instance.
type Metrics struct {
	JobsExecuted int64 `json:"jobs_executed"`
	JobsFailed   int64 `json:"jobs_failed"`
	JobsMissed   int64 `json:"jobs_missed"`
	JobsSkipped  int64 `json:"jobs_skipped"`
}

// JobStatus is a point-in-time view of a registered job.
type JobStatus struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Schedule   string          `json:"schedule"`
	NextRun    time.Time       `json:"next_run"`
	Running    bool            `json:"running"`
	LastRun    *time.Time      `json:"last_run,omitempty"`
	LastStatus ExecutionStatus `json:"last_status,omitempty"`
}

// Status is a point-in-time view of the runner.
type Status struct {
	Running   bool        `json:"running"`
	StartedAt *time.Time  `json:"started_at,omitempty"`
	Workers   int         `json:"workers"`
	Jobs      []JobStatus `json:"jobs"`
}
