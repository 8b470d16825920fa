package model

import "time"

// RunTrigger identifies what started a run.
type RunTrigger string

const (
	TriggerScheduled RunTrigger = "scheduled"
	TriggerManual    RunTrigger = "manual"
	TriggerRerun     RunTrigger = "source_rerun"
)

// JobStatus tracks a run job through the queue.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed" // transient; eligible for retry
	JobDead      JobStatus = "dead"   // retries exhausted, kept for inspection
)

// RunJob is one queued execution request. Triggers only ever enqueue these;
// the worker pool dequeues and executes.
type RunJob struct {
	ID          string     `json:"id"`
	Trigger     RunTrigger `json:"trigger"`
	Slot        string     `json:"slot,omitempty"` // scheduled slot name, e.g. "month-start"
	Sources     []string   `json:"sources,omitempty"`
	Region      string     `json:"region,omitempty"`
	Full        bool       `json:"full"`
	Status      JobStatus  `json:"status"`
	Attempts    int        `json:"attempts"`
	MaxAttempts int        `json:"max_attempts"`
	LastError   string     `json:"last_error,omitempty"`
	NextRunAt   time.Time  `json:"next_run_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// SourceResult is the per-source line of a run's audit log.
type SourceResult struct {
	Platform  string   `json:"platform"`
	Found     int      `json:"found"`
	New       int      `json:"new"`
	Updated   int      `json:"updated"`
	Dropped   int      `json:"dropped"` // failed normalization
	Errors    []string `json:"errors,omitempty"`
	Failed    bool     `json:"failed"` // hard failure, no output at all
	ElapsedMS int64    `json:"elapsed_ms"`
}

// Run is the immutable audit record of one refresh execution. Created at run
// start, finalized at run end, never mutated afterwards.
type Run struct {
	ID          string         `json:"id"`
	JobID       string         `json:"job_id,omitempty"`
	Trigger     RunTrigger     `json:"trigger"`
	Slot        string         `json:"slot,omitempty"`
	Sources     []SourceResult `json:"sources"`
	Found       int            `json:"found"`
	New         int            `json:"new"`
	Updated     int            `json:"updated"`
	Merged      int            `json:"merged"`
	Queued      int            `json:"queued_for_review"`
	Dropped     int            `json:"dropped"`
	Retired     int            `json:"retired"`
	Success     bool           `json:"success"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}
