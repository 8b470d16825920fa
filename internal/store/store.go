// Package store persists canonical records, the review queue, run audit
// logs, and the job queue. Two implementations: SQLite (default) and
// Postgres.
package store

import (
	"context"
	"time"

	"github.com/partybase-ng/directory-cli/internal/model"
)

// UpsertResult reports what an Upsert did.
type UpsertResult int

const (
	UpsertCreated UpsertResult = iota
	UpsertUpdated
	// UpsertSuppressed means the stable ID is blacklisted and the write was
	// refused. Blacklisted records never resurface through ingestion.
	UpsertSuppressed
)

// RecordFilter specifies criteria for listing records.
type RecordFilter struct {
	Kind           model.RecordKind     `json:"kind,omitempty"`
	Region         string               `json:"region,omitempty"`
	ApprovalStatus model.ApprovalStatus `json:"approval_status,omitempty"`
	MinConfidence  float64              `json:"min_confidence,omitempty"`
	Blacklisted    bool                 `json:"blacklisted,omitempty"`
	Limit          int                  `json:"limit,omitempty"`
	Offset         int                  `json:"offset,omitempty"`
}

// WeakSignal carries the overlap keys the matcher uses to pull merge
// candidates from the directory: same region, or any shared phone, email,
// or website.
type WeakSignal struct {
	Region   string
	Phones   []string
	Emails   []string
	Websites []string
}

// Store defines the persistence interface for the directory pipeline.
type Store interface {
	// Records
	FindByStableID(ctx context.Context, stableID string) (*model.CanonicalRecord, error)
	Upsert(ctx context.Context, rec *model.CanonicalRecord) (UpsertResult, error)
	Delete(ctx context.Context, stableID string) error
	FindByWeakSignal(ctx context.Context, sig WeakSignal) ([]model.CanonicalRecord, error)
	DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int, error)
	ListRecords(ctx context.Context, filter RecordFilter) ([]model.CanonicalRecord, error)

	// Review queue
	QueueMatch(ctx context.Context, m model.DuplicateMatch) error
	PendingMatches(ctx context.Context, limit int) ([]model.DuplicateMatch, error)
	ResolveMatch(ctx context.Context, matchID int64, status string) error
	// ResolveMatchPair resolves a queued pair by its stable IDs in either
	// order; resolving a pair that was never queued is a no-op.
	ResolveMatchPair(ctx context.Context, stableIDA, stableIDB, status string) error

	// Approvals
	PendingApprovals(ctx context.Context, limit int) ([]model.CanonicalRecord, error)
	SetApproval(ctx context.Context, stableID string, status model.ApprovalStatus) error
	SetBlacklisted(ctx context.Context, stableID string) error

	// Runs
	CreateRun(ctx context.Context, run *model.Run) error
	FinishRun(ctx context.Context, run *model.Run) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, limit int) ([]model.Run, error)

	// Job queue
	EnqueueJob(ctx context.Context, job *model.RunJob) error
	DequeueJob(ctx context.Context) (*model.RunJob, error)
	GetJob(ctx context.Context, jobID string) (*model.RunJob, error)
	CompleteJob(ctx context.Context, jobID string) error
	FailJob(ctx context.Context, jobID string, lastError string, retryAt time.Time) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
