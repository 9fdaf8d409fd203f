package jobs

import (
	"context"
	"time"
)

// Repo defines persistence operations for jobs. Implementations must apply
// every status write atomically and validate it against the state machine:
// a reader never observes a partially written record, and a terminal job is
// never mutated again.
type Repo interface {
	Create(ctx context.Context, job Job) error
	GetByID(ctx context.Context, jobID string) (Job, error)
	// MarkProcessing transitions pending -> processing and overwrites the
	// progress message. ErrInvalidTransition when the job already left
	// pending, which makes the transition double as the single-owner guard.
	MarkProcessing(ctx context.Context, jobID, progress string) error
	// UpdateProgress overwrites the progress message of a non-terminal job.
	UpdateProgress(ctx context.Context, jobID, progress string) error
	// Complete transitions processing -> completed and attaches the result.
	Complete(ctx context.Context, jobID string, result []AnalysisEntry) error
	// Fail transitions a non-terminal job to failed and records the cause.
	Fail(ctx context.Context, jobID, cause string) error
	// ListRecent returns jobs newest first without their result payloads.
	ListRecent(ctx context.Context, limit, offset int) ([]Job, error)
	Delete(ctx context.Context, jobID string) error
	// DeleteTerminalBefore removes terminal jobs whose completion time is
	// older than cutoff and returns the removed records so callers can
	// clean up associated storage.
	DeleteTerminalBefore(ctx context.Context, cutoff time.Time) ([]Job, error)
}
