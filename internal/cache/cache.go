package cache

import (
	"context"
	"time"
)

// Snapshot lifetimes. Workers overwrite snapshots on every transition, so
// the active TTL only bounds leftovers from a crashed worker; terminal
// snapshots can live longer since they never change.
const (
	TTLActive   = 10 * time.Second
	TTLTerminal = 10 * time.Minute
)

// StatusSnapshot is the lightweight view of a job served to status polls,
// deliberately without the result payload or any embedded images.
type StatusSnapshot struct {
	JobID    string  `json:"job_id"`
	Status   string  `json:"status"`
	Progress string  `json:"progress,omitempty"`
	Error    *string `json:"error,omitempty"`
}

// Cache stores job status snapshots so frequent polling stays off the
// primary store. Misses are not errors; callers fall back to the store.
type Cache interface {
	SetJobStatus(ctx context.Context, jobID string, snap StatusSnapshot, ttl time.Duration) error
	GetJobStatus(ctx context.Context, jobID string) (StatusSnapshot, bool, error)
	DeleteJobStatus(ctx context.Context, jobID string) error
	Ping(ctx context.Context) error
	Close() error
}

// Noop satisfies Cache when no REDIS_URL is configured.
type Noop struct{}

func (Noop) SetJobStatus(ctx context.Context, jobID string, snap StatusSnapshot, ttl time.Duration) error {
	return nil
}

func (Noop) GetJobStatus(ctx context.Context, jobID string) (StatusSnapshot, bool, error) {
	return StatusSnapshot{}, false, nil
}

func (Noop) DeleteJobStatus(ctx context.Context, jobID string) error { return nil }

func (Noop) Ping(ctx context.Context) error { return nil }

func (Noop) Close() error { return nil }

var _ Cache = Noop{}
