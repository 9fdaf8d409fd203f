package jobs

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemoryRepo stores jobs in memory and is safe for concurrent use. It backs
// dev deployments without a DATABASE_URL and the test suite.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[string]Job
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[string]Job)}
}

// Create stores the job.
func (r *MemoryRepo) Create(ctx context.Context, job Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byID[job.ID]; exists {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	r.byID[job.ID] = job
	return nil
}

// GetByID returns a snapshot of the job.
func (r *MemoryRepo) GetByID(ctx context.Context, jobID string) (Job, error) {
	if err := ctx.Err(); err != nil {
		return Job{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.byID[jobID]
	if !ok {
		return Job{}, ErrNotFound
	}
	return job, nil
}

// MarkProcessing transitions pending -> processing.
func (r *MemoryRepo) MarkProcessing(ctx context.Context, jobID, progress string) error {
	return r.transition(ctx, jobID, StatusProcessing, func(job *Job) {
		job.Progress = progress
		if job.StartedAt == nil {
			now := time.Now().UTC()
			job.StartedAt = &now
		}
	})
}

// UpdateProgress overwrites the progress message of a non-terminal job.
func (r *MemoryRepo) UpdateProgress(ctx context.Context, jobID, progress string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.byID[jobID]
	if !ok {
		return ErrNotFound
	}
	if job.Terminal() {
		return ErrInvalidTransition
	}
	job.Progress = progress
	job.UpdatedAt = time.Now().UTC()
	r.byID[jobID] = job
	return nil
}

// Complete transitions processing -> completed and attaches the result.
func (r *MemoryRepo) Complete(ctx context.Context, jobID string, result []AnalysisEntry) error {
	if result == nil {
		result = []AnalysisEntry{}
	}
	return r.transition(ctx, jobID, StatusCompleted, func(job *Job) {
		job.Result = result
		job.ErrorMessage = nil
		job.Progress = ""
	})
}

// Fail transitions a non-terminal job to failed and records the cause.
func (r *MemoryRepo) Fail(ctx context.Context, jobID, cause string) error {
	return r.transition(ctx, jobID, StatusFailed, func(job *Job) {
		job.ErrorMessage = &cause
		job.Result = nil
		job.Progress = ""
	})
}

func (r *MemoryRepo) transition(ctx context.Context, jobID, to string, mutate func(*Job)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.byID[jobID]
	if !ok {
		return ErrNotFound
	}
	if !CanTransition(job.Status, to) {
		return ErrInvalidTransition
	}
	job.Status = to
	mutate(&job)
	now := time.Now().UTC()
	job.UpdatedAt = now
	if IsTerminal(to) && job.CompletedAt == nil {
		job.CompletedAt = &now
	}
	r.byID[jobID] = job
	return nil
}

// ListRecent returns jobs newest first, without result payloads.
func (r *MemoryRepo) ListRecent(ctx context.Context, limit, offset int) ([]Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}

	r.mu.RLock()
	all := make([]Job, 0, len(r.byID))
	for _, job := range r.byID {
		job.Result = nil
		all = append(all, job)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if offset >= len(all) {
		return []Job{}, nil
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end], nil
}

// Delete removes a job.
func (r *MemoryRepo) Delete(ctx context.Context, jobID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[jobID]; !ok {
		return ErrNotFound
	}
	delete(r.byID, jobID)
	return nil
}

// DeleteTerminalBefore removes terminal jobs finished before cutoff.
func (r *MemoryRepo) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) ([]Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed []Job
	for id, job := range r.byID {
		if !job.Terminal() || job.CompletedAt == nil {
			continue
		}
		if job.CompletedAt.Before(cutoff) {
			removed = append(removed, job)
			delete(r.byID, id)
		}
	}
	return removed, nil
}

var _ Repo = (*MemoryRepo)(nil)
