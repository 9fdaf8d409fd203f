package jobs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"forensics-backend/internal/cache"
	"forensics-backend/internal/queue"
	"forensics-backend/internal/shared/metrics"
	"forensics-backend/internal/shared/storage/object"
	"forensics-backend/internal/shared/telemetry"
)

const waitPollInterval = 500 * time.Millisecond

// Service contains business logic for analysis jobs.
type Service struct {
	Repo           Repo
	Store          object.ObjectStore
	JobQueue       queue.Client
	Cache          cache.Cache
	MaxUploadBytes int64
	JobTTL         time.Duration
}

// SubmitInput carries one uploaded video.
type SubmitInput struct {
	FileName    string
	ContentType string
	Size        int64
	Reader      io.Reader
}

// Submit validates the upload, persists the video and job record, and
// enqueues the job for a worker. The returned job is pending.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (Job, error) {
	if strings.TrimSpace(in.FileName) == "" {
		return Job{}, fmt.Errorf("%w: file name is required", ErrInvalidInput)
	}
	contentType := strings.TrimSpace(in.ContentType)
	if !strings.HasPrefix(contentType, "video/") {
		return Job{}, fmt.Errorf("%w: expected a video upload, got %q", ErrUnsupportedMediaType, contentType)
	}
	if s.MaxUploadBytes > 0 && in.Size > s.MaxUploadBytes {
		return Job{}, fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrFileTooLarge, in.Size, s.MaxUploadBytes)
	}
	if s.JobQueue == nil {
		return Job{}, ErrJobQueueNotConfigured
	}

	jobID := uuid.NewString()

	storageKey, size, _, err := s.Store.Save(ctx, jobID, in.FileName, in.Reader)
	if err != nil {
		return Job{}, fmt.Errorf("save video: %w", err)
	}
	if s.MaxUploadBytes > 0 && size > s.MaxUploadBytes {
		s.deleteBlob(jobID, storageKey)
		return Job{}, fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrFileTooLarge, size, s.MaxUploadBytes)
	}

	now := time.Now().UTC()
	job := Job{
		ID:         jobID,
		Status:     StatusPending,
		FileName:   in.FileName,
		MimeType:   contentType,
		SizeBytes:  size,
		StorageKey: storageKey,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.Repo.Create(ctx, job); err != nil {
		s.deleteBlob(jobID, storageKey)
		return Job{}, fmt.Errorf("create job: %w", err)
	}

	msg := queue.NewMessage(jobID, RequestIDFromContext(ctx))
	if err := s.JobQueue.Send(ctx, msg); err != nil {
		s.discardJob(jobID, storageKey)
		if errors.Is(err, queue.ErrFull) {
			return Job{}, ErrQueueFull
		}
		return Job{}, fmt.Errorf("enqueue job: %w", err)
	}

	s.cacheSnapshot(ctx, job)
	metrics.IncJobSubmitted()
	if d, ok := s.JobQueue.(interface{ Depth() int }); ok {
		metrics.SetQueueDepth(d.Depth())
	}
	telemetry.Info("job.submitted", map[string]any{
		"request_id": RequestIDFromContext(ctx),
		"job_id":     jobID,
		"file_name":  in.FileName,
		"size_bytes": size,
	})

	return job, nil
}

// Get returns the full job record, including the result when completed.
func (s *Service) Get(ctx context.Context, jobID string) (Job, error) {
	if jobID == "" {
		return Job{}, fmt.Errorf("%w: job id is required", ErrInvalidInput)
	}
	return s.Repo.GetByID(ctx, jobID)
}

// Status returns the light status snapshot for polling, reading through
// the cache when one is configured.
func (s *Service) Status(ctx context.Context, jobID string) (cache.StatusSnapshot, error) {
	if jobID == "" {
		return cache.StatusSnapshot{}, fmt.Errorf("%w: job id is required", ErrInvalidInput)
	}

	if s.Cache != nil {
		snap, ok, err := s.Cache.GetJobStatus(ctx, jobID)
		if err != nil {
			telemetry.Warn("job.cache_get_failed", map[string]any{
				"job_id": jobID,
				"error":  err.Error(),
			})
		} else if ok {
			return snap, nil
		}
	}

	job, err := s.Repo.GetByID(ctx, jobID)
	if err != nil {
		return cache.StatusSnapshot{}, err
	}

	snap := snapshotFromJob(job)
	s.cacheSnapshot(ctx, job)
	return snap, nil
}

// List returns recent jobs newest-first, without result payloads.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Job, error) {
	return s.Repo.ListRecent(ctx, limit, offset)
}

// WaitTerminal polls until the job reaches a terminal status, the context
// is done, or the ceiling elapses. The last observed job is returned even
// when it is still in flight; callers check Terminal().
func (s *Service) WaitTerminal(ctx context.Context, jobID string, ceiling time.Duration) (Job, error) {
	deadline := time.NewTimer(ceiling)
	defer deadline.Stop()
	ticker := time.NewTicker(waitPollInterval)
	defer ticker.Stop()

	for {
		job, err := s.Repo.GetByID(ctx, jobID)
		if err != nil {
			return Job{}, err
		}
		if job.Terminal() {
			return job, nil
		}

		select {
		case <-ctx.Done():
			return job, ctx.Err()
		case <-deadline.C:
			return job, nil
		case <-ticker.C:
		}
	}
}

// CleanupExpired removes terminal jobs older than the retention TTL along
// with their stored videos and cached snapshots.
func (s *Service) CleanupExpired(ctx context.Context) (int, error) {
	if s.JobTTL <= 0 {
		return 0, nil
	}

	cutoff := time.Now().UTC().Add(-s.JobTTL)
	removed, err := s.Repo.DeleteTerminalBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	for _, job := range removed {
		if job.StorageKey != "" {
			s.deleteBlob(job.ID, job.StorageKey)
		}
		if s.Cache != nil {
			if err := s.Cache.DeleteJobStatus(ctx, job.ID); err != nil {
				telemetry.Warn("job.cache_delete_failed", map[string]any{
					"job_id": job.ID,
					"error":  err.Error(),
				})
			}
		}
	}

	if len(removed) > 0 {
		metrics.AddJobsCleaned(len(removed))
		telemetry.Info("job.cleanup", map[string]any{
			"removed": len(removed),
			"cutoff":  cutoff.Format(time.RFC3339),
		})
	}
	return len(removed), nil
}

// RunJanitor periodically calls CleanupExpired until the context is done.
func (s *Service) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.CleanupExpired(ctx); err != nil {
				telemetry.Error("job.cleanup_failed", map[string]any{
					"error": err.Error(),
				})
			}
		}
	}
}

// discardJob removes the record and blob of a job that never reached the
// queue. Runs on a fresh context so a canceled request still cleans up.
func (s *Service) discardJob(jobID, storageKey string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Repo.Delete(ctx, jobID); err != nil {
		telemetry.Warn("job.discard_failed", map[string]any{
			"job_id": jobID,
			"error":  err.Error(),
		})
	}
	s.deleteBlob(jobID, storageKey)
}

func (s *Service) deleteBlob(jobID, storageKey string) {
	if s.Store == nil || storageKey == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Store.Delete(ctx, storageKey); err != nil {
		telemetry.Warn("job.blob_delete_failed", map[string]any{
			"job_id":      jobID,
			"storage_key": storageKey,
			"error":       err.Error(),
		})
	}
}

func (s *Service) cacheSnapshot(ctx context.Context, job Job) {
	if s.Cache == nil {
		return
	}
	ttl := cache.TTLActive
	if job.Terminal() {
		ttl = cache.TTLTerminal
	}
	if err := s.Cache.SetJobStatus(ctx, job.ID, snapshotFromJob(job), ttl); err != nil {
		telemetry.Warn("job.cache_set_failed", map[string]any{
			"job_id": job.ID,
			"error":  err.Error(),
		})
	}
}

func snapshotFromJob(job Job) cache.StatusSnapshot {
	return cache.StatusSnapshot{
		JobID:    job.ID,
		Status:   job.Status,
		Progress: job.Progress,
		Error:    job.ErrorMessage,
	}
}
