package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"forensics-backend/internal/cache"
	"forensics-backend/internal/inference"
	"forensics-backend/internal/jobs"
	"forensics-backend/internal/media"
	"forensics-backend/internal/report"
	"forensics-backend/internal/shared/metrics"
	"forensics-backend/internal/shared/storage/object"
	"forensics-backend/internal/shared/telemetry"
)

// Progress stages surfaced to status polls while a job is processing.
const (
	ProgressExtracting = "extracting frames and audio"
	ProgressInference  = "running forensic inference"
	ProgressAssembling = "assembling report"
)

const defaultInferenceTimeout = 5 * time.Minute

// Processor drives one job from pending to a terminal status. Every
// failure after the job is claimed is written to the job record; the
// analysis itself is never retried.
type Processor struct {
	Repo             jobs.Repo
	Store            object.ObjectStore
	Extractor        media.Extractor
	Inference        inference.Client
	Cache            cache.Cache
	InferenceTimeout time.Duration
}

// ProcessJob runs the staged pipeline for a single job. It returns an
// error only when the job could not be claimed for an infrastructure
// reason (so the message can be redelivered); once claimed, failures are
// recorded on the job and nil is returned. Unknown jobs return
// jobs.ErrNotFound so callers can discard the message.
func (p *Processor) ProcessJob(ctx context.Context, jobID string) error {
	if jobID == "" {
		return fmt.Errorf("%w: empty job id", jobs.ErrNotFound)
	}

	job, err := p.Repo.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("job lookup id=%s: %w", jobID, err)
	}
	if job.Terminal() {
		// Duplicate delivery for a finished job.
		telemetry.Info("pipeline.skip_terminal", map[string]any{
			"job_id": jobID,
			"status": job.Status,
		})
		return nil
	}

	startedAt := time.Now().UTC()

	if err := p.Repo.MarkProcessing(ctx, jobID, ProgressExtracting); err != nil {
		if errors.Is(err, jobs.ErrInvalidTransition) {
			// Another worker claimed or finished this job.
			telemetry.Warn("pipeline.already_claimed", map[string]any{
				"job_id": jobID,
			})
			return nil
		}
		return fmt.Errorf("mark processing id=%s: %w", jobID, err)
	}

	defer func() {
		if r := recover(); r != nil {
			p.failJob(ctx, jobID, fmt.Errorf("panic: %v", r), startedAt)
		}
	}()

	metrics.IncJobStarted()
	telemetry.Info("job.status", map[string]any{
		"request_id":        jobs.RequestIDFromContext(ctx),
		"job_id":            jobID,
		"status":            jobs.StatusProcessing,
		"status_transition": "pending->processing",
	})
	p.cacheActive(ctx, jobID, ProgressExtracting)

	if p.Store == nil || p.Extractor == nil {
		p.failJob(ctx, jobID, errors.New("missing media dependencies"), startedAt)
		return nil
	}
	if p.Inference == nil {
		p.failJob(ctx, jobID, errors.New("missing inference client"), startedAt)
		return nil
	}

	videoPath, cleanup, err := p.materialize(ctx, job)
	if err != nil {
		p.failJob(ctx, jobID, fmt.Errorf("stored video key=%s: %w", job.StorageKey, err), startedAt)
		return nil
	}
	defer cleanup()

	duration, err := p.Extractor.Probe(ctx, videoPath)
	if err != nil {
		p.failJob(ctx, jobID, fmt.Errorf("probe video: %w", err), startedAt)
		return nil
	}

	frames, err := p.Extractor.ExtractFrames(ctx, videoPath)
	if err != nil {
		p.failJob(ctx, jobID, fmt.Errorf("extract frames: %w", err), startedAt)
		return nil
	}

	transcript := p.transcribe(ctx, jobID, videoPath)

	p.updateProgress(ctx, jobID, ProgressInference)
	raw, err := p.analyze(ctx, inference.AnalyzeInput{
		Frames:     frames,
		Transcript: transcript,
		Duration:   duration,
	})
	if err != nil {
		p.failJob(ctx, jobID, fmt.Errorf("inference: %w", err), startedAt)
		return nil
	}

	p.updateProgress(ctx, jobID, ProgressAssembling)
	entries, err := report.Assemble(raw)
	if err != nil {
		p.failJob(ctx, jobID, fmt.Errorf("assemble report: %w", err), startedAt)
		return nil
	}
	report.Enrich(ctx, p.Extractor, videoPath, duration, entries)

	if err := p.Repo.Complete(ctx, jobID, entries); err != nil {
		if errors.Is(err, jobs.ErrInvalidTransition) {
			telemetry.Warn("pipeline.complete_skipped", map[string]any{
				"job_id": jobID,
			})
			return nil
		}
		p.failJob(ctx, jobID, fmt.Errorf("set job result failed: %w", err), startedAt)
		return nil
	}

	completedAt := time.Now().UTC()
	metrics.IncJobCompleted()
	metrics.ObserveJobDurationSeconds(completedAt.Sub(startedAt).Seconds())
	telemetry.Info("job.status", map[string]any{
		"request_id":        jobs.RequestIDFromContext(ctx),
		"job_id":            jobID,
		"status":            jobs.StatusCompleted,
		"status_transition": "processing->completed",
		"findings":          len(entries),
		"duration_ms":       durationMs(startedAt, completedAt),
	})
	p.cacheTerminal(jobID, jobs.StatusCompleted, nil)

	return nil
}

// analyze bounds the single inference attempt with the configured ceiling.
func (p *Processor) analyze(ctx context.Context, input inference.AnalyzeInput) (json.RawMessage, error) {
	timeout := p.InferenceTimeout
	if timeout <= 0 {
		timeout = defaultInferenceTimeout
	}
	infCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.Inference.AnalyzeVideo(infCtx, input)
}

// materialize copies the stored video to a local temp file for ffmpeg.
func (p *Processor) materialize(ctx context.Context, job jobs.Job) (string, func(), error) {
	body, err := p.Store.Open(ctx, job.StorageKey)
	if err != nil {
		return "", nil, fmt.Errorf("open: %w", err)
	}
	defer body.Close()

	tmp, err := os.CreateTemp("", "job-video-*"+filepath.Ext(job.FileName))
	if err != nil {
		return "", nil, fmt.Errorf("create temp video: %w", err)
	}
	path := tmp.Name()
	cleanup := func() {
		_ = os.Remove(path)
	}

	if _, err := io.Copy(tmp, body); err != nil {
		_ = tmp.Close()
		cleanup()
		return "", nil, fmt.Errorf("copy: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("close temp video: %w", err)
	}
	return path, cleanup, nil
}

// transcribe extracts the audio track and converts it to text. Videos
// without audio, and transcription failures, yield an empty transcript.
func (p *Processor) transcribe(ctx context.Context, jobID, videoPath string) string {
	audioPath, err := p.Extractor.ExtractAudio(ctx, videoPath)
	if err != nil {
		telemetry.Warn("pipeline.audio_skipped", map[string]any{
			"job_id": jobID,
			"error":  err.Error(),
		})
		return ""
	}
	defer os.Remove(audioPath)

	text, err := p.Inference.Transcribe(ctx, audioPath)
	if err != nil {
		telemetry.Warn("pipeline.transcription_skipped", map[string]any{
			"job_id": jobID,
			"error":  err.Error(),
		})
		return ""
	}
	return text
}

// updateProgress is advisory; a failed write never stops the pipeline.
func (p *Processor) updateProgress(ctx context.Context, jobID, progress string) {
	if err := p.Repo.UpdateProgress(ctx, jobID, progress); err != nil {
		telemetry.Warn("pipeline.progress_failed", map[string]any{
			"job_id":   jobID,
			"progress": progress,
			"error":    err.Error(),
		})
		return
	}
	p.cacheActive(ctx, jobID, progress)
}

// failJob writes the terminal failed status. The write runs on a fresh
// context so cancellation of the processing context cannot lose it.
func (p *Processor) failJob(ctx context.Context, jobID string, cause error, startedAt time.Time) {
	code := classifyFailure(cause)
	msg := fmt.Sprintf("%s: %s", code, sanitizeError(cause))
	completedAt := time.Now().UTC()

	if updateErr := p.Repo.Fail(context.Background(), jobID, msg); updateErr != nil {
		if errors.Is(updateErr, jobs.ErrInvalidTransition) {
			telemetry.Warn("pipeline.fail_skipped", map[string]any{
				"job_id": jobID,
				"cause":  sanitizeError(cause),
			})
			return
		}
		telemetry.Error("pipeline.fail_write_failed", map[string]any{
			"job_id": jobID,
			"error":  updateErr.Error(),
			"cause":  sanitizeError(cause),
		})
	}

	metrics.IncJobFailed(code)
	metrics.ObserveJobDurationSeconds(completedAt.Sub(startedAt).Seconds())
	telemetry.Info("job.status", map[string]any{
		"request_id":        jobs.RequestIDFromContext(ctx),
		"job_id":            jobID,
		"status":            jobs.StatusFailed,
		"status_transition": "processing->failed",
		"error_code":        code,
		"duration_ms":       durationMs(startedAt, completedAt),
	})
	p.cacheTerminal(jobID, jobs.StatusFailed, &msg)
}

func (p *Processor) cacheActive(ctx context.Context, jobID, progress string) {
	if p.Cache == nil {
		return
	}
	snap := cache.StatusSnapshot{
		JobID:    jobID,
		Status:   jobs.StatusProcessing,
		Progress: progress,
	}
	if err := p.Cache.SetJobStatus(ctx, jobID, snap, cache.TTLActive); err != nil {
		telemetry.Warn("pipeline.cache_set_failed", map[string]any{
			"job_id": jobID,
			"error":  err.Error(),
		})
	}
}

func (p *Processor) cacheTerminal(jobID, status string, errMsg *string) {
	if p.Cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	snap := cache.StatusSnapshot{
		JobID:  jobID,
		Status: status,
		Error:  errMsg,
	}
	if err := p.Cache.SetJobStatus(ctx, jobID, snap, cache.TTLTerminal); err != nil {
		telemetry.Warn("pipeline.cache_set_failed", map[string]any{
			"job_id": jobID,
			"error":  err.Error(),
		})
	}
}

func durationMs(startedAt, completedAt time.Time) float64 {
	return float64(completedAt.Sub(startedAt).Microseconds()) / 1000.0
}

// classifyFailure maps a pipeline error to the stable code stored on the
// job and exported in metrics.
func classifyFailure(err error) string {
	if err == nil {
		return jobs.ErrorCodeInternal
	}
	switch {
	case errors.Is(err, inference.ErrTimeout) || errors.Is(err, context.DeadlineExceeded):
		return jobs.ErrorCodeInferenceTimeout
	case errors.Is(err, inference.ErrUnavailable):
		return jobs.ErrorCodeInferenceUnavailable
	case errors.Is(err, inference.ErrInvalidResponse) || errors.Is(err, report.ErrMalformed):
		return jobs.ErrorCodeMalformedOutput
	case errors.Is(err, media.ErrExtraction):
		return jobs.ErrorCodeExtraction
	}

	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "stored video") || strings.Contains(msg, "storage") || strings.Contains(msg, "set job result") {
		return jobs.ErrorCodeStorage
	}
	return jobs.ErrorCodeInternal
}

// sanitizeError flattens an error into a single bounded line safe to store
// and return to clients.
func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := strings.ReplaceAll(err.Error(), "\n", " ")
	msg = strings.ReplaceAll(msg, "\r", " ")
	msg = strings.TrimSpace(msg)
	const maxLen = 500
	if len(msg) > maxLen {
		msg = msg[:maxLen]
	}
	return msg
}
