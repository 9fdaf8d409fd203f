package jobs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PGRepo persists jobs in Postgres via database/sql.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new job record.
func (r *PGRepo) Create(ctx context.Context, job Job) error {
	if r.DB == nil {
		return errors.New("nil db")
	}
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO jobs (id, status, progress, error_message, result, file_name, mime_type, size_bytes, storage_key, created_at, updated_at)
		VALUES ($1, $2, $3, NULL, NULL, $4, $5, $6, $7, $8, $8)`,
		job.ID, job.Status, job.Progress, job.FileName, job.MimeType, job.SizeBytes, job.StorageKey, job.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// GetByID returns the full job record including the result payload.
func (r *PGRepo) GetByID(ctx context.Context, jobID string) (Job, error) {
	if r.DB == nil {
		return Job{}, errors.New("nil db")
	}
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, status, progress, error_message, result, file_name, mime_type, size_bytes, storage_key, created_at, updated_at, started_at, completed_at
		FROM jobs WHERE id = $1`, jobID)
	return scanJob(row)
}

// MarkProcessing transitions pending -> processing. The WHERE clause on the
// current status is what enforces single ownership under concurrent workers.
func (r *PGRepo) MarkProcessing(ctx context.Context, jobID, progress string) error {
	if r.DB == nil {
		return errors.New("nil db")
	}
	res, err := r.DB.ExecContext(ctx, `
		UPDATE jobs
		SET status = $2, progress = $3, started_at = COALESCE(started_at, now()), updated_at = now()
		WHERE id = $1 AND status = $4`,
		jobID, StatusProcessing, progress, StatusPending,
	)
	if err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}
	return r.checkTransitioned(ctx, jobID, res)
}

// UpdateProgress overwrites the progress message of a non-terminal job.
func (r *PGRepo) UpdateProgress(ctx context.Context, jobID, progress string) error {
	if r.DB == nil {
		return errors.New("nil db")
	}
	res, err := r.DB.ExecContext(ctx, `
		UPDATE jobs SET progress = $2, updated_at = now()
		WHERE id = $1 AND status IN ($3, $4)`,
		jobID, progress, StatusPending, StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return r.checkTransitioned(ctx, jobID, res)
}

// Complete transitions processing -> completed and stores the result.
func (r *PGRepo) Complete(ctx context.Context, jobID string, result []AnalysisEntry) error {
	if r.DB == nil {
		return errors.New("nil db")
	}
	if result == nil {
		result = []AnalysisEntry{}
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	res, err := r.DB.ExecContext(ctx, `
		UPDATE jobs
		SET status = $2, result = $3::jsonb, error_message = NULL, progress = '', completed_at = now(), updated_at = now()
		WHERE id = $1 AND status = $4`,
		jobID, StatusCompleted, string(payload), StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("complete job: %w", err)
	}
	return r.checkTransitioned(ctx, jobID, res)
}

// Fail transitions a non-terminal job to failed and records the cause.
func (r *PGRepo) Fail(ctx context.Context, jobID, cause string) error {
	if r.DB == nil {
		return errors.New("nil db")
	}
	res, err := r.DB.ExecContext(ctx, `
		UPDATE jobs
		SET status = $2, error_message = $3, result = NULL, progress = '', completed_at = now(), updated_at = now()
		WHERE id = $1 AND status IN ($4, $5)`,
		jobID, StatusFailed, cause, StatusPending, StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("fail job: %w", err)
	}
	return r.checkTransitioned(ctx, jobID, res)
}

// checkTransitioned distinguishes a missing job from a transition rejected
// by the status guard after an UPDATE touched zero rows.
func (r *PGRepo) checkTransitioned(ctx context.Context, jobID string, res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected > 0 {
		return nil
	}
	var status string
	err = r.DB.QueryRowContext(ctx, `SELECT status FROM jobs WHERE id = $1`, jobID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("probe status: %w", err)
	}
	return ErrInvalidTransition
}

// ListRecent returns jobs newest first, without result payloads.
func (r *PGRepo) ListRecent(ctx context.Context, limit, offset int) ([]Job, error) {
	if r.DB == nil {
		return nil, errors.New("nil db")
	}
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, status, progress, error_message, NULL::jsonb, file_name, mime_type, size_bytes, storage_key, created_at, updated_at, started_at, completed_at
		FROM jobs ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	jobsList := []Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobsList = append(jobsList, job)
	}
	return jobsList, rows.Err()
}

// Delete removes a job record.
func (r *PGRepo) Delete(ctx context.Context, jobID string) error {
	if r.DB == nil {
		return errors.New("nil db")
	}
	res, err := r.DB.ExecContext(ctx, `DELETE FROM jobs WHERE id = $1`, jobID)
	if err != nil {
		return fmt.Errorf("delete job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteTerminalBefore removes terminal jobs finished before cutoff and
// returns what was removed so callers can clean up stored videos.
func (r *PGRepo) DeleteTerminalBefore(ctx context.Context, cutoff time.Time) ([]Job, error) {
	if r.DB == nil {
		return nil, errors.New("nil db")
	}
	rows, err := r.DB.QueryContext(ctx, `
		DELETE FROM jobs
		WHERE status IN ($1, $2) AND completed_at IS NOT NULL AND completed_at < $3
		RETURNING id, storage_key, status`,
		StatusCompleted, StatusFailed, cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("delete terminal jobs: %w", err)
	}
	defer rows.Close()

	var removed []Job
	for rows.Next() {
		var job Job
		if err := rows.Scan(&job.ID, &job.StorageKey, &job.Status); err != nil {
			return nil, fmt.Errorf("scan removed job: %w", err)
		}
		removed = append(removed, job)
	}
	return removed, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (Job, error) {
	var (
		job          Job
		errorMessage sql.NullString
		result       []byte
		startedAt    sql.NullTime
		completedAt  sql.NullTime
	)
	err := row.Scan(
		&job.ID, &job.Status, &job.Progress, &errorMessage, &result,
		&job.FileName, &job.MimeType, &job.SizeBytes, &job.StorageKey,
		&job.CreatedAt, &job.UpdatedAt, &startedAt, &completedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Job{}, ErrNotFound
	}
	if err != nil {
		return Job{}, fmt.Errorf("scan job: %w", err)
	}
	if errorMessage.Valid {
		msg := errorMessage.String
		job.ErrorMessage = &msg
	}
	if len(result) > 0 {
		var entries []AnalysisEntry
		if err := json.Unmarshal(result, &entries); err != nil {
			return Job{}, fmt.Errorf("decode result: %w", err)
		}
		job.Result = entries
	}
	if startedAt.Valid {
		t := startedAt.Time
		job.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		job.CompletedAt = &t
	}
	return job, nil
}

var _ Repo = (*PGRepo)(nil)
