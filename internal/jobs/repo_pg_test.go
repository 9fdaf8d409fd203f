package jobs

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMockRepo(t *testing.T) (*PGRepo, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return &PGRepo{DB: db}, mock
}

func TestPGRepoCreateInsertsJob(t *testing.T) {
	repo, mock := newMockRepo(t)

	job := Job{
		ID:         "job-1",
		Status:     StatusPending,
		FileName:   "clip.mp4",
		MimeType:   "video/mp4",
		SizeBytes:  2048,
		StorageKey: "abc/clip.mp4",
		CreatedAt:  time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO jobs").
		WithArgs(
			job.ID,
			job.Status,
			job.Progress,
			job.FileName,
			job.MimeType,
			job.SizeBytes,
			job.StorageKey,
			sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := repo.Create(context.Background(), job); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoMarkProcessingGuardsOnPending(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE jobs").
		WithArgs("job-1", StatusProcessing, "extracting", StatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.MarkProcessing(context.Background(), "job-1", "extracting"); err != nil {
		t.Fatalf("MarkProcessing: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoMarkProcessingLostClaim(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE jobs").
		WithArgs("job-1", StatusProcessing, "extracting", StatusPending).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT status FROM jobs").
		WithArgs("job-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(StatusProcessing))

	err := repo.MarkProcessing(context.Background(), "job-1", "extracting")
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoMarkProcessingMissingJob(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE jobs").
		WithArgs("job-1", StatusProcessing, "extracting", StatusPending).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT status FROM jobs").
		WithArgs("job-1").
		WillReturnError(sql.ErrNoRows)

	err := repo.MarkProcessing(context.Background(), "job-1", "extracting")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoCompleteStoresResult(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE jobs").
		WithArgs("job-1", StatusCompleted, sqlmock.AnyArg(), StatusProcessing).
		WillReturnResult(sqlmock.NewResult(0, 1))

	entries := []AnalysisEntry{{Label: "crowbar", Outcome: "observed", Evidence: []Evidence{}}}
	if err := repo.Complete(context.Background(), "job-1", entries); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoFailGuardsTerminal(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE jobs").
		WithArgs("job-1", StatusFailed, "INFERENCE_TIMEOUT: ran too long", StatusPending, StatusProcessing).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT status FROM jobs").
		WithArgs("job-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(StatusCompleted))

	err := repo.Fail(context.Background(), "job-1", "INFERENCE_TIMEOUT: ran too long")
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetByIDScansResult(t *testing.T) {
	repo, mock := newMockRepo(t)

	created := time.Now().UTC()
	completed := created.Add(time.Minute)
	resultJSON := []byte(`[{"label":"glove","outcome":"observed","visual_observation":"","narrated_observation":"","start_time":"00:00:01:000","end_time":"00:00:02:000","evidence":[]}]`)

	cols := []string{"id", "status", "progress", "error_message", "result", "file_name", "mime_type", "size_bytes", "storage_key", "created_at", "updated_at", "started_at", "completed_at"}
	mock.ExpectQuery("SELECT (.+) FROM jobs WHERE id").
		WithArgs("job-1").
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			"job-1", StatusCompleted, "", nil, resultJSON,
			"clip.mp4", "video/mp4", int64(2048), "abc/clip.mp4",
			created, completed, created, completed,
		))

	job, err := repo.GetByID(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if job.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", job.Status)
	}
	if len(job.Result) != 1 || job.Result[0].Label != "glove" {
		t.Fatalf("expected decoded result, got %+v", job.Result)
	}
	if job.CompletedAt == nil {
		t.Fatalf("expected completed_at scanned")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestPGRepoGetByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT (.+) FROM jobs WHERE id").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	if _, err := repo.GetByID(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPGRepoDeleteTerminalBeforeReturnsRemoved(t *testing.T) {
	repo, mock := newMockRepo(t)

	cutoff := time.Now().UTC()
	mock.ExpectQuery("DELETE FROM jobs").
		WithArgs(StatusCompleted, StatusFailed, cutoff).
		WillReturnRows(sqlmock.NewRows([]string{"id", "storage_key", "status"}).
			AddRow("job-1", "abc/clip.mp4", StatusCompleted).
			AddRow("job-2", "def/clip.mov", StatusFailed))

	removed, err := repo.DeleteTerminalBefore(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("DeleteTerminalBefore: %v", err)
	}
	if len(removed) != 2 {
		t.Fatalf("expected 2 removed, got %d", len(removed))
	}
	if removed[0].StorageKey != "abc/clip.mp4" {
		t.Fatalf("expected storage key returned, got %q", removed[0].StorageKey)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}
