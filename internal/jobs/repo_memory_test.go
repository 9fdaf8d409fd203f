package jobs

import (
	"context"
	"errors"
	"testing"
	"time"
)

func seedJob(t *testing.T, repo *MemoryRepo, id string) Job {
	t.Helper()
	now := time.Now().UTC()
	job := Job{
		ID:         id,
		Status:     StatusPending,
		FileName:   "clip.mp4",
		MimeType:   "video/mp4",
		SizeBytes:  1024,
		StorageKey: "abc/" + id,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := repo.Create(context.Background(), job); err != nil {
		t.Fatalf("create job: %v", err)
	}
	return job
}

func TestMemoryRepoCreateAndGet(t *testing.T) {
	repo := NewMemoryRepo()
	job := seedJob(t, repo, "job-1")

	got, err := repo.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if got.Status != StatusPending {
		t.Fatalf("expected pending, got %s", got.Status)
	}
	if got.FileName != "clip.mp4" {
		t.Fatalf("expected file name clip.mp4, got %s", got.FileName)
	}

	if err := repo.Create(context.Background(), job); err == nil {
		t.Fatalf("expected duplicate create to fail")
	}

	if _, err := repo.GetByID(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryRepoMarkProcessingClaimsOnce(t *testing.T) {
	repo := NewMemoryRepo()
	job := seedJob(t, repo, "job-1")

	if err := repo.MarkProcessing(context.Background(), job.ID, "extracting"); err != nil {
		t.Fatalf("mark processing: %v", err)
	}

	got, err := repo.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if got.Status != StatusProcessing {
		t.Fatalf("expected processing, got %s", got.Status)
	}
	if got.Progress != "extracting" {
		t.Fatalf("expected progress to be set, got %q", got.Progress)
	}
	if got.StartedAt == nil {
		t.Fatalf("expected started_at to be set")
	}

	// A second claim must lose.
	if err := repo.MarkProcessing(context.Background(), job.ID, "extracting"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition on second claim, got %v", err)
	}
}

func TestMemoryRepoCompleteAttachesResult(t *testing.T) {
	repo := NewMemoryRepo()
	job := seedJob(t, repo, "job-1")

	if err := repo.Complete(context.Background(), job.ID, nil); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition completing a pending job, got %v", err)
	}

	if err := repo.MarkProcessing(context.Background(), job.ID, "extracting"); err != nil {
		t.Fatalf("mark processing: %v", err)
	}
	entries := []AnalysisEntry{{Label: "hammer", Outcome: "observed", StartTime: "00:00:02:000", EndTime: "00:00:05:000", Evidence: []Evidence{}}}
	if err := repo.Complete(context.Background(), job.ID, entries); err != nil {
		t.Fatalf("complete: %v", err)
	}

	got, err := repo.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if got.Status != StatusCompleted {
		t.Fatalf("expected completed, got %s", got.Status)
	}
	if len(got.Result) != 1 || got.Result[0].Label != "hammer" {
		t.Fatalf("expected stored result, got %+v", got.Result)
	}
	if got.ErrorMessage != nil {
		t.Fatalf("expected no error on completed job, got %q", *got.ErrorMessage)
	}
	if got.Progress != "" {
		t.Fatalf("expected progress cleared, got %q", got.Progress)
	}
	if got.CompletedAt == nil {
		t.Fatalf("expected completed_at to be set")
	}
}

func TestMemoryRepoCompleteNormalizesNilResult(t *testing.T) {
	repo := NewMemoryRepo()
	job := seedJob(t, repo, "job-1")
	if err := repo.MarkProcessing(context.Background(), job.ID, "extracting"); err != nil {
		t.Fatalf("mark processing: %v", err)
	}
	if err := repo.Complete(context.Background(), job.ID, nil); err != nil {
		t.Fatalf("complete: %v", err)
	}
	got, err := repo.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if got.Result == nil || len(got.Result) != 0 {
		t.Fatalf("expected empty result slice, got %+v", got.Result)
	}
}

func TestMemoryRepoTerminalJobsAreImmutable(t *testing.T) {
	repo := NewMemoryRepo()
	job := seedJob(t, repo, "job-1")
	if err := repo.MarkProcessing(context.Background(), job.ID, "extracting"); err != nil {
		t.Fatalf("mark processing: %v", err)
	}
	if err := repo.Fail(context.Background(), job.ID, "EXTRACTION_ERROR: probe failed"); err != nil {
		t.Fatalf("fail: %v", err)
	}

	got, err := repo.GetByID(context.Background(), job.ID)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if got.Status != StatusFailed {
		t.Fatalf("expected failed, got %s", got.Status)
	}
	if got.ErrorMessage == nil || *got.ErrorMessage != "EXTRACTION_ERROR: probe failed" {
		t.Fatalf("expected error message, got %v", got.ErrorMessage)
	}
	if got.Result != nil {
		t.Fatalf("expected no result on failed job")
	}

	if err := repo.Complete(context.Background(), job.ID, nil); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition completing a failed job, got %v", err)
	}
	if err := repo.Fail(context.Background(), job.ID, "again"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition failing twice, got %v", err)
	}
	if err := repo.UpdateProgress(context.Background(), job.ID, "late"); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition updating terminal progress, got %v", err)
	}
}

func TestMemoryRepoFailFromPending(t *testing.T) {
	repo := NewMemoryRepo()
	job := seedJob(t, repo, "job-1")
	if err := repo.Fail(context.Background(), job.ID, "QUEUE_FULL: discarded"); err != nil {
		t.Fatalf("fail pending job: %v", err)
	}
	got, _ := repo.GetByID(context.Background(), job.ID)
	if got.Status != StatusFailed {
		t.Fatalf("expected failed, got %s", got.Status)
	}
}

func TestMemoryRepoListRecentOrdersAndPaginates(t *testing.T) {
	repo := NewMemoryRepo()
	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		job := Job{
			ID:        string(rune('a' + i)),
			Status:    StatusPending,
			FileName:  "clip.mp4",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
			UpdatedAt: base,
			Result:    []AnalysisEntry{{Label: "x"}},
		}
		if err := repo.Create(context.Background(), job); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	page, err := repo.ListRecent(context.Background(), 2, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(page))
	}
	if page[0].ID != "e" || page[1].ID != "d" {
		t.Fatalf("expected newest first, got %s, %s", page[0].ID, page[1].ID)
	}
	if page[0].Result != nil {
		t.Fatalf("expected result stripped from listing")
	}

	page, err = repo.ListRecent(context.Background(), 2, 4)
	if err != nil {
		t.Fatalf("list offset: %v", err)
	}
	if len(page) != 1 || page[0].ID != "a" {
		t.Fatalf("expected final page with job a, got %+v", page)
	}

	page, err = repo.ListRecent(context.Background(), 10, 99)
	if err != nil {
		t.Fatalf("list past end: %v", err)
	}
	if len(page) != 0 {
		t.Fatalf("expected empty page past end, got %d", len(page))
	}
}

func TestMemoryRepoDeleteTerminalBefore(t *testing.T) {
	repo := NewMemoryRepo()

	// Old completed job.
	oldJob := seedJob(t, repo, "old")
	if err := repo.MarkProcessing(context.Background(), oldJob.ID, ""); err != nil {
		t.Fatalf("mark processing: %v", err)
	}
	if err := repo.Complete(context.Background(), oldJob.ID, nil); err != nil {
		t.Fatalf("complete: %v", err)
	}

	// Still-active job must survive any cutoff.
	seedJob(t, repo, "active")

	cutoff := time.Now().UTC().Add(time.Hour)
	removed, err := repo.DeleteTerminalBefore(context.Background(), cutoff)
	if err != nil {
		t.Fatalf("delete terminal: %v", err)
	}
	if len(removed) != 1 || removed[0].ID != "old" {
		t.Fatalf("expected only the old terminal job removed, got %+v", removed)
	}

	if _, err := repo.GetByID(context.Background(), "old"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected old job gone, got %v", err)
	}
	if _, err := repo.GetByID(context.Background(), "active"); err != nil {
		t.Fatalf("expected active job kept: %v", err)
	}
}
