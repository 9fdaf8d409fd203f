package jobs

import "time"

// SubmitResponse acknowledges an accepted analysis job.
type SubmitResponse struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
}

// JobResponse is the outward-facing representation of a job. Result is
// present only on completed jobs, error only on failed ones. A completed
// job with no findings still carries an empty result list.
type JobResponse struct {
	JobID       string           `json:"job_id"`
	Status      string           `json:"status"`
	Progress    string           `json:"progress,omitempty"`
	Error       *string          `json:"error,omitempty"`
	Result      *[]AnalysisEntry `json:"result,omitempty"`
	FileName    string           `json:"file_name"`
	MimeType    string           `json:"mime_type"`
	SizeBytes   int64            `json:"size_bytes"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	StartedAt   *time.Time       `json:"started_at,omitempty"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

func toJobResponse(job Job) JobResponse {
	resp := JobResponse{
		JobID:       job.ID,
		Status:      job.Status,
		Progress:    job.Progress,
		Error:       job.ErrorMessage,
		FileName:    job.FileName,
		MimeType:    job.MimeType,
		SizeBytes:   job.SizeBytes,
		CreatedAt:   job.CreatedAt,
		UpdatedAt:   job.UpdatedAt,
		StartedAt:   job.StartedAt,
		CompletedAt: job.CompletedAt,
	}
	if job.Status == StatusCompleted {
		result := job.Result
		if result == nil {
			result = []AnalysisEntry{}
		}
		resp.Result = &result
	}
	return resp
}
