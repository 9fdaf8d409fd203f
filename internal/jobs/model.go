package jobs

import "time"

// Job statuses. pending and processing are non-terminal; completed and
// failed are terminal and final.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

// validTransitions maps each status to the statuses it may move to.
// Terminal statuses map to an empty set.
var validTransitions = map[string]map[string]bool{
	StatusPending:    {StatusProcessing: true, StatusFailed: true},
	StatusProcessing: {StatusCompleted: true, StatusFailed: true},
	StatusCompleted:  {},
	StatusFailed:     {},
}

// CanTransition reports whether a job may move from one status to another.
func CanTransition(from, to string) bool {
	return validTransitions[from][to]
}

// IsTerminal reports whether a status admits no further transitions.
func IsTerminal(status string) bool {
	allowed, ok := validTransitions[status]
	return ok && len(allowed) == 0
}

// Job is one asynchronous request to analyze a single uploaded video.
type Job struct {
	ID           string          `json:"job_id"`
	Status       string          `json:"status"`
	Progress     string          `json:"progress,omitempty"`
	ErrorMessage *string         `json:"error,omitempty"`
	Result       []AnalysisEntry `json:"result,omitempty"`
	FileName     string          `json:"file_name"`
	MimeType     string          `json:"mime_type"`
	SizeBytes    int64           `json:"size_bytes"`
	StorageKey   string          `json:"-"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	StartedAt    *time.Time      `json:"started_at,omitempty"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
}

// Terminal reports whether the job reached a final status.
func (j Job) Terminal() bool {
	return IsTerminal(j.Status)
}

// AnalysisEntry is one forensic finding (object or procedure) detected in
// the video, with its supporting evidence list. Timestamps are
// media-relative display strings in HH:MM:SS:MS form.
type AnalysisEntry struct {
	Label               string     `json:"label"`
	Outcome             string     `json:"outcome"`
	VisualObservation   string     `json:"visual_observation"`
	NarratedObservation string     `json:"narrated_observation"`
	StartTime           string     `json:"start_time"`
	EndTime             string     `json:"end_time"`
	BestFrameTime       string     `json:"best_frame_time,omitempty"`
	BestFrameImage      string     `json:"best_frame_image,omitempty"`
	Evidence            []Evidence `json:"evidence"`
}

// Evidence is a sub-observation supporting an AnalysisEntry. An empty
// evidence list on a completed entry means no physical evidence was
// detected, which is distinct from a job that has not produced a result.
type Evidence struct {
	Label               string `json:"label"`
	VisualObservation   string `json:"visual_observation"`
	NarratedObservation string `json:"narrated_observation"`
	StartTime           string `json:"start_time"`
	Image               string `json:"image,omitempty"`
}
