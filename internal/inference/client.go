package inference

import (
	"context"
	"encoding/json"
	"errors"

	"forensics-backend/internal/media"
)

var (
	// ErrTimeout marks an inference call that exceeded its deadline.
	ErrTimeout = errors.New("inference timeout")
	// ErrUnavailable marks a rate-limited or erroring backend.
	ErrUnavailable = errors.New("inference backend unavailable")
	// ErrInvalidResponse marks a backend reply with no usable content.
	ErrInvalidResponse = errors.New("invalid inference response")
)

// AnalyzeInput carries the extracted media handed to the backend.
type AnalyzeInput struct {
	Frames     []media.Frame
	Transcript string
	Duration   float64
}

// Client is the AI backend seam. Callers bound every AnalyzeVideo call with
// a deadline. Neither call is retried here; a transient failure surfaces
// as a job failure and retry is a client re-submission.
type Client interface {
	// AnalyzeVideo runs the forensic audit over the sampled frames and
	// transcript and returns the backend's raw findings.
	AnalyzeVideo(ctx context.Context, input AnalyzeInput) (json.RawMessage, error)
	// Transcribe converts the extracted audio track to text.
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// Placeholder satisfies Client when no backend is configured.
type Placeholder struct{}

func (Placeholder) AnalyzeVideo(ctx context.Context, input AnalyzeInput) (json.RawMessage, error) {
	_ = ctx
	_ = input
	return nil, errors.New("inference client not configured")
}

func (Placeholder) Transcribe(ctx context.Context, audioPath string) (string, error) {
	_ = ctx
	_ = audioPath
	return "", errors.New("inference client not configured")
}
