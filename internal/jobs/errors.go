package jobs

import "errors"

var (
	ErrNotFound              = errors.New("not found")
	ErrInvalidInput          = errors.New("invalid input")
	ErrInvalidTransition     = errors.New("invalid status transition")
	ErrUnsupportedMediaType  = errors.New("unsupported media type")
	ErrFileTooLarge          = errors.New("file too large")
	ErrQueueFull             = errors.New("job queue full")
	ErrJobQueueNotConfigured = errors.New("job queue not configured")
)

const (
	ErrorCodeValidation           = "VALIDATION_ERROR"
	ErrorCodeFileTooLarge         = "FILE_TOO_LARGE"
	ErrorCodeQueueFull            = "QUEUE_FULL"
	ErrorCodeExtraction           = "EXTRACTION_ERROR"
	ErrorCodeInferenceTimeout     = "INFERENCE_TIMEOUT"
	ErrorCodeInferenceUnavailable = "INFERENCE_UNAVAILABLE"
	ErrorCodeMalformedOutput      = "MALFORMED_INFERENCE_OUTPUT"
	ErrorCodeStorage              = "STORAGE_ERROR"
	ErrorCodeInternal             = "INTERNAL_ERROR"
	ErrorCodeNotFound             = "NOT_FOUND"
)
