package domain

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError reports generation parameters that violated one or more
// rules. It is raised before any network call and is never retried.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Violations, "; ")
}

// APIError is a generation backend rejection or failure, surfaced after the
// client's retry budget is exhausted.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("generation API error (status %d): %s", e.StatusCode, e.Message)
	}
	return "generation API error: " + e.Message
}

// TimeoutError means the end-to-end generation call exceeded its budget.
type TimeoutError struct {
	Operation string
	Limit     time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Operation, e.Limit)
}

const (
	FFmpegFileTooLarge    = "FILE_TOO_LARGE"
	FFmpegDownloadError   = "DOWNLOAD_ERROR"
	FFmpegMetadataError   = "METADATA_ERROR"
	FFmpegFrameExtraction = "FRAME_EXTRACTION_ERROR"
	FFmpegCombination     = "COMBINATION_ERROR"
)

// FFmpegError is a local media-processing failure. The processor never
// retries these; retry policy, if any, belongs to the caller.
type FFmpegError struct {
	Code    string
	Message string
	Cause   error
}

func (e *FFmpegError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *FFmpegError) Unwrap() error {
	return e.Cause
}

const (
	SequenceNotFound        = "NOT_FOUND"
	SequenceValidation      = "VALIDATION_ERROR"
	SequenceExportError     = "EXPORT_ERROR"
	SequenceFrameExtraction = "FRAME_EXTRACTION_ERROR"
	SequenceConflict        = "CONFLICT"
)

// SequenceError is an orchestration-level precondition or consistency
// failure. SceneNumbers carries the offending scenes when relevant.
type SequenceError struct {
	Code         string
	Message      string
	SceneNumbers []int
	Cause        error
}

func (e *SequenceError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if len(e.SceneNumbers) > 0 {
		msg = fmt.Sprintf("%s (scenes %v)", msg, e.SceneNumbers)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *SequenceError) Unwrap() error {
	return e.Cause
}
