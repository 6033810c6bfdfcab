package services

import (
	"errors"
	"fmt"
	"log"
)

// Error codes for hard failures that abort an extraction run. Persistence
// hiccups are never represented here; they go through LogPersistenceWarning
// and the run continues.
const (
	CodeInvalidRequest         = "invalid_request"
	CodeUnauthorized           = "unauthorized"
	CodeServiceUnavailable     = "service_unavailable"
	CodeMissingOperationHandle = "missing_operation_handle"
	CodeAnalysisFailed         = "analysis_failed"
	CodeAnalysisTimeout        = "analysis_timeout"
)

// PipelineError is a hard failure in the extraction pipeline.
type PipelineError struct {
	Code    string
	Message string
	Detail  string // raw diagnostic detail from the analysis service, if any
	Cause   error
}

func (e *PipelineError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Message, e.Detail)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Cause
}

func NewPipelineError(code, message string) *PipelineError {
	return &PipelineError{Code: code, Message: message}
}

// ErrorCode extracts the pipeline error code from err, or "internal" when err
// is not a PipelineError.
func ErrorCode(err error) string {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return "internal"
}

// LogPersistenceWarning records a non-fatal bookkeeping failure. Writes to
// field definitions, location metadata and individual extracted-value rows are
// best-effort: a partially populated result is more useful than no result.
func LogPersistenceWarning(op string, err error) {
	if err == nil {
		return
	}
	log.Printf("[WARN] persistence: %s failed: %v (continuing)", op, err)
}
