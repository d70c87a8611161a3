// Package pipeline orchestrates media transformations: acquire input,
// compile the transcoder invocation, execute, verify, upload, and clean up
// every scratch artifact on all exit paths.
package pipeline

import (
	"errors"
	"fmt"
)

// ErrInsufficientInputs is returned when concatenation is requested with
// fewer than two inputs.
var ErrInsufficientInputs = errors.New("merge requires at least two inputs")

// ErrEmptyOutput marks a subprocess "success" that produced a missing or
// empty output artifact.
var ErrEmptyOutput = errors.New("output artifact is missing or empty")

// DownloadError means the source media was unreachable or unreadable.
// Fatal for the call; nothing to process.
type DownloadError struct {
	URL string
	Err error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("download %s: %v", e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// CompileError means the instruction parameters are structurally invalid.
// Callers should not retry with the same instruction.
type CompileError struct {
	Operation string
	Err       error
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("compile %s: %v", e.Operation, e.Err)
}

func (e *CompileError) Unwrap() error { return e.Err }

// ExecutionError means the external transcoder exited non-zero or was
// killed by timeout. Not retried internally.
type ExecutionError struct {
	Err error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execute transcoder: %v", e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// VerificationError means the subprocess reported success but the output
// artifact cannot be trusted. Treated identically to ExecutionError by
// callers.
type VerificationError struct {
	Path string
	Err  error
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("verify output %s: %v", e.Path, e.Err)
}

func (e *VerificationError) Unwrap() error { return e.Err }

// UploadError means the result could not be persisted even though local
// processing succeeded.
type UploadError struct {
	Err error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload result: %v", e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }
