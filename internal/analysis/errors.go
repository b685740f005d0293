/*
Copyright © 2025 GenOps HQ <dev@genopshq.io>
*/
package analysis

import (
	"errors"
	"fmt"
)

// DetectionError is the only failure that aborts a run: the repository
// itself could not be read. Everything downstream degrades per-invocation.
type DetectionError struct {
	Path string
	Err  error
}

func (e *DetectionError) Error() string {
	return fmt.Sprintf("repository unreadable at %s: %v", e.Path, e.Err)
}

func (e *DetectionError) Unwrap() error { return e.Err }

// IsDetectionError reports whether err is (or wraps) a DetectionError.
func IsDetectionError(err error) bool {
	var de *DetectionError
	return errors.As(err, &de)
}

// ErrToolUnavailable marks an invocation whose binary is not installed.
// Recorded as skipped, never attempted.
var ErrToolUnavailable = errors.New("analyzer binary not found on host")

// ErrSummarizerUnavailable signals that the external summarizer failed;
// the caller substitutes a placeholder summary.
var ErrSummarizerUnavailable = errors.New("summarizer unavailable")

// SinkError is surfaced to the caller when delivery fails. The run itself
// still counts as completed since the analysis succeeded.
type SinkError struct {
	Sink string
	Err  error
}

func (e *SinkError) Error() string {
	return fmt.Sprintf("sink %s failed: %v", e.Sink, e.Err)
}

func (e *SinkError) Unwrap() error { return e.Err }
