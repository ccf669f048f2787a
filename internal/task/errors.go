package task

import (
	"errors"
	"fmt"
)

// Sentinel errors for the task package.
var (
	// ErrNotDirectory is returned when the workspace root is not a directory.
	ErrNotDirectory = errors.New("workspace root is not a directory")

	// ErrInvalidExclude is returned for malformed exclusion globs.
	ErrInvalidExclude = errors.New("invalid exclude pattern")

	// ErrSourcePanic wraps a recovered panic from a source.
	ErrSourcePanic = errors.New("source panicked")
)

// SourceError records a source that failed during a discovery pass.
// The failing source contributes no tasks; the rest of the pass proceeds.
type SourceError struct {
	Source Type
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Source, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}
