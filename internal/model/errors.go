package model

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound covers a missing project marker or a missing scene file
	// after extraction.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when an operation would clobber existing state
	// that the caller did not ask to replace.
	ErrConflict = errors.New("conflict")
	// ErrExternalTool is returned when the mirror utility or the host
	// archive command fails.
	ErrExternalTool = errors.New("external tool failed")
	// ErrInvalidConfig is returned by SubmissionConfig.Validate.
	ErrInvalidConfig = errors.New("invalid submission config")
	// ErrStale means the settings store changed since it was loaded.
	ErrStale = fmt.Errorf("%w: settings changed since they were loaded", ErrConflict)
)

// ToolError carries the exit status and output tail of a failed external
// command.
type ToolError struct {
	Tool     string
	Args     []string
	ExitCode int
	Output   string
	Err      error
}

func (e *ToolError) Error() string {
	msg := fmt.Sprintf("%s failed", e.Tool)
	if e.ExitCode != 0 {
		msg += fmt.Sprintf(" (exit %d)", e.ExitCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += "\n" + out
	}
	return msg
}

func (e *ToolError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrExternalTool}
	}
	return []error{ErrExternalTool, e.Err}
}
