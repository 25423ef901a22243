package reporter

import (
	"errors"
	"fmt"
)

// EntryError is returned when a report entry cannot be resolved or created.
// It is the only reporting failure surfaced to step callers.
type EntryError struct {
	Name string
	Err  error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("failed to resolve report entry %q: %v", e.Name, e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *EntryError) Unwrap() error {
	return e.Err
}

// IsEntryError checks if the error is or wraps an EntryError
func IsEntryError(err error) bool {
	var entryErr *EntryError
	return err != nil && errors.As(err, &entryErr)
}

// RuntimeError represents an operational error that should lead to exit code 2
// Examples include configuration errors, unreadable input, etc.
type RuntimeError struct {
	Err error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("runtime error: %v", e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// NewRuntimeError creates a new RuntimeError
func NewRuntimeError(err error) *RuntimeError {
	return &RuntimeError{Err: err}
}

// IsRuntimeError checks if the error is or wraps a RuntimeError
func IsRuntimeError(err error) bool {
	var runtimeErr *RuntimeError
	return err != nil && errors.As(err, &runtimeErr)
}

// TestFailureError reports that at least one entry failed (exit code 1)
type TestFailureError struct {
	Message string
}

func (e *TestFailureError) Error() string {
	return fmt.Sprintf("test failure: %s", e.Message)
}

// NewTestFailureError creates a new TestFailureError
func NewTestFailureError(message string) *TestFailureError {
	return &TestFailureError{Message: message}
}

// IsTestFailureError checks if the error is or wraps a TestFailureError
func IsTestFailureError(err error) bool {
	var testErr *TestFailureError
	return err != nil && errors.As(err, &testErr)
}
