package pipeline

import "fmt"

// InternalError wraps an unexpected failure inside a pipeline component that
// the caller could not have avoided by fixing its input. RunID lets an
// operator correlate the error with the structured logs for that run.
type InternalError struct {
	RunID     string
	Component string
	Detail    string
	Cause     error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("pipeline: internal error in %s (run %s): %s", e.Component, e.RunID, e.Detail)
}

func (e *InternalError) Unwrap() error {
	return e.Cause
}

func newInternalError(runID, component string, cause error) *InternalError {
	return &InternalError{RunID: runID, Component: component, Detail: cause.Error(), Cause: cause}
}
