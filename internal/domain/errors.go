package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a job or notification id is unknown
	ErrNotFound = errors.New("not found")

	// ErrInvalidTransition is returned when an event is not legal from the job's current state
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrForbidden is returned when a consumer acts on a notification it does not own
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidSubmission is returned when a submission is missing required fields
	ErrInvalidSubmission = errors.New("invalid submission")

	// ErrInvalidEvent is returned when a worker event cannot be decoded
	ErrInvalidEvent = errors.New("invalid event")
)

// TransitionError describes a rejected state machine move.
type TransitionError struct {
	From   State
	Event  EventKind
	Reason string
}

func (e *TransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("invalid transition: %s from %s: %s", e.Event, e.From, e.Reason)
	}
	return fmt.Sprintf("invalid transition: %s from %s", e.Event, e.From)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// RetryableError wraps transient errors that should trigger a requeue
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return "retryable error: " + e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError creates a new retryable error
func NewRetryableError(err error) error {
	return &RetryableError{Err: err}
}
