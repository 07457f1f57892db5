package domain

import (
	"strings"
	"time"
)

// Apply runs ev against the job's current state and returns the resulting job.
// The input job is never modified. Legal moves:
//
//	PENDING    -started->   PROCESSING
//	PENDING    -failed->    FAILED
//	PROCESSING -completed-> COMPLETED   (artifact required)
//	PROCESSING -failed->    FAILED      (reason required)
//
// Everything else, including any event against a terminal job, is a *TransitionError.
func Apply(job Job, ev Event, now time.Time) (Job, error) {
	next := job

	switch job.State {
	case StatePending:
		switch ev.Kind() {
		case EventStarted:
			next.State = StateProcessing
		case EventFailed:
			next.State = StateFailed
			next.ErrorReason = strings.TrimSpace(ev.Reason())
		default:
			return job, &TransitionError{From: job.State, Event: ev.Kind()}
		}

	case StateProcessing:
		switch ev.Kind() {
		case EventCompleted:
			artifact := strings.TrimSpace(ev.Artifact())
			if artifact == "" {
				return job, &TransitionError{From: job.State, Event: ev.Kind(), Reason: "artifact is required"}
			}
			next.State = StateCompleted
			next.Artifact = artifact
		case EventFailed:
			reason := strings.TrimSpace(ev.Reason())
			if reason == "" {
				return job, &TransitionError{From: job.State, Event: ev.Kind(), Reason: "error reason is required"}
			}
			next.State = StateFailed
			next.ErrorReason = reason
		default:
			return job, &TransitionError{From: job.State, Event: ev.Kind()}
		}

	default:
		// terminal or unknown state
		return job, &TransitionError{From: job.State, Event: ev.Kind()}
	}

	next.UpdatedAt = now
	return next, nil
}
