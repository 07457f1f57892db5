package domain

import "time"

// State is the lifecycle state of a generation job.
type State string

// Job state constants
const (
	StatePending    State = "PENDING"
	StateProcessing State = "PROCESSING"
	StateCompleted  State = "COMPLETED"
	StateFailed     State = "FAILED"
)

// ParseState converts a wire value into a State.
func ParseState(s string) (State, bool) {
	switch State(s) {
	case StatePending, StateProcessing, StateCompleted, StateFailed:
		return State(s), true
	}
	return "", false
}

// Terminal reports whether no further transitions are permitted from s.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Active reports whether a job in state s still participates in de-duplication.
func (s State) Active() bool {
	return s == StatePending || s == StateProcessing
}

// Submission is a client request for one generation.
type Submission struct {
	SubjectID     string
	RequesterID   string
	Prompt        string
	Style         string
	Collaborators []string
}

// Job is the durable record of one generation request.
type Job struct {
	ID          string
	InputKey    string
	SubjectID   string
	RequesterID string
	Prompt      string
	Style       string
	State       State
	Artifact    string
	ErrorReason string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// JobView is the read shape of a job handed to callers and the worker.
type JobView struct {
	ID          string
	State       State
	Artifact    string
	ErrorReason string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// View projects the job into its read shape.
func (j Job) View() JobView {
	return JobView{
		ID:          j.ID,
		State:       j.State,
		Artifact:    j.Artifact,
		ErrorReason: j.ErrorReason,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
	}
}

// TerminalEvent is emitted once a job reaches Completed or Failed.
// Delivery is at-least-once; consumers must be idempotent.
type TerminalEvent struct {
	JobID       string    `json:"job_id"`
	InputKey    string    `json:"input_key"`
	State       State     `json:"state"`
	Artifact    string    `json:"artifact,omitempty"`
	ErrorReason string    `json:"error_reason,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// TerminalEventFor builds the event for a terminal job.
func TerminalEventFor(j Job) TerminalEvent {
	return TerminalEvent{
		JobID:       j.ID,
		InputKey:    j.InputKey,
		State:       j.State,
		Artifact:    j.Artifact,
		ErrorReason: j.ErrorReason,
		OccurredAt:  j.UpdatedAt,
	}
}
