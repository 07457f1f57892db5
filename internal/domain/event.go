package domain

import "fmt"

// EventKind tags the variant carried by an Event.
type EventKind int

const (
	EventStarted EventKind = iota + 1
	EventCompleted
	EventFailed
)

func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventCompleted:
		return "completed"
	case EventFailed:
		return "failed"
	default:
		return fmt.Sprintf("unknown(%d)", int(k))
	}
}

// Event is a worker-reported progress signal. Construct it with Started,
// Completed or Failed; the zero value is not a valid event.
type Event struct {
	kind     EventKind
	artifact string
	reason   string
}

// Started reports that the worker picked the job up.
func Started() Event {
	return Event{kind: EventStarted}
}

// Completed reports a finished generation and its artifact reference.
func Completed(artifact string) Event {
	return Event{kind: EventCompleted, artifact: artifact}
}

// Failed reports a generation that will not produce an artifact.
func Failed(reason string) Event {
	return Event{kind: EventFailed, reason: reason}
}

// ParseEvent builds an Event from its wire name and payload.
func ParseEvent(kind, artifact, reason string) (Event, error) {
	switch kind {
	case "started":
		return Started(), nil
	case "completed":
		return Completed(artifact), nil
	case "failed":
		return Failed(reason), nil
	default:
		return Event{}, fmt.Errorf("%w: unknown event type %q", ErrInvalidEvent, kind)
	}
}

func (e Event) Kind() EventKind  { return e.kind }
func (e Event) Artifact() string { return e.artifact }
func (e Event) Reason() string   { return e.reason }

func (e Event) String() string {
	return e.kind.String()
}
