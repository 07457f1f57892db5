package domain

import "context"

// Worker receives newly created jobs. Implementations eventually report
// progress through Orchestrator.Advance; no time bound is assumed.
type Worker interface {
	Process(ctx context.Context, job JobView) error
}

// SubscriptionSource decides which consumers hear about a submission's outcome.
type SubscriptionSource interface {
	Subscribers(ctx context.Context, sub Submission) ([]string, error)
}

// Cache is the external cached-read collaborator. Invalidate is best-effort.
type Cache interface {
	Invalidate(ctx context.Context, keys []string) error
}

// TerminalHandler reacts to terminal transitions.
type TerminalHandler interface {
	HandleTerminal(ctx context.Context, ev TerminalEvent) error
}

// TerminalHandlerFunc adapts a function to TerminalHandler.
type TerminalHandlerFunc func(ctx context.Context, ev TerminalEvent) error

func (f TerminalHandlerFunc) HandleTerminal(ctx context.Context, ev TerminalEvent) error {
	return f(ctx, ev)
}

// TerminalPublisher delivers terminal events to interested handlers.
type TerminalPublisher interface {
	PublishTerminal(ctx context.Context, ev TerminalEvent)
}
