// Package events delivers terminal job events to in-process handlers and
// relays them between processes over RabbitMQ.
package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cuongbtq/mediajobs/internal/domain"
)

const defaultHandlerTimeout = 10 * time.Second

type namedHandler struct {
	name    string
	handler domain.TerminalHandler
}

// Bus fans a terminal event out to every registered handler. Handlers run
// concurrently with each other; PublishTerminal returns once all have finished.
// A failing handler is logged and never affects the others or the caller.
type Bus struct {
	mu       sync.RWMutex
	handlers []namedHandler
	timeout  time.Duration
	logger   *slog.Logger
}

// NewBus creates a new Bus instance
func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		timeout: defaultHandlerTimeout,
		logger:  logger.With(slog.String("component", "event_bus")),
	}
}

// SetHandlerTimeout bounds how long a single handler may run per event
func (b *Bus) SetHandlerTimeout(d time.Duration) {
	if d > 0 {
		b.timeout = d
	}
}

// Subscribe registers a handler under a name used in logs
func (b *Bus) Subscribe(name string, h domain.TerminalHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, namedHandler{name: name, handler: h})
}

// PublishTerminal implements domain.TerminalPublisher
func (b *Bus) PublishTerminal(ctx context.Context, ev domain.TerminalEvent) {
	b.mu.RLock()
	handlers := append([]namedHandler(nil), b.handlers...)
	b.mu.RUnlock()

	// the transition is already durable; handlers must not be cut short by the caller going away
	base := context.WithoutCancel(ctx)

	var wg sync.WaitGroup
	for _, h := range handlers {
		wg.Add(1)
		go func(h namedHandler) {
			defer wg.Done()

			hctx, cancel := context.WithTimeout(base, b.timeout)
			defer cancel()

			if err := h.handler.HandleTerminal(hctx, ev); err != nil {
				b.logger.Error("Terminal event handler failed",
					slog.String("handler", h.name),
					slog.String("job_id", ev.JobID),
					slog.String("state", string(ev.State)),
					slog.Any("error", err),
				)
			}
		}(h)
	}
	wg.Wait()
}
