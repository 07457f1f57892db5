package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cuongbtq/mediajobs/internal/domain"
	amqp "github.com/rabbitmq/amqp091-go"
)

const contentTypeJSON = "application/json"

// Publisher sends a message to the terminal-event exchange
type Publisher interface {
	PublishWithRetry(ctx context.Context, body []byte, contentType string) error
}

// Consumer yields deliveries from this process's queue on the terminal-event exchange
type Consumer interface {
	Consume(consumerTag string) (<-chan amqp.Delivery, error)
}

// Relay forwards terminal events to other processes
type Relay struct {
	publisher Publisher
	logger    *slog.Logger
}

// NewRelay creates a new Relay instance
func NewRelay(publisher Publisher, logger *slog.Logger) *Relay {
	return &Relay{
		publisher: publisher,
		logger:    logger.With(slog.String("component", "event_relay")),
	}
}

// HandleTerminal implements domain.TerminalHandler
func (r *Relay) HandleTerminal(ctx context.Context, ev domain.TerminalEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal terminal event: %w", err)
	}

	if err := r.publisher.PublishWithRetry(ctx, body, contentTypeJSON); err != nil {
		return fmt.Errorf("failed to relay terminal event: %w", err)
	}

	r.logger.Debug("Terminal event relayed",
		slog.String("job_id", ev.JobID),
		slog.String("state", string(ev.State)),
	)
	return nil
}

// Listener feeds terminal events received from other processes into a handler
type Listener struct {
	consumer    Consumer
	handler     domain.TerminalHandler
	consumerTag string
	timeout     time.Duration
	logger      *slog.Logger
}

// NewListener creates a new Listener instance
func NewListener(consumer Consumer, handler domain.TerminalHandler, consumerTag string, logger *slog.Logger) *Listener {
	return &Listener{
		consumer:    consumer,
		handler:     handler,
		consumerTag: consumerTag,
		timeout:     defaultHandlerTimeout,
		logger:      logger.With(slog.String("component", "event_listener")),
	}
}

// Run consumes until ctx is cancelled or the delivery channel closes
func (l *Listener) Run(ctx context.Context) error {
	deliveries, err := l.consumer.Consume(l.consumerTag)
	if err != nil {
		return fmt.Errorf("failed to start event listener: %w", err)
	}

	l.logger.Info("Event listener started", slog.String("consumer_tag", l.consumerTag))

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Event listener stopping")
			return nil
		case msg, ok := <-deliveries:
			if !ok {
				l.logger.Warn("Event delivery channel closed")
				return nil
			}
			l.handleDelivery(ctx, msg)
		}
	}
}

func (l *Listener) handleDelivery(ctx context.Context, msg amqp.Delivery) {
	ev, err := decodeTerminalEvent(msg.Body)
	if err != nil {
		l.logger.Error("Discarding malformed terminal event",
			slog.Any("error", err),
			slog.Int("body_size", len(msg.Body)),
		)
		if nackErr := msg.Nack(false, false); nackErr != nil {
			l.logger.Error("Failed to NACK message", slog.Any("error", nackErr))
		}
		return
	}

	hctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	if err := l.handler.HandleTerminal(hctx, ev); err != nil {
		requeue := !errors.Is(err, context.Canceled)
		l.logger.Error("Failed to handle relayed terminal event",
			slog.String("job_id", ev.JobID),
			slog.Bool("requeue", requeue),
			slog.Any("error", err),
		)
		if nackErr := msg.Nack(false, requeue); nackErr != nil {
			l.logger.Error("Failed to NACK message", slog.Any("error", nackErr))
		}
		return
	}

	if err := msg.Ack(false); err != nil {
		l.logger.Error("Failed to ACK message", slog.Any("error", err))
	}
}

func decodeTerminalEvent(body []byte) (domain.TerminalEvent, error) {
	var ev domain.TerminalEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return domain.TerminalEvent{}, fmt.Errorf("failed to unmarshal terminal event: %w", err)
	}
	if ev.JobID == "" || !ev.State.Terminal() {
		return domain.TerminalEvent{}, fmt.Errorf("%w: terminal event needs job_id and a terminal state", domain.ErrInvalidEvent)
	}
	return ev, nil
}
