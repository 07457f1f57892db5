package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// JobMessage is the handoff body published for every new job
type JobMessage struct {
	JobID    string `json:"job_id"`
	delivery amqp.Delivery
}

var errMalformedHandoff = errors.New("malformed job handoff")

// decodeHandoff parses a delivery into a JobMessage. Bodies that can never be
// processed return errMalformedHandoff.
func decodeHandoff(delivery amqp.Delivery) (*JobMessage, error) {
	var msg JobMessage
	if err := json.Unmarshal(delivery.Body, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedHandoff, err)
	}
	if _, err := uuid.Parse(msg.JobID); err != nil {
		return nil, fmt.Errorf("%w: job_id %q is not a UUID", errMalformedHandoff, msg.JobID)
	}
	msg.delivery = delivery
	return &msg, nil
}

// setupConsumer starts consuming handoffs. QoS is applied when the client declares the queue.
func (w *Worker) setupConsumer() (<-chan amqp.Delivery, error) {
	deliveries, err := w.consumer.Consume(w.workerID)
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	w.logger.Info("Consuming job handoffs", slog.String("consumer_tag", w.workerID))
	return deliveries, nil
}

// startMessageDispatcher feeds decoded handoffs to the pool until ctx ends or
// the broker closes the delivery channel
func (w *Worker) startMessageDispatcher(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Handoff dispatcher stopped", slog.String("reason", "context canceled"))
			return

		case delivery, ok := <-deliveries:
			if !ok {
				w.logger.Warn("Handoff dispatcher stopped", slog.String("reason", "delivery channel closed"))
				return
			}

			msg, err := decodeHandoff(delivery)
			if err != nil {
				// dead-lettered when the queue has a DLX, dropped otherwise
				w.reject(delivery, false, err)
				continue
			}

			if delivery.Redelivered {
				w.logger.Info("Handoff redelivered", slog.String("job_id", msg.JobID))
			}

			select {
			case w.jobsChan <- msg:
			case <-ctx.Done():
				w.reject(delivery, true, ctx.Err())
				return
			}
		}
	}
}

// reject NACKs a delivery that never reached the pool
func (w *Worker) reject(delivery amqp.Delivery, requeue bool, cause error) {
	w.logger.Warn("Rejecting handoff",
		slog.Uint64("delivery_tag", delivery.DeliveryTag),
		slog.Bool("requeue", requeue),
		slog.Any("error", cause),
	)
	if err := delivery.Nack(false, requeue); err != nil {
		w.logger.Error("Failed to NACK handoff",
			slog.Uint64("delivery_tag", delivery.DeliveryTag),
			slog.Any("error", err),
		)
	}
}
