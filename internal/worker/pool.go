package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/mediajobs/internal/domain"
)

// settlement is what happens to a delivery once its job has been processed
type settlement int

const (
	settleAck settlement = iota
	settleRequeue
	settleDrop
)

func (s settlement) String() string {
	switch s {
	case settleAck:
		return "ack"
	case settleRequeue:
		return "requeue"
	default:
		return "drop"
	}
}

// settlementFor maps a processing result to a settlement. Only errors marked
// retryable go back on the queue; unknown jobs and rejected transitions never succeed on retry.
func settlementFor(err error) settlement {
	if err == nil {
		return settleAck
	}
	if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrInvalidTransition) {
		return settleDrop
	}
	var retryable *domain.RetryableError
	if errors.As(err, &retryable) {
		return settleRequeue
	}
	return settleDrop
}

// spawnWorkerPool starts concurrency goroutines draining jobsChan
func (w *Worker) spawnWorkerPool(ctx context.Context) {
	w.logger.Info("Spawning worker pool", slog.Int("concurrency", w.concurrency))

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.workerLoop(ctx, fmt.Sprintf("%s-%d", w.workerID, i))
	}
}

func (w *Worker) workerLoop(ctx context.Context, workerName string) {
	defer w.wg.Done()

	log := w.logger.With(slog.String("worker_name", workerName))
	log.Debug("Pool goroutine started")

	for {
		select {
		case <-w.stopChan:
			log.Debug("Pool goroutine stopped")
			return
		case <-ctx.Done():
			log.Debug("Pool goroutine stopped", slog.String("reason", "context canceled"))
			return
		case msg := <-w.jobsChan:
			jobLog := log.With(slog.String("job_id", msg.JobID))
			err := w.processor.Process(ctx, msg.JobID)
			w.settle(jobLog, msg, err)
		}
	}
}

// settle ACKs or NACKs the delivery according to settlementFor
func (w *Worker) settle(log *slog.Logger, msg *JobMessage, err error) {
	outcome := settlementFor(err)
	if err != nil {
		log.Error("Job processing failed",
			slog.String("settlement", outcome.String()),
			slog.Any("error", err),
		)
	}

	var settleErr error
	switch outcome {
	case settleAck:
		settleErr = msg.delivery.Ack(false)
	case settleRequeue:
		settleErr = msg.delivery.Nack(false, true)
	case settleDrop:
		settleErr = msg.delivery.Nack(false, false)
	}
	if settleErr != nil {
		log.Error("Failed to settle delivery",
			slog.String("settlement", outcome.String()),
			slog.Uint64("delivery_tag", msg.delivery.DeliveryTag),
			slog.Any("error", settleErr),
		)
	}
}
