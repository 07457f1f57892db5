package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cuongbtq/mediajobs/internal/domain"
)

// Publisher sends a message to the job handoff exchange
type Publisher interface {
	PublishWithRetry(ctx context.Context, body []byte, contentType string) error
}

// QueueHandoff hands new jobs to worker-service instances over RabbitMQ
type QueueHandoff struct {
	publisher Publisher
}

// NewQueueHandoff creates a new QueueHandoff instance
func NewQueueHandoff(publisher Publisher) *QueueHandoff {
	return &QueueHandoff{publisher: publisher}
}

// Process implements domain.Worker
func (q *QueueHandoff) Process(ctx context.Context, job domain.JobView) error {
	body, err := json.Marshal(JobMessage{JobID: job.ID})
	if err != nil {
		return fmt.Errorf("failed to marshal job message: %w", err)
	}
	if err := q.publisher.PublishWithRetry(ctx, body, "application/json"); err != nil {
		return fmt.Errorf("failed to publish job: %w", err)
	}
	return nil
}

// InlineWorker runs jobs on goroutines inside the calling process. It backs
// single-process deployments that have no broker.
type InlineWorker struct {
	processor *Processor
	logger    *slog.Logger
	baseCtx   context.Context
	slots     chan struct{}
	wg        sync.WaitGroup
}

// NewInlineWorker creates a new InlineWorker instance running at most
// concurrency jobs at once. Jobs run under ctx, so cancelling it interrupts them.
func NewInlineWorker(ctx context.Context, processor *Processor, concurrency int, logger *slog.Logger) *InlineWorker {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &InlineWorker{
		processor: processor,
		logger:    logger.With(slog.String("component", "inline_worker")),
		baseCtx:   ctx,
		slots:     make(chan struct{}, concurrency),
	}
}

// Process implements domain.Worker. It returns immediately; the job waits for a free slot.
func (w *InlineWorker) Process(_ context.Context, job domain.JobView) error {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		select {
		case w.slots <- struct{}{}:
		case <-w.baseCtx.Done():
			// left Pending for the next start
			return
		}
		defer func() { <-w.slots }()

		if err := w.processor.Process(w.baseCtx, job.ID); err != nil {
			w.logger.Error("Inline job processing failed",
				slog.String("job_id", job.ID),
				slog.Any("error", err),
			)
		}
	}()
	return nil
}

// Wait blocks until every started job returns
func (w *InlineWorker) Wait() {
	w.wg.Wait()
}
