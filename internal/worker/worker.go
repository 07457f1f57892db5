package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Consumer yields job handoff deliveries
type Consumer interface {
	Consume(consumerTag string) (<-chan amqp.Delivery, error)
}

// Config holds worker configuration
type Config struct {
	Logger      *slog.Logger
	Consumer    Consumer
	Processor   *Processor
	WorkerID    string
	Concurrency int
}

// Worker consumes job handoffs from RabbitMQ and runs them through a pool of
// goroutines
type Worker struct {
	logger      *slog.Logger
	consumer    Consumer
	processor   *Processor
	workerID    string
	concurrency int
	jobsChan    chan *JobMessage
	wg          sync.WaitGroup
	stopChan    chan struct{}
	stopOnce    sync.Once
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Worker{
		logger:      cfg.Logger.With(slog.String("component", "worker")),
		consumer:    cfg.Consumer,
		processor:   cfg.Processor,
		workerID:    cfg.WorkerID,
		concurrency: concurrency,
		jobsChan:    make(chan *JobMessage),
		stopChan:    make(chan struct{}),
	}
}

// Start begins processing jobs and blocks until ctx is cancelled or the
// delivery channel closes
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
	)

	deliveries, err := w.setupConsumer()
	if err != nil {
		return fmt.Errorf("failed to setup consumer: %w", err)
	}

	w.spawnWorkerPool(ctx)
	w.startMessageDispatcher(ctx, deliveries)

	return nil
}

// Stop gracefully stops the worker, waiting for in-flight jobs
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		w.logger.Info("Stopping worker...")
		close(w.stopChan)
		w.wg.Wait()
		w.logger.Info("Worker stopped")
	})
}
