package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cuongbtq/mediajobs/internal/artifact"
	"github.com/cuongbtq/mediajobs/internal/bootstrap"
	"github.com/cuongbtq/mediajobs/internal/cache"
	"github.com/cuongbtq/mediajobs/internal/config"
	"github.com/cuongbtq/mediajobs/internal/events"
	"github.com/cuongbtq/mediajobs/internal/jobstore"
	"github.com/cuongbtq/mediajobs/internal/notify"
	"github.com/cuongbtq/mediajobs/internal/worker"
	"github.com/cuongbtq/mediajobs/shared/rabbitmq"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables or flags")
	}

	defaultConfigPath := os.Getenv("WORKER_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/worker-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateWorkerConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := bootstrap.Logger(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()
	logger := appLogger.Logger

	workerID := cfg.Worker.ID
	if workerID == "" {
		workerID = "worker-" + uuid.NewString()[:8]
	}

	logger.Info("Starting worker service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
		slog.String("worker_id", workerID),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rec, metricsHandler, shutdownMetrics, err := bootstrap.Metrics(&cfg.Metrics)
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	defer shutdownMetrics(context.Background())
	if metricsHandler != nil {
		go bootstrap.ServeMetrics(ctx, cfg.Metrics.Port, metricsHandler, logger)
	}

	stores, err := bootstrap.OpenStorage(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer stores.Close()

	bus := events.NewBus(logger)
	bus.SetHandlerTimeout(cfg.Events.HandlerTimeout)
	store := jobstore.New(stores.Jobs, bus, logger, jobstore.WithMetrics(rec))

	dispatcher := notify.NewDispatcher(stores.Notifications, rec, logger)
	bus.Subscribe("notifications", dispatcher)

	if cfg.Cache.RevalidateURL != "" {
		revalidator := cache.NewRevalidator(cfg.Cache.RevalidateURL, cfg.Cache.RevalidateSecret, cfg.Cache.Timeout)
		invalidator := cache.NewInvalidator(revalidator, cfg.Cache.Timeout, rec, logger)
		bus.Subscribe("cache", invalidator)
		defer invalidator.Wait()
	}

	if cfg.Events.Enabled {
		relayClient, err := rabbitmq.NewClient(bootstrap.EventsConfig(cfg, false), logger)
		if err != nil {
			return fmt.Errorf("failed to initialize event relay: %w", err)
		}
		defer relayClient.Close()
		bus.Subscribe("relay", events.NewRelay(relayClient, logger))
	}

	rabbitClient, err := rabbitmq.NewClient(bootstrap.JobQueueConfig(&cfg.RabbitMQ), logger)
	if err != nil {
		return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
	}
	defer rabbitClient.Close()

	fileStore, err := artifact.NewFileStore(cfg.Artifacts.BasePath, cfg.Artifacts.PublicBaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize artifact store: %w", err)
	}

	advancer := worker.StoreAdvancer{Store: store}
	processor := worker.NewProcessor(
		store,
		advancer,
		artifact.NewSimulatedRenderer(fileStore, cfg.Worker.RenderDelay),
		cfg.Worker.JobTimeout,
		logger,
	)

	workerInstance := worker.NewWorker(&worker.Config{
		Logger:      logger,
		Consumer:    rabbitClient,
		Processor:   processor,
		WorkerID:    workerID,
		Concurrency: cfg.Worker.Concurrency,
	})

	if cfg.Reconciler.Enabled {
		reconciler := worker.NewReconciler(
			stores.Jobs,
			dispatcher,
			worker.NewQueueHandoff(rabbitClient),
			advancer,
			worker.ReconcilerConfig{
				Interval:            cfg.Reconciler.Interval,
				TerminalLookback:    cfg.Reconciler.TerminalLookback,
				PendingRequeueAfter: cfg.Reconciler.PendingRequeueAfter,
				ProcessingTimeout:   cfg.Reconciler.ProcessingTimeout,
				BatchSize:           cfg.Reconciler.BatchSize,
			},
			logger,
		)
		go reconciler.Run(ctx)
	}

	errChan := make(chan error, 1)
	go func() {
		errChan <- workerInstance.Start(ctx)
	}()

	logger.Info("Worker service started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("Received signal, shutting down gracefully",
			slog.String("signal", sig.String()),
		)
	case err := <-errChan:
		if err == nil {
			err = errors.New("job delivery channel closed")
		}
		logger.Error("Worker error", slog.Any("error", err))
		workerInstance.Stop()
		return err
	}

	// Cancel context to stop the dispatcher, reconciler and metrics server
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Worker.ShutdownTimeout)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		workerInstance.Stop()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("Worker stopped gracefully")
	case <-shutdownCtx.Done():
		logger.Warn("Worker shutdown timeout exceeded, forcing exit")
	}

	logger.Info("Worker service shutdown complete")
	return nil
}
