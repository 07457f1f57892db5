package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/cuongbtq/mediajobs/internal/api/handler"
	"github.com/cuongbtq/mediajobs/internal/api/router"
	"github.com/cuongbtq/mediajobs/internal/artifact"
	"github.com/cuongbtq/mediajobs/internal/bootstrap"
	"github.com/cuongbtq/mediajobs/internal/cache"
	"github.com/cuongbtq/mediajobs/internal/config"
	"github.com/cuongbtq/mediajobs/internal/domain"
	"github.com/cuongbtq/mediajobs/internal/events"
	"github.com/cuongbtq/mediajobs/internal/jobstore"
	"github.com/cuongbtq/mediajobs/internal/notify"
	"github.com/cuongbtq/mediajobs/internal/orchestrator"
	"github.com/cuongbtq/mediajobs/internal/worker"
	"github.com/cuongbtq/mediajobs/shared/rabbitmq"
	"github.com/gin-gonic/gin"
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

	defaultConfigPath := os.Getenv("API_SERVICE_CONFIG_PATH")
	if defaultConfigPath == "" {
		defaultConfigPath = "configs/api-service/config.yaml"
	}
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.ValidateAPIConfig(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	appLogger, err := bootstrap.Logger(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Close()
	logger := appLogger.Logger

	logger.Info("Starting API service",
		slog.String("app", cfg.App.Name),
		slog.String("version", cfg.App.Version),
		slog.String("environment", cfg.App.Environment),
		slog.String("storage", cfg.Storage.Driver),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rec, metricsHandler, shutdownMetrics, err := bootstrap.Metrics(&cfg.Metrics)
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	defer shutdownMetrics(context.Background())

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

	statusCache := cache.NewStatusCache(cfg.Cache.Size, cfg.Cache.TTL)
	caches := cache.Multi{statusCache}
	if cfg.Cache.RevalidateURL != "" {
		caches = append(caches, cache.NewRevalidator(cfg.Cache.RevalidateURL, cfg.Cache.RevalidateSecret, cfg.Cache.Timeout))
	}
	invalidator := cache.NewInvalidator(caches, cfg.Cache.Timeout, rec, logger)
	bus.Subscribe("cache", invalidator)
	defer invalidator.Wait()

	var closers []func() error
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}()

	if cfg.UsesQueue() && cfg.Events.Enabled {
		relayClient, err := rabbitmq.NewClient(bootstrap.EventsConfig(cfg, false), logger)
		if err != nil {
			return fmt.Errorf("failed to initialize event relay: %w", err)
		}
		closers = append(closers, relayClient.Close)
		bus.Subscribe("relay", events.NewRelay(relayClient, logger))

		listenClient, err := rabbitmq.NewClient(bootstrap.EventsConfig(cfg, true), logger)
		if err != nil {
			return fmt.Errorf("failed to initialize event listener: %w", err)
		}
		closers = append(closers, listenClient.Close)

		// terminal events from other processes drop this instance's cached views
		dropCached := domain.TerminalHandlerFunc(func(ctx context.Context, ev domain.TerminalEvent) error {
			return statusCache.Invalidate(ctx, cache.KeysFor(ev.JobID, ev.InputKey))
		})
		listener := events.NewListener(listenClient, dropCached, cfg.App.Name, logger)
		go func() {
			if err := listener.Run(ctx); err != nil {
				logger.Error("Event listener stopped", slog.Any("error", err))
			}
		}()
	}

	var jobWorker domain.Worker
	if cfg.UsesQueue() {
		handoffClient, err := rabbitmq.NewClient(bootstrap.JobQueueConfig(&cfg.RabbitMQ), logger)
		if err != nil {
			return fmt.Errorf("failed to initialize RabbitMQ: %w", err)
		}
		closers = append(closers, handoffClient.Close)
		jobWorker = worker.NewQueueHandoff(handoffClient)
		logger.Info("Jobs are handed off over RabbitMQ")
	} else {
		inline, err := newInlineWorker(ctx, cfg, store, logger)
		if err != nil {
			return err
		}
		defer inline.Wait()
		jobWorker = inline
		logger.Info("Jobs run inline", slog.Int("concurrency", cfg.Worker.Concurrency))
	}

	orch := orchestrator.New(store, jobWorker, orchestrator.RequesterAndCollaborators{}, dispatcher, rec, logger)

	deps := &handler.Dependencies{
		Logger:        logger,
		Jobs:          orch,
		Notifications: dispatcher,
		StatusCache:   statusCache,
		Paging: handler.Paging{
			DefaultPageSize: cfg.Notifications.DefaultPageSize,
			MaxPageSize:     cfg.Notifications.MaxPageSize,
		},
		ServiceName: cfg.App.Name,
	}
	if stores.DB != nil {
		deps.DB = stores.DB
	}

	opts := router.Options{
		WorkerToken: cfg.Auth.WorkerToken,
		SubmitLimit: router.NewRateLimiter(cfg.RateLimit.SubmitPerSecond, cfg.RateLimit.Burst),
		CORSOrigins: cfg.Server.CORSOrigins,
	}
	if metricsHandler != nil {
		if cfg.Metrics.Port == 0 {
			opts.Metrics = metricsHandler
		} else {
			go bootstrap.ServeMetrics(ctx, cfg.Metrics.Port, metricsHandler, logger)
		}
	}
	if !cfg.UsesQueue() && cfg.Artifacts.PublicBaseURL != "" {
		opts.ArtifactsDir = cfg.Artifacts.BasePath
	}

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router.SetupRouter(deps, opts),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server",
			slog.String("address", addr),
			slog.Duration("read_timeout", cfg.Server.ReadTimeout),
			slog.Duration("write_timeout", cfg.Server.WriteTimeout),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down server...")
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", slog.Any("error", err))
		return err
	}

	logger.Info("Server shutdown complete")
	return nil
}

// newInlineWorker builds the in-process worker used with the memory storage driver
func newInlineWorker(ctx context.Context, cfg *config.Config, store *jobstore.Store, logger *slog.Logger) (*worker.InlineWorker, error) {
	fileStore, err := artifact.NewFileStore(cfg.Artifacts.BasePath, cfg.Artifacts.PublicBaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize artifact store: %w", err)
	}

	processor := worker.NewProcessor(
		store,
		worker.StoreAdvancer{Store: store},
		artifact.NewSimulatedRenderer(fileStore, cfg.Worker.RenderDelay),
		cfg.Worker.JobTimeout,
		logger,
	)
	return worker.NewInlineWorker(ctx, processor, cfg.Worker.Concurrency, logger), nil
}
