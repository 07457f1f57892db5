// Package bootstrap turns configuration into the clients and stores both
// services start from.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cuongbtq/mediajobs/internal/config"
	"github.com/cuongbtq/mediajobs/internal/jobstore"
	"github.com/cuongbtq/mediajobs/internal/metrics"
	"github.com/cuongbtq/mediajobs/internal/notify"
	"github.com/cuongbtq/mediajobs/internal/storage"
	"github.com/cuongbtq/mediajobs/internal/worker"
	"github.com/cuongbtq/mediajobs/shared/logger"
	"github.com/cuongbtq/mediajobs/shared/postgresql"
	"github.com/cuongbtq/mediajobs/shared/rabbitmq"
)

// Logger initializes the application logger, tagging every record with the
// service name, version and environment
func Logger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:        cfg.Logging.Level,
		Format:       cfg.Logging.Format,
		Output:       cfg.Logging.Output,
		EnableSource: cfg.Logging.AddSource,
		TimeFormat:   time.RFC3339,
		Attrs: []slog.Attr{
			slog.String("service", cfg.App.Name),
			slog.String("version", cfg.App.Version),
			slog.String("env", cfg.App.Environment),
		},
	})
}

// PostgresConfig maps the database section onto the client configuration
func PostgresConfig(cfg *config.DatabaseConfig) *postgresql.Config {
	return &postgresql.Config{
		Host:            cfg.Host,
		Port:            cfg.Port,
		User:            cfg.User,
		Password:        cfg.Password,
		Database:        cfg.Database,
		SSLMode:         cfg.SSLMode,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.ConnMaxIdleTime,
	}
}

// JobQueueConfig maps the rabbitmq section onto the job handoff client configuration
func JobQueueConfig(cfg *config.RabbitMQConfig) *rabbitmq.Config {
	return &rabbitmq.Config{
		Host:               cfg.Host,
		Port:               cfg.Port,
		User:               cfg.User,
		Password:           cfg.Password,
		VHost:              cfg.VHost,
		ExchangeName:       cfg.Exchange.Name,
		ExchangeType:       cfg.Exchange.Type,
		ExchangeDurable:    cfg.Exchange.Durable,
		ExchangeAutoDelete: cfg.Exchange.AutoDelete,
		QueueName:          cfg.Queue.Name,
		QueueDurable:       cfg.Queue.Durable,
		QueueAutoDelete:    cfg.Queue.AutoDelete,
		QueueExclusive:     cfg.Queue.Exclusive,
		RoutingKey:         cfg.RoutingKey,
		PrefetchCount:      cfg.Consumer.PrefetchCount,
		RetryAttempts:      cfg.Connection.RetryAttempts,
		RetryInterval:      cfg.Connection.RetryInterval,
		Heartbeat:          cfg.Connection.Heartbeat,
		ConnectionTimeout:  cfg.Connection.ConnectionTimeout,
		PublishRetries:     cfg.Publish.RetryAttempts,
		PublishRetryDelay:  cfg.Publish.RetryInterval,
		PublishBackoffMult: cfg.Publish.BackoffMultiplier,
	}
}

// EventsConfig builds the terminal-event fanout client configuration on the
// broker connection of the rabbitmq section. A subscriber gets its own
// server-named exclusive queue; a publisher declares none.
func EventsConfig(cfg *config.Config, subscriber bool) *rabbitmq.Config {
	rc := JobQueueConfig(&cfg.RabbitMQ)
	rc.ExchangeName = cfg.Events.Exchange
	rc.ExchangeType = "fanout"
	rc.ExchangeDurable = true
	rc.ExchangeAutoDelete = false
	rc.QueueName = ""
	rc.QueueDurable = false
	rc.QueueAutoDelete = true
	rc.QueueExclusive = subscriber
	rc.RoutingKey = ""
	return rc
}

// JobRepository is everything the services need from job persistence
type JobRepository interface {
	jobstore.Repository
	worker.ReconcileRepository
}

// Storage holds the repositories selected by the storage driver
type Storage struct {
	Jobs          JobRepository
	Notifications notify.Repository
	// DB is nil with the memory driver
	DB *postgresql.Client
}

// OpenStorage connects the configured storage driver, migrating the schema
// first when asked to
func OpenStorage(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Storage, error) {
	switch cfg.Storage.Driver {
	case config.StorageDriverMemory:
		log.Warn("Using in-memory storage, data is lost on restart")
		return &Storage{
			Jobs:          storage.NewMemoryJobRepository(),
			Notifications: storage.NewMemoryNotificationRepository(),
		}, nil

	case config.StorageDriverPostgres:
		client, err := postgresql.NewClient(ctx, PostgresConfig(&cfg.Database), log)
		if err != nil {
			return nil, err
		}

		if cfg.Storage.MigrateOnStart {
			if err := storage.Migrate(client.GetDB().DB); err != nil {
				client.Close()
				return nil, err
			}
			log.Info("Database migrations applied")
		}

		return &Storage{
			Jobs:          storage.NewJobRepository(client.GetDB(), log),
			Notifications: storage.NewNotificationRepository(client.GetDB(), log),
			DB:            client,
		}, nil
	}

	return nil, fmt.Errorf("unknown storage driver: %q", cfg.Storage.Driver)
}

// Close releases the database connection, if any
func (s *Storage) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// Metrics sets up the Prometheus exporter when enabled. With metrics disabled
// it returns a no-op recorder and a nil handler.
func Metrics(cfg *config.MetricsConfig) (*metrics.Recorder, http.Handler, func(context.Context) error, error) {
	if !cfg.Enabled {
		return metrics.Noop(), nil, func(context.Context) error { return nil }, nil
	}

	handler, shutdown, err := metrics.InitMetrics()
	if err != nil {
		return nil, nil, nil, err
	}

	rec, err := metrics.NewRecorder()
	if err != nil {
		shutdown(context.Background())
		return nil, nil, nil, fmt.Errorf("failed to create metric instruments: %w", err)
	}

	return rec, handler, shutdown, nil
}

// ServeMetrics runs a dedicated /metrics server until ctx is cancelled
func ServeMetrics(ctx context.Context, port int, handler http.Handler, log *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info("Metrics server listening", slog.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("Metrics server failed", slog.Any("error", err))
	}
}
