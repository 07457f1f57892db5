package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// MinPort is the minimum valid port number
	MinPort = 1
	// MaxPort is the maximum valid port number
	MaxPort = 65535
)

// Storage drivers
const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"
)

// Config represents the complete application configuration
type Config struct {
	App           AppConfig           `yaml:"app"`
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	RabbitMQ      RabbitMQConfig      `yaml:"rabbitmq"`
	Events        EventsConfig        `yaml:"events"`
	Logging       LoggingConfig       `yaml:"logging"`
	Worker        WorkerConfig        `yaml:"worker"`
	Storage       StorageConfig       `yaml:"storage"`
	Cache         CacheConfig         `yaml:"cache"`
	Notifications NotificationsConfig `yaml:"notifications"`
	RateLimit     RateLimitConfig     `yaml:"ratelimit"`
	Metrics       MetricsConfig       `yaml:"metrics"`
	Artifacts     ArtifactsConfig     `yaml:"artifacts"`
	Reconciler    ReconcilerConfig    `yaml:"reconciler"`
	Auth          AuthConfig          `yaml:"auth"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	// CORSOrigins lists allowed browser origins; empty allows any
	CORSOrigins []string `yaml:"cors_origins"`
}

// DatabaseConfig holds PostgreSQL connection configuration
type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	Database        string        `yaml:"database"`
	SSLMode         string        `yaml:"sslmode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
}

// RabbitMQConfig holds the broker connection and the job handoff exchange/queue
type RabbitMQConfig struct {
	Host       string           `yaml:"host"`
	Port       int              `yaml:"port"`
	User       string           `yaml:"user"`
	Password   string           `yaml:"password"`
	VHost      string           `yaml:"vhost"`
	Exchange   ExchangeConfig   `yaml:"exchange"`
	Queue      QueueConfig      `yaml:"queue"`
	RoutingKey string           `yaml:"routing_key"`
	Connection ConnectionConfig `yaml:"connection"`
	Publish    PublishConfig    `yaml:"publish"`
	Consumer   ConsumerConfig   `yaml:"consumer"`
}

// ExchangeConfig holds RabbitMQ exchange configuration
type ExchangeConfig struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
}

// QueueConfig holds RabbitMQ queue configuration
type QueueConfig struct {
	Name       string `yaml:"name"`
	Durable    bool   `yaml:"durable"`
	AutoDelete bool   `yaml:"auto_delete"`
	Exclusive  bool   `yaml:"exclusive"`
}

// ConnectionConfig holds RabbitMQ connection settings
type ConnectionConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	Heartbeat         time.Duration `yaml:"heartbeat"`
	ConnectionTimeout time.Duration `yaml:"connection_timeout"`
}

// PublishConfig holds RabbitMQ publish retry settings
type PublishConfig struct {
	RetryAttempts     int           `yaml:"retry_attempts"`
	RetryInterval     time.Duration `yaml:"retry_interval"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
}

// ConsumerConfig holds RabbitMQ consumer settings
type ConsumerConfig struct {
	PrefetchCount int `yaml:"prefetch_count"`
}

// EventsConfig holds the terminal-event fanout exchange. Every api-service
// instance binds its own exclusive queue to it.
type EventsConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Exchange       string        `yaml:"exchange"`
	HandlerTimeout time.Duration `yaml:"handler_timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	Output    string `yaml:"output"`
	AddSource bool   `yaml:"add_source"`
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
}

// WorkerConfig holds worker configuration
type WorkerConfig struct {
	ID              string        `yaml:"id"`
	Concurrency     int           `yaml:"concurrency"`
	JobTimeout      time.Duration `yaml:"job_timeout"`
	RenderDelay     time.Duration `yaml:"render_delay"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StorageConfig selects the job and notification store
type StorageConfig struct {
	Driver         string `yaml:"driver"`
	MigrateOnStart bool   `yaml:"migrate_on_start"`
}

// CacheConfig holds status cache and invalidation settings
type CacheConfig struct {
	TTL              time.Duration `yaml:"ttl"`
	Size             int           `yaml:"size"`
	RevalidateURL    string        `yaml:"revalidate_url"`
	RevalidateSecret string        `yaml:"revalidate_secret"`
	Timeout          time.Duration `yaml:"timeout"`
}

// NotificationsConfig bounds notification and job list pages
type NotificationsConfig struct {
	DefaultPageSize int `yaml:"default_page_size"`
	MaxPageSize     int `yaml:"max_page_size"`
}

// RateLimitConfig throttles submissions per requester; zero disables it
type RateLimitConfig struct {
	SubmitPerSecond float64 `yaml:"submit_per_second"`
	Burst           int     `yaml:"burst"`
}

// MetricsConfig holds Prometheus exporter settings. Port 0 serves /metrics on the main server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// ArtifactsConfig holds the artifact file store
type ArtifactsConfig struct {
	BasePath      string `yaml:"base_path"`
	PublicBaseURL string `yaml:"public_base_url"`
}

// ReconcilerConfig holds the worker-side repair loop timings
type ReconcilerConfig struct {
	Enabled             bool          `yaml:"enabled"`
	Interval            time.Duration `yaml:"interval"`
	TerminalLookback    time.Duration `yaml:"terminal_lookback"`
	PendingRequeueAfter time.Duration `yaml:"pending_requeue_after"`
	ProcessingTimeout   time.Duration `yaml:"processing_timeout"`
	BatchSize           int           `yaml:"batch_size"`
}

// AuthConfig holds shared secrets
type AuthConfig struct {
	WorkerToken string `yaml:"worker_token"`
}

// Load reads the configuration file, expands ${VAR} references from the
// environment and parses it
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var config Config
	if err := yaml.Unmarshal([]byte(expanded), &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()
	return &config, nil
}

func (c *Config) applyDefaults() {
	if c.Storage.Driver == "" {
		c.Storage.Driver = StorageDriverPostgres
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = 60 * time.Second
	}
	if c.Cache.Timeout <= 0 {
		c.Cache.Timeout = 5 * time.Second
	}
	if c.Notifications.DefaultPageSize <= 0 {
		c.Notifications.DefaultPageSize = 20
	}
	if c.Notifications.MaxPageSize <= 0 {
		c.Notifications.MaxPageSize = 100
	}
	if c.Events.HandlerTimeout <= 0 {
		c.Events.HandlerTimeout = 10 * time.Second
	}
	if c.Reconciler.ProcessingTimeout <= 0 && c.Worker.JobTimeout > 0 {
		c.Reconciler.ProcessingTimeout = 2 * c.Worker.JobTimeout
	}
	if c.Reconciler.BatchSize <= 0 {
		c.Reconciler.BatchSize = 100
	}
}

// UsesPostgres reports whether the postgres storage driver is selected
func (c *Config) UsesPostgres() bool {
	return c.Storage.Driver == StorageDriverPostgres
}

// UsesQueue reports whether jobs are handed to worker-service over RabbitMQ.
// The memory driver keeps everything in one process.
func (c *Config) UsesQueue() bool {
	return c.UsesPostgres()
}

// ValidateAPIConfig checks the settings api-service needs
func (c *Config) ValidateAPIConfig() error {
	if err := validatePort("server", c.Server.Port); err != nil {
		return err
	}

	if err := c.validateStorage(); err != nil {
		return err
	}

	if c.UsesQueue() {
		if err := c.validateRabbitMQ(); err != nil {
			return err
		}
	}

	if c.Events.Enabled && c.Events.Exchange == "" {
		return fmt.Errorf("events exchange is required when events are enabled")
	}

	if c.Notifications.DefaultPageSize > c.Notifications.MaxPageSize {
		return fmt.Errorf("notifications default_page_size %d exceeds max_page_size %d",
			c.Notifications.DefaultPageSize, c.Notifications.MaxPageSize)
	}

	if c.RateLimit.SubmitPerSecond < 0 {
		return fmt.Errorf("ratelimit submit_per_second must not be negative")
	}

	if c.Metrics.Enabled && c.Metrics.Port != 0 {
		if err := validatePort("metrics", c.Metrics.Port); err != nil {
			return err
		}
	}

	if !c.UsesQueue() {
		if err := c.validateWorker(); err != nil {
			return err
		}
	}

	return nil
}

// ValidateWorkerConfig checks the settings worker-service needs
func (c *Config) ValidateWorkerConfig() error {
	if !c.UsesPostgres() {
		return fmt.Errorf("worker-service requires the %s storage driver", StorageDriverPostgres)
	}

	if err := c.validateStorage(); err != nil {
		return err
	}

	if err := c.validateRabbitMQ(); err != nil {
		return err
	}

	if err := c.validateWorker(); err != nil {
		return err
	}

	if c.Reconciler.Enabled && c.Reconciler.Interval <= 0 {
		return fmt.Errorf("reconciler interval must be greater than 0")
	}

	if c.Metrics.Enabled {
		if err := validatePort("metrics", c.Metrics.Port); err != nil {
			return err
		}
	}

	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Driver {
	case StorageDriverMemory:
		return nil
	case StorageDriverPostgres:
	default:
		return fmt.Errorf("unknown storage driver: %q", c.Storage.Driver)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}

	if err := validatePort("database", c.Database.Port); err != nil {
		return err
	}

	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	return nil
}

func (c *Config) validateRabbitMQ() error {
	if c.RabbitMQ.Host == "" {
		return fmt.Errorf("rabbitmq host is required")
	}

	if err := validatePort("rabbitmq", c.RabbitMQ.Port); err != nil {
		return err
	}

	if c.RabbitMQ.Exchange.Name == "" {
		return fmt.Errorf("rabbitmq exchange name is required")
	}

	if c.RabbitMQ.Queue.Name == "" {
		return fmt.Errorf("rabbitmq queue name is required")
	}

	return nil
}

func (c *Config) validateWorker() error {
	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("worker concurrency must be greater than 0")
	}

	if c.Worker.JobTimeout <= 0 {
		return fmt.Errorf("worker job_timeout must be greater than 0")
	}

	if c.Worker.ShutdownTimeout <= 0 {
		return fmt.Errorf("worker shutdown_timeout must be greater than 0")
	}

	if c.Artifacts.BasePath == "" {
		return fmt.Errorf("artifacts base_path is required")
	}

	return nil
}

func validatePort(name string, port int) error {
	if port < MinPort || port > MaxPort {
		return fmt.Errorf("invalid %s port: %d (must be between %d and %d)", name, port, MinPort, MaxPort)
	}
	return nil
}
