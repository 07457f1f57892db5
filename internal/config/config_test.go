package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name      string
		filePath  string
		wantErr   bool
		errString string
	}{
		{
			name:     "valid config file",
			filePath: "testdata/valid_config.yaml",
			wantErr:  false,
		},
		{
			name:      "non-existent file",
			filePath:  "testdata/nonexistent.yaml",
			wantErr:   true,
			errString: "failed to read config file",
		},
		{
			name:      "malformed yaml",
			filePath:  "testdata/malformed.yaml",
			wantErr:   true,
			errString: "failed to parse config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("MEDIAJOBS_DB_PASSWORD", "from-env")
			cfg, err := Load(tt.filePath)

			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
				assert.Nil(t, cfg)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)

			assert.Equal(t, 8080, cfg.Server.Port)
			assert.Equal(t, "localhost", cfg.Database.Host)
			assert.Equal(t, 5432, cfg.Database.Port)
			assert.Equal(t, "mediajobs", cfg.Database.Database)
			assert.Equal(t, "from-env", cfg.Database.Password)
			assert.Equal(t, "generation_jobs", cfg.RabbitMQ.Exchange.Name)
			assert.Equal(t, "generation_jobs_queue", cfg.RabbitMQ.Queue.Name)
			assert.Equal(t, "mediajobs-api", cfg.App.Name)
			assert.Equal(t, StorageDriverPostgres, cfg.Storage.Driver)
			assert.Equal(t, 90*time.Second, cfg.Cache.TTL)
			assert.Equal(t, "generation_job_events", cfg.Events.Exchange)
			assert.Equal(t, 5.0, cfg.RateLimit.SubmitPerSecond)
		})
	}
}

func TestLoad_AppliesDefaults(t *testing.T) {
	cfg, err := Load("testdata/memory.yaml")
	require.NoError(t, err)

	assert.Equal(t, StorageDriverMemory, cfg.Storage.Driver)
	assert.Equal(t, 60*time.Second, cfg.Cache.TTL)
	assert.Equal(t, 5*time.Second, cfg.Cache.Timeout)
	assert.Equal(t, 20, cfg.Notifications.DefaultPageSize)
	assert.Equal(t, 100, cfg.Notifications.MaxPageSize)
	assert.Equal(t, 100, cfg.Reconciler.BatchSize)
	assert.Equal(t, time.Minute, cfg.Reconciler.ProcessingTimeout)
	assert.False(t, cfg.UsesQueue())
	require.NoError(t, cfg.ValidateAPIConfig())
}

func validAPIConfig() *Config {
	cfg := &Config{
		Server: ServerConfig{Port: 8080},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			Database: "mediajobs",
		},
		RabbitMQ: RabbitMQConfig{
			Host:     "localhost",
			Port:     5672,
			Exchange: ExchangeConfig{Name: "generation_jobs"},
			Queue:    QueueConfig{Name: "generation_jobs_queue"},
		},
		Worker: WorkerConfig{
			Concurrency:     2,
			JobTimeout:      time.Minute,
			ShutdownTimeout: 10 * time.Second,
		},
		Artifacts:  ArtifactsConfig{BasePath: "/tmp/artifacts"},
		Reconciler: ReconcilerConfig{Enabled: true, Interval: time.Minute},
		Metrics:    MetricsConfig{Enabled: true, Port: 9091},
	}
	cfg.applyDefaults()
	return cfg
}

func TestConfig_ValidateAPIConfig(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		errString string
	}{
		{name: "valid config", mutate: func(c *Config) {}},
		{name: "invalid server port - too low", mutate: func(c *Config) { c.Server.Port = 0 }, errString: "invalid server port"},
		{name: "invalid server port - too high", mutate: func(c *Config) { c.Server.Port = 70000 }, errString: "invalid server port"},
		{name: "empty database host", mutate: func(c *Config) { c.Database.Host = "" }, errString: "database host is required"},
		{name: "empty database name", mutate: func(c *Config) { c.Database.Database = "" }, errString: "database name is required"},
		{name: "empty rabbitmq host", mutate: func(c *Config) { c.RabbitMQ.Host = "" }, errString: "rabbitmq host is required"},
		{name: "empty exchange name", mutate: func(c *Config) { c.RabbitMQ.Exchange.Name = "" }, errString: "rabbitmq exchange name is required"},
		{name: "empty queue name", mutate: func(c *Config) { c.RabbitMQ.Queue.Name = "" }, errString: "rabbitmq queue name is required"},
		{name: "unknown storage driver", mutate: func(c *Config) { c.Storage.Driver = "mysql" }, errString: "unknown storage driver"},
		{
			name:      "events enabled without exchange",
			mutate:    func(c *Config) { c.Events.Enabled = true },
			errString: "events exchange is required",
		},
		{
			name:      "default page size above max",
			mutate:    func(c *Config) { c.Notifications.DefaultPageSize = 500 },
			errString: "exceeds max_page_size",
		},
		{name: "negative rate limit", mutate: func(c *Config) { c.RateLimit.SubmitPerSecond = -1 }, errString: "submit_per_second"},
		{name: "invalid metrics port", mutate: func(c *Config) { c.Metrics.Port = 70000 }, errString: "invalid metrics port"},
		{
			name: "memory driver needs no broker",
			mutate: func(c *Config) {
				c.Storage.Driver = StorageDriverMemory
				c.RabbitMQ = RabbitMQConfig{}
				c.Database = DatabaseConfig{}
			},
		},
		{
			name: "memory driver runs the worker inline",
			mutate: func(c *Config) {
				c.Storage.Driver = StorageDriverMemory
				c.Worker.Concurrency = 0
			},
			errString: "worker concurrency must be greater than 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validAPIConfig()
			tt.mutate(cfg)
			err := cfg.ValidateAPIConfig()

			if tt.errString != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateWorkerConfig(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		errString string
	}{
		{name: "valid config", mutate: func(c *Config) {}},
		{name: "memory driver", mutate: func(c *Config) { c.Storage.Driver = StorageDriverMemory }, errString: "requires the postgres storage driver"},
		{name: "zero concurrency", mutate: func(c *Config) { c.Worker.Concurrency = 0 }, errString: "worker concurrency must be greater than 0"},
		{name: "zero job timeout", mutate: func(c *Config) { c.Worker.JobTimeout = 0 }, errString: "worker job_timeout must be greater than 0"},
		{name: "zero shutdown timeout", mutate: func(c *Config) { c.Worker.ShutdownTimeout = 0 }, errString: "worker shutdown_timeout must be greater than 0"},
		{name: "missing artifact path", mutate: func(c *Config) { c.Artifacts.BasePath = "" }, errString: "artifacts base_path is required"},
		{name: "reconciler without interval", mutate: func(c *Config) { c.Reconciler.Interval = 0 }, errString: "reconciler interval"},
		{name: "reconciler disabled", mutate: func(c *Config) { c.Reconciler = ReconcilerConfig{} }},
		{name: "metrics port required", mutate: func(c *Config) { c.Metrics.Port = 0 }, errString: "invalid metrics port"},
		{name: "missing queue", mutate: func(c *Config) { c.RabbitMQ.Queue.Name = "" }, errString: "rabbitmq queue name is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validAPIConfig()
			tt.mutate(cfg)
			err := cfg.ValidateWorkerConfig()

			if tt.errString != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errString)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestLoad_ValidateIntegration(t *testing.T) {
	t.Run("load and validate valid config", func(t *testing.T) {
		cfg, err := Load("testdata/valid_config.yaml")
		require.NoError(t, err)
		require.NoError(t, cfg.ValidateAPIConfig())
	})

	t.Run("load config with invalid port", func(t *testing.T) {
		cfg, err := Load("testdata/invalid_port.yaml")
		require.NoError(t, err)

		err = cfg.ValidateAPIConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid server port")
	})

	t.Run("load config with missing database", func(t *testing.T) {
		cfg, err := Load("testdata/missing_database.yaml")
		require.NoError(t, err)

		err = cfg.ValidateAPIConfig()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database name is required")
	})
}
