package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	App      App      `yaml:"app"`
	HTTP     HTTP     `yaml:"http"`
	Log      Log      `yaml:"log"`
	Postgres Postgres `yaml:"postgres"`
	Redis    Redis    `yaml:"redis"`
	Kafka    Kafka    `yaml:"kafka"`
	Outbox   Outbox   `yaml:"outbox"`
}

type App struct {
	Name    string `yaml:"name" env:"APP_NAME" env-default:"interhubdev"`
	Version string `yaml:"version" env:"APP_VERSION" env-default:"1.0.0"`
}

type HTTP struct {
	Port        string `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
	MetricsPort string `yaml:"metrics_port" env:"METRICS_PORT" env-default:"9093"`
}

type Log struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

type Postgres struct {
	Host     string `yaml:"host" env:"POSTGRES_HOST" env-default:"localhost"`
	Port     string `yaml:"port" env:"POSTGRES_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"POSTGRES_USER" env-default:"user"`
	Password string `yaml:"password" env:"POSTGRES_PASSWORD" env-default:"password"`
	DBName   string `yaml:"dbname" env:"POSTGRES_DB" env-default:"interhubdev"`
	SSLMode  string `yaml:"sslmode" env:"POSTGRES_SSLMODE" env-default:"disable"`
	MaxConns int32  `yaml:"max_conns" env:"POSTGRES_MAX_CONNS" env-default:"10"`
}

type Redis struct {
	Addr     string        `yaml:"addr" env:"REDIS_ADDR" env-default:"localhost:6379"`
	CacheTTL time.Duration `yaml:"cache_ttl" env:"REDIS_CACHE_TTL" env-default:"5s"`
}

// Kafka is optional; with no brokers the relay stays off.
type Kafka struct {
	Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS"`
	Topic   string   `yaml:"topic" env:"KAFKA_TOPIC" env-default:"interhubdev-events"`
}

type Outbox struct {
	Enabled             bool          `yaml:"enabled" env:"OUTBOX_ENABLED" env-default:"true"`
	BatchSize           int           `yaml:"batch_size" env:"OUTBOX_BATCH_SIZE" env-default:"50"`
	MaxAttempts         int           `yaml:"max_attempts" env:"OUTBOX_MAX_ATTEMPTS" env-default:"10"`
	BaseRetryDelay      time.Duration `yaml:"base_retry_delay" env:"OUTBOX_BASE_RETRY_DELAY" env-default:"5s"`
	MaxRetryDelay       time.Duration `yaml:"max_retry_delay" env:"OUTBOX_MAX_RETRY_DELAY" env-default:"10m"`
	StaleLockTimeout    time.Duration `yaml:"stale_lock_timeout" env:"OUTBOX_STALE_LOCK_TIMEOUT" env-default:"5m"`
	TickInterval        time.Duration `yaml:"tick_interval" env:"OUTBOX_TICK_INTERVAL" env-default:"2s"`
	WorkerID            string        `yaml:"worker_id" env:"OUTBOX_WORKER_ID"`
	DispatchConcurrency int           `yaml:"dispatch_concurrency" env:"OUTBOX_DISPATCH_CONCURRENCY" env-default:"1"`
	RelayEventTypes     []string      `yaml:"relay_event_types" env:"OUTBOX_RELAY_EVENT_TYPES"`
}

// RelayEnabled reports whether events should be forwarded to Kafka.
func (c *Config) RelayEnabled() bool {
	return len(c.Kafka.Brokers) > 0 && len(c.Outbox.RelayEventTypes) > 0
}

func New() (*Config, error) {
	// A local .env is optional.
	_ = godotenv.Load()

	cfg := &Config{}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		// fallback to env vars if file not found
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("config error: %w", err)
		}
	}

	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) normalize() {
	c.Kafka.Brokers = compact(c.Kafka.Brokers)
	c.Outbox.RelayEventTypes = compact(c.Outbox.RelayEventTypes)

	if strings.TrimSpace(c.Outbox.WorkerID) == "" {
		c.Outbox.WorkerID = defaultWorkerID()
	}
}

// Validate rejects outbox settings the processor cannot run with.
func (c *Config) Validate() error {
	o := c.Outbox
	var errs []error

	if o.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("outbox batch size must be positive, got %d", o.BatchSize))
	}
	if o.MaxAttempts <= 0 {
		errs = append(errs, fmt.Errorf("outbox max attempts must be positive, got %d", o.MaxAttempts))
	}
	if o.BaseRetryDelay <= 0 {
		errs = append(errs, fmt.Errorf("outbox base retry delay must be positive, got %s", o.BaseRetryDelay))
	}
	if o.MaxRetryDelay < o.BaseRetryDelay {
		errs = append(errs, fmt.Errorf("outbox max retry delay %s is below base retry delay %s", o.MaxRetryDelay, o.BaseRetryDelay))
	}
	if o.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("outbox tick interval must be positive, got %s", o.TickInterval))
	}
	if o.StaleLockTimeout <= o.TickInterval {
		errs = append(errs, fmt.Errorf("outbox stale lock timeout %s must exceed tick interval %s", o.StaleLockTimeout, o.TickInterval))
	}
	if o.DispatchConcurrency <= 0 {
		errs = append(errs, fmt.Errorf("outbox dispatch concurrency must be positive, got %d", o.DispatchConcurrency))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func defaultWorkerID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}

func compact(values []string) []string {
	out := values[:0]
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
