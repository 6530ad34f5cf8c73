package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/dontdude/ymlint/internal/lint"
)

type Config struct {
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Lint     LintConfig
	Redis    RedisConfig
	Server   ServerConfig
	Worker   WorkerConfig
	Docker   DockerConfig
}

type LintConfig struct {
	Endpoint       string        `envconfig:"LINT_ENDPOINT" default:"http://lint.travis-ci.org/"`
	Field          string        `envconfig:"LINT_FIELD" default:"yml"`
	MaxAttempts    int           `envconfig:"LINT_MAX_ATTEMPTS" default:"2"`
	RetryDelay     time.Duration `envconfig:"LINT_RETRY_DELAY" default:"0s"`
	RequestTimeout time.Duration `envconfig:"LINT_REQUEST_TIMEOUT" default:"30s"`
	PollInterval   time.Duration `envconfig:"LINT_POLL_INTERVAL" default:"100ms"`
	MaxWait        time.Duration `envconfig:"LINT_MAX_WAIT" default:"60s"`
	Filenames      []string      `envconfig:"LINT_FILENAMES" default:".travis.yml"`
}

type RedisConfig struct {
	Addr             string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Stream           string        `envconfig:"REDIS_STREAM" default:"ymlint:jobs"`
	Group            string        `envconfig:"REDIS_GROUP" default:"ymlint:workers"`
	ResultsChannel   string        `envconfig:"REDIS_RESULTS_CHANNEL" default:"ymlint:results"`
	RecoveryInterval time.Duration `envconfig:"REDIS_RECOVERY_INTERVAL" default:"30s"`
	RecoveryMinIdle  time.Duration `envconfig:"REDIS_RECOVERY_MIN_IDLE" default:"2m"`
	MaxDeliveries    int64         `envconfig:"REDIS_MAX_DELIVERIES" default:"2"`
}

type ServerConfig struct {
	Address   string  `envconfig:"SERVER_ADDRESS" default:":8080"`
	BaseURL   string  `envconfig:"SERVER_BASE_URL" default:"http://localhost:8080"`
	RateLimit float64 `envconfig:"SERVER_RATE_LIMIT" default:"0.5"`
	RateBurst int     `envconfig:"SERVER_RATE_BURST" default:"5"`
	MaxBody   int64   `envconfig:"SERVER_MAX_BODY_BYTES" default:"1048576"`
}

type WorkerConfig struct {
	Concurrency    int    `envconfig:"WORKER_CONCURRENCY" default:"4"`
	MetricsAddress string `envconfig:"WORKER_METRICS_ADDRESS" default:":9090"`
}

type DockerConfig struct {
	LintImage     string `envconfig:"DOCKER_LINT_IMAGE" default:""`
	ContainerPort string `envconfig:"DOCKER_LINT_PORT" default:"80/tcp"`
}

// New reads the configuration from the environment, applying defaults.
func New() (*Config, error) {
	cfg := new(Config)
	if err := envconfig.Process("", cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values no component can run with.
func (c *Config) Validate() error {
	if c.Lint.MaxAttempts < 1 {
		return fmt.Errorf("LINT_MAX_ATTEMPTS must be at least 1, got %d", c.Lint.MaxAttempts)
	}
	if c.Lint.PollInterval <= 0 {
		return fmt.Errorf("LINT_POLL_INTERVAL must be positive, got %s", c.Lint.PollInterval)
	}
	if c.Worker.Concurrency < 1 {
		return fmt.Errorf("WORKER_CONCURRENCY must be at least 1, got %d", c.Worker.Concurrency)
	}
	return nil
}

// Runner returns the lint.Config the runners should be built with.
func (c LintConfig) Runner() lint.Config {
	return lint.Config{
		Endpoint:       c.Endpoint,
		Field:          c.Field,
		MaxAttempts:    c.MaxAttempts,
		RetryDelay:     c.RetryDelay,
		RequestTimeout: c.RequestTimeout,
	}
}

// Level maps LOG_LEVEL onto a slog level, defaulting to info.
func (c *Config) Level() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
