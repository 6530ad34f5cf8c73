package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, "http://lint.travis-ci.org/", cfg.Lint.Endpoint)
	assert.Equal(t, "yml", cfg.Lint.Field)
	assert.Equal(t, 2, cfg.Lint.MaxAttempts)
	assert.Zero(t, cfg.Lint.RetryDelay)
	assert.Equal(t, 100*time.Millisecond, cfg.Lint.PollInterval)
	assert.Equal(t, 60*time.Second, cfg.Lint.MaxWait)
	assert.Equal(t, []string{".travis.yml"}, cfg.Lint.Filenames)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, 4, cfg.Worker.Concurrency)
	assert.Empty(t, cfg.Docker.LintImage)
	assert.Equal(t, slog.LevelInfo, cfg.Level())
}

func TestNewFromEnvironment(t *testing.T) {
	t.Setenv("LINT_ENDPOINT", "http://127.0.0.1:9999/")
	t.Setenv("LINT_MAX_ATTEMPTS", "3")
	t.Setenv("LINT_RETRY_DELAY", "250ms")
	t.Setenv("LINT_FILENAMES", ".travis.yml,.travis.yaml")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:9999/", cfg.Lint.Endpoint)
	assert.Equal(t, 3, cfg.Lint.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Lint.RetryDelay)
	assert.Equal(t, []string{".travis.yml", ".travis.yaml"}, cfg.Lint.Filenames)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, slog.LevelDebug, cfg.Level())

	runner := cfg.Lint.Runner()
	assert.Equal(t, cfg.Lint.Endpoint, runner.Endpoint)
	assert.Equal(t, 3, runner.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, runner.RetryDelay)
}

func TestNewRejectsInvalidValues(t *testing.T) {
	t.Setenv("LINT_MAX_ATTEMPTS", "0")
	_, err := New()
	assert.Error(t, err)
}

func TestNewRejectsMalformedDuration(t *testing.T) {
	t.Setenv("LINT_POLL_INTERVAL", "soon")
	_, err := New()
	assert.Error(t, err)
}
