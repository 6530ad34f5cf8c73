package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dontdude/ymlint/internal/config"
	"github.com/dontdude/ymlint/internal/lint"
	"github.com/dontdude/ymlint/internal/metrics"
	"github.com/dontdude/ymlint/internal/platform/docker"
	"github.com/dontdude/ymlint/internal/platform/queue"
	"github.com/dontdude/ymlint/internal/worker"
)

func main() {
	// 1. Load configuration
	cfg, err := config.New()
	if err != nil {
		slog.Error("Reading configuration failed", "error", err)
		os.Exit(1)
	}

	// 2. Initialize Logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()}))
	slog.SetDefault(logger)
	slog.Info("Starting ymlint worker...")

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// 3. Optionally run our own lint endpoint in Docker
	// This will panic if Docker is not available (Fail-Fast)
	if cfg.Docker.LintImage != "" {
		dockerClient := docker.NewClient(cfg.Docker.LintImage, cfg.Docker.ContainerPort)
		startCtx, startCancel := context.WithTimeout(ctx, 2*time.Minute)
		endpoint, err := dockerClient.StartEndpoint(startCtx)
		startCancel()
		if err != nil {
			slog.Error("Failed to start lint endpoint", "error", err)
			os.Exit(1)
		}
		defer func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer stopCancel()
			if err := dockerClient.StopEndpoint(stopCtx, endpoint); err != nil {
				slog.Error("Failed to stop lint endpoint", "error", err)
			}
		}()
		cfg.Lint.Endpoint = endpoint.URL
	}

	// 4. Build the runner shared by all workers
	runner, err := lint.NewRunner(cfg.Lint.Runner())
	if err != nil {
		slog.Error("Invalid lint configuration", "error", err)
		os.Exit(1)
	}
	slog.Info("Lint runner initialized", "endpoint", runner.Endpoint(), "attempts", cfg.Lint.MaxAttempts)

	// 5. Initialize Redis Queue (Consumer Mode)
	redisQ := queue.NewRedisQueue(cfg.Redis.Addr, cfg.Redis.Stream, cfg.Redis.Group, cfg.Redis.ResultsChannel)
	defer redisQ.Close()

	go redisQ.StartRecoveryRoutine(ctx, cfg.Redis.RecoveryInterval, cfg.Redis.RecoveryMinIdle, cfg.Redis.MaxDeliveries)

	// 6. Metrics
	metricsServer := &http.Server{Addr: cfg.Worker.MetricsAddress, Handler: metrics.Handler(), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server failed", "error", err)
		}
	}()
	defer metricsServer.Close()

	// 7. Consume jobs
	jobs, err := redisQ.Subscribe(ctx)
	if err != nil {
		slog.Error("Failed to subscribe to jobs", "error", err)
		return
	}

	pool := worker.NewPool(cfg.Worker.Concurrency, runner, redisQ, cfg.Lint.MaxWait)
	pool.Start(ctx)
	pool.Consume(jobs)

	// Subscribe closes its channel once ctx is cancelled.
	pool.Stop()
	slog.Info("Worker shut down")
}
