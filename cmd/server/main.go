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

	"github.com/dontdude/ymlint/internal/api"
	"github.com/dontdude/ymlint/internal/config"
	"github.com/dontdude/ymlint/internal/lint"
	"github.com/dontdude/ymlint/internal/platform/queue"
	"github.com/dontdude/ymlint/internal/platform/web"
)

func main() {
	// 1. Load configuration
	cfg, err := config.New()
	if err != nil {
		slog.Error("Reading configuration failed", "error", err)
		os.Exit(1)
	}

	// 2. Initialize logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.Level()}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// 3. Initialize Redis Queue (as a dependency)
	redisQ := queue.NewRedisQueue(cfg.Redis.Addr, cfg.Redis.Stream, cfg.Redis.Group, cfg.Redis.ResultsChannel)
	defer redisQ.Close()

	// 4. Start result broadcaster (Background goroutine)
	results, err := redisQ.SubscribeResults(ctx)
	if err != nil {
		slog.Error("Failed to subscribe to results", "error", err)
		os.Exit(1)
	}
	hub := web.NewHub()
	go hub.Run(ctx, results)

	// 5. Setup Rate Limiter
	limiter := web.NewRateLimiter(cfg.Server.RateLimit, cfg.Server.RateBurst)
	go limiter.Cleanup(ctx.Done())

	// 6. Register Handlers
	srv := api.NewServer(redisQ, hub, limiter, lint.NewEligibility(cfg.Lint.Filenames...), cfg.Server.MaxBody)
	httpServer := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)
	}()

	slog.Info("API Server starting", "address", cfg.Server.Address)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("API Server stopped")
}
