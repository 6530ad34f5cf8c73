package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/dontdude/ymlint/internal/api"
	"github.com/dontdude/ymlint/internal/domain"
	"github.com/dontdude/ymlint/internal/lint"
	"github.com/dontdude/ymlint/internal/platform/queue"
	"github.com/dontdude/ymlint/internal/terminal"
)

var enqueueOpts struct {
	follow bool
	server string
	force  bool
}

var enqueueCmd = &cobra.Command{
	Use:   "enqueue FILE",
	Short: "Queue a CI config file for the worker fleet",
	Args:  cobra.ExactArgs(1),
	RunE:  runEnqueue,
}

func init() {
	flags := enqueueCmd.Flags()
	flags.BoolVarP(&enqueueOpts.follow, "follow", "f", false, "Wait for the result and print it")
	flags.StringVar(&enqueueOpts.server, "server", "", "API server streaming results (default $SERVER_BASE_URL)")
	flags.BoolVar(&enqueueOpts.force, "force", false, "Queue even if the file name is not on the allow-list")
}

func runEnqueue(cmd *cobra.Command, args []string) error {
	path := args[0]
	if !enqueueOpts.force && !lint.NewEligibility(cfg.Lint.Filenames...).Eligible(path) {
		return fmt.Errorf("%s: %w (allowed: %v)", path, lint.ErrNotEligible, cfg.Lint.Filenames)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	server := cfg.Server.BaseURL
	if cmd.Flags().Changed("server") {
		server = enqueueOpts.server
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	redisQ := queue.NewRedisQueue(cfg.Redis.Addr, cfg.Redis.Stream, cfg.Redis.Group, cfg.Redis.ResultsChannel)
	defer redisQ.Close()

	job := domain.Job{
		ID:       uuid.New().String(),
		Filename: filepath.Base(path),
		YML:      string(data),
	}

	// The server holds a result until its client connects, so the dial may race the publish.
	var results <-chan followResult
	if enqueueOpts.follow {
		results = follow(ctx, server, job.ID)
	}

	slog.Info("Publishing job", "jobID", job.ID)
	if err := redisQ.Publish(ctx, job); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !enqueueOpts.follow {
		fmt.Fprintln(out, job.ID)
		return nil
	}

	text := job.YML
	renderer := lint.NewRenderer(cfg.Lint.Endpoint, text,
		terminal.NewPanel(out),
		terminal.NewStatusLine(out, isLive(out)),
		terminal.NewHighlighter(out, text),
	)
	renderer.Begin()

	outcome := waitForResult(ctx, renderer, results, cfg.Lint.PollInterval, cfg.Lint.MaxWait)
	renderer.Render(outcome)
	return exitFor(outcome)
}

type followResult struct {
	result domain.JobResult
	err    error
}

func follow(ctx context.Context, server, jobID string) <-chan followResult {
	ch := make(chan followResult, 1)
	go func() {
		result, err := api.FollowResult(ctx, server, jobID)
		ch <- followResult{result: result, err: err}
	}()
	return ch
}

// waitForResult animates the progress indicator until the streamed result arrives.
func waitForResult(ctx context.Context, renderer *lint.Renderer, results <-chan followResult, interval, maxWait time.Duration) domain.Outcome {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var deadline <-chan time.Time
	if maxWait > 0 {
		timer := time.NewTimer(maxWait)
		defer timer.Stop()
		deadline = timer.C
	}

	var indicator lint.Indicator
	for {
		select {
		case r := <-results:
			if r.err != nil {
				return domain.RunError(r.err.Error())
			}
			outcome, err := r.result.Outcome()
			if err != nil {
				return domain.RunError(err.Error())
			}
			return outcome
		case <-ctx.Done():
			return domain.RunError("lint cancelled")
		case <-deadline:
			return domain.RunError(fmt.Sprintf("no result within %s", maxWait))
		case <-ticker.C:
			renderer.Progress(indicator.Next())
		}
	}
}
