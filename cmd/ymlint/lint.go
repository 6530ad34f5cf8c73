package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dontdude/ymlint/internal/domain"
	"github.com/dontdude/ymlint/internal/lint"
	"github.com/dontdude/ymlint/internal/terminal"
)

var lintOpts struct {
	endpoint     string
	attempts     int
	retryDelay   time.Duration
	timeout      time.Duration
	pollInterval time.Duration
	maxWait      time.Duration
	force        bool
}

var lintCmd = &cobra.Command{
	Use:   "lint FILE",
	Short: "Lint a CI config file and print the result",
	Args:  cobra.ExactArgs(1),
	RunE:  runLint,
}

func init() {
	flags := lintCmd.Flags()
	flags.StringVar(&lintOpts.endpoint, "endpoint", "", "Lint endpoint URL (default $LINT_ENDPOINT)")
	flags.IntVar(&lintOpts.attempts, "attempts", 0, "Attempts before giving up (default $LINT_MAX_ATTEMPTS)")
	flags.DurationVar(&lintOpts.retryDelay, "retry-delay", 0, "Wait between attempts (default $LINT_RETRY_DELAY)")
	flags.DurationVar(&lintOpts.timeout, "timeout", 0, "Per-request timeout (default $LINT_REQUEST_TIMEOUT)")
	flags.DurationVar(&lintOpts.pollInterval, "poll-interval", 0, "Progress refresh interval (default $LINT_POLL_INTERVAL)")
	flags.DurationVar(&lintOpts.maxWait, "max-wait", 0, "Give up after this long (default $LINT_MAX_WAIT)")
	flags.BoolVar(&lintOpts.force, "force", false, "Lint even if the file name is not on the allow-list")
}

// applyLintFlags overrides the environment configuration with explicitly set flags.
func applyLintFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("endpoint") {
		cfg.Lint.Endpoint = lintOpts.endpoint
	}
	if flags.Changed("attempts") {
		cfg.Lint.MaxAttempts = lintOpts.attempts
	}
	if flags.Changed("retry-delay") {
		cfg.Lint.RetryDelay = lintOpts.retryDelay
	}
	if flags.Changed("timeout") {
		cfg.Lint.RequestTimeout = lintOpts.timeout
	}
	if flags.Changed("poll-interval") {
		cfg.Lint.PollInterval = lintOpts.pollInterval
	}
	if flags.Changed("max-wait") {
		cfg.Lint.MaxWait = lintOpts.maxWait
	}
}

func runLint(cmd *cobra.Command, args []string) error {
	applyLintFlags(cmd)

	path := args[0]
	if !lintOpts.force && !lint.NewEligibility(cfg.Lint.Filenames...).Eligible(path) {
		return fmt.Errorf("%s: %w (allowed: %v)", path, lint.ErrNotEligible, cfg.Lint.Filenames)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	text := string(data)

	runner, err := lint.NewRunner(cfg.Lint.Runner())
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	out := cmd.OutOrStdout()
	renderer := lint.NewRenderer(runner.Endpoint(), text,
		terminal.NewPanel(out),
		terminal.NewStatusLine(out, isLive(out)),
		terminal.NewHighlighter(out, text),
	)
	renderer.Begin()

	run := runner.Submit(ctx, domain.Submission{Filename: filepath.Base(path), Text: text})
	outcome := lint.NewPoller(runner, renderer, cfg.Lint.PollInterval, cfg.Lint.MaxWait).Watch(ctx, run)
	return exitFor(outcome)
}

func isLive(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && terminal.IsTerminal(f)
}
