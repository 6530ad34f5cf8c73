package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dontdude/ymlint/internal/config"
	"github.com/dontdude/ymlint/internal/domain"
)

// Exit codes.
const (
	exitLintFailed = 1
	exitErrored    = 2
)

// exitError carries a process exit code for an outcome that has already been reported.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// exitFor maps an outcome onto the process exit status.
func exitFor(outcome domain.Outcome) error {
	switch outcome.Kind() {
	case domain.OutcomeSuccess:
		return nil
	case domain.OutcomeFailure, domain.OutcomeUnparseable:
		return &exitError{code: exitLintFailed}
	default:
		return &exitError{code: exitErrored}
	}
}

var (
	cfg     *config.Config
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:           "ymlint",
	Short:         "Validate .travis.yml files against a remote lint service",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.New()
		if err != nil {
			return fmt.Errorf("reading configuration: %w", err)
		}

		level := cfg.Level()
		if verbose {
			level = slog.LevelDebug
		}
		// Logs go to stderr so they never interleave with the report.
		logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lintCmd)
	rootCmd.AddCommand(enqueueCmd)

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}
