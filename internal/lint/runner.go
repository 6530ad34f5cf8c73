package lint

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dontdude/ymlint/internal/domain"
	"github.com/dontdude/ymlint/internal/metrics"
)

// DefaultField is the form field the lint service reads the configuration from.
const DefaultField = "yml"

// Config wires a Runner to one lint endpoint.
type Config struct {
	Endpoint       string
	Field          string
	MaxAttempts    int
	RetryDelay     time.Duration
	RequestTimeout time.Duration
}

// Runner submits configurations to the lint endpoint in the background.
type Runner struct {
	endpoint  string
	attempter Attempter
	policy    RetryPolicy
}

// Check if Runner implements domain.Linter
var _ domain.Linter = (*Runner)(nil)

// NewRunner validates cfg and returns a Runner that POSTs over HTTP.
func NewRunner(cfg Config) (*Runner, error) {
	u, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid lint endpoint %q: %w", cfg.Endpoint, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid lint endpoint %q: scheme must be http or https", cfg.Endpoint)
	}
	if cfg.MaxAttempts < 1 {
		return nil, fmt.Errorf("max attempts must be at least 1, got %d", cfg.MaxAttempts)
	}
	if cfg.Field == "" {
		cfg.Field = DefaultField
	}

	attempter := NewHTTPAttempter(cfg.Endpoint, cfg.Field, cfg.RequestTimeout)
	return NewRunnerWithAttempter(cfg.Endpoint, attempter, RetryPolicy{
		MaxAttempts: cfg.MaxAttempts,
		Delay:       cfg.RetryDelay,
	}), nil
}

// NewRunnerWithAttempter builds a Runner around an arbitrary Attempter.
func NewRunnerWithAttempter(endpoint string, attempter Attempter, policy RetryPolicy) *Runner {
	return &Runner{
		endpoint:  endpoint,
		attempter: attempter,
		policy:    policy,
	}
}

// Endpoint returns the URL this runner submits to.
func (r *Runner) Endpoint() string {
	return r.endpoint
}

// Submit starts a run on its own goroutine and returns immediately.
// Cancelling ctx, or calling Run.Cancel, stops the run at the next attempt boundary.
func (r *Runner) Submit(ctx context.Context, sub domain.Submission) *Run {
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	runCtx, cancel := context.WithCancel(ctx)
	run := &Run{
		id:        sub.ID,
		cancel:    cancel,
		done:      make(chan struct{}),
		remaining: r.policy.MaxAttempts,
	}

	go func() {
		defer close(run.done)
		defer cancel()

		start := time.Now()
		err := r.policy.Do(runCtx, func(ctx context.Context, n int) error {
			run.begin()
			body, err := r.attempter.Attempt(ctx, sub.Text)
			if err != nil {
				metrics.IncreaseLintAttemptsMetric(metrics.AttemptFailed)
				slog.Warn("Lint attempt failed", "jobID", sub.ID, "attempt", n, "error", err)
				run.fail(err)
				return err
			}
			metrics.IncreaseLintAttemptsMetric(metrics.AttemptSucceeded)
			run.succeed(body)
			return nil
		})
		metrics.ObserveLintRunDuration(time.Since(start))
		run.finish(err)
		if err != nil {
			slog.Error("Lint run produced no result", "jobID", sub.ID, "attempts", run.Attempts(), "error", err)
		}
	}()

	return run
}

// Lint runs sub to completion and interprets the response.
func (r *Runner) Lint(ctx context.Context, sub domain.Submission) domain.Outcome {
	run := r.Submit(ctx, sub)
	<-run.Done()
	return r.Outcome(run)
}

// Outcome classifies a finished run. It must only be called after run.Done() is closed.
func (r *Runner) Outcome(run *Run) domain.Outcome {
	var outcome domain.Outcome
	if body, ok := run.Result(); ok {
		outcome = Interpret(body, r.endpoint)
	} else {
		outcome = domain.RunError(failureMessage(run))
	}
	metrics.IncreaseLintOutcomesMetric(string(outcome.Kind()))
	return outcome
}

func failureMessage(run *Run) string {
	err := run.Err()
	switch {
	case err == nil:
		return "lint run did not finish"
	case errors.Is(err, ErrRetriesExhausted) && run.LastError() != nil:
		return fmt.Sprintf("%v (gave up after %d attempts)", run.LastError(), run.Attempts())
	case errors.Is(err, context.DeadlineExceeded):
		return "lint run timed out"
	case errors.Is(err, context.Canceled):
		return "lint run cancelled"
	default:
		return err.Error()
	}
}

// Run is the state of one submission. All fields are guarded by mu and are
// safe to read from the polling goroutine.
type Run struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}

	mu        sync.Mutex
	remaining int
	attempts  int
	result    *string
	lastErr   error
	err       error
}

// ID returns the submission ID the run was started with.
func (r *Run) ID() string { return r.id }

// Done is closed once the run has either stored a result or given up.
func (r *Run) Done() <-chan struct{} { return r.done }

// Cancel stops the run at the next attempt boundary.
func (r *Run) Cancel() { r.cancel() }

// Result returns the response body, if one has been stored.
func (r *Run) Result() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.result == nil {
		return "", false
	}
	return *r.result, true
}

// Err returns why the run finished without a result. It is nil while the run is pending and after success.
// After exhaustion it wraps both ErrRetriesExhausted and the last attempt's error as
// "request error: <http error>".
func (r *Run) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// LastError returns the most recent failed attempt, formatted for display.
func (r *Run) LastError() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastErr
}

// Attempts returns how many submissions have been started.
func (r *Run) Attempts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempts
}

// Remaining returns how many failures the run can still absorb.
func (r *Run) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.remaining
}

func (r *Run) begin() {
	r.mu.Lock()
	r.attempts++
	r.mu.Unlock()
}

func (r *Run) fail(err error) {
	r.mu.Lock()
	r.lastErr = fmt.Errorf("request error: %w", err)
	r.remaining--
	r.mu.Unlock()
}

func (r *Run) succeed(body string) {
	r.mu.Lock()
	r.result = &body
	r.mu.Unlock()
}

func (r *Run) finish(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if errors.Is(err, ErrRetriesExhausted) && r.lastErr != nil {
		err = fmt.Errorf("%w: %w", ErrRetriesExhausted, r.lastErr)
	}
	r.err = err
}
