package lint

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"
)

// ErrRetriesExhausted is returned once every allowed attempt has failed with a transient error.
var ErrRetriesExhausted = errors.New("lint retries exhausted")

// DefaultMaxAttempts covers a single transient blip without hammering an endpoint that is down.
const DefaultMaxAttempts = 2

// RetryPolicy bounds how many times an attempt is made and how long to wait between them.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultRetryPolicy makes two attempts back to back.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: DefaultMaxAttempts}
}

// IsTransient reports whether err is a network or HTTP status failure that a retry may clear.
func IsTransient(err error) bool {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return true
	}
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}

// Do calls attempt until it succeeds, returns a non-transient error, or the bound is reached.
// Cancellation of ctx is checked before every attempt and while waiting between attempts.
func (p RetryPolicy) Do(ctx context.Context, attempt func(ctx context.Context, n int) error) error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("retry policy needs at least one attempt, got %d", p.MaxAttempts)
	}

	var last error
	for n := 1; n <= p.MaxAttempts; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := attempt(ctx, n)
		if err == nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if !IsTransient(err) {
			return err
		}
		last = err

		if n < p.MaxAttempts && p.Delay > 0 {
			timer := time.NewTimer(p.Delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
	return errors.Join(ErrRetriesExhausted, last)
}
