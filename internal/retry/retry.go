// Package retry is the retry policy shared by the fetch and translate stages.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var ErrExhausted = errors.New("retry attempts exhausted")

// ExhaustedError is returned once MaxAttempts calls have failed with retryable errors.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error { return e.Last }

func (e *ExhaustedError) Is(target error) bool { return target == ErrExhausted }

type Policy struct {
	// MaxAttempts is the total number of calls, including the first one.
	MaxAttempts int
	// Backoff returns the wait after the given failed attempt (1-based).
	Backoff func(attempt int) time.Duration
	// Retryable reports whether err is worth another attempt. Nil means every error is.
	Retryable func(err error) bool

	// Throttled errors wait ThrottleBackoff and retry without consuming an attempt.
	Throttled       func(err error) bool
	ThrottleBackoff func(wait int, err error) time.Duration
	// MaxThrottleWaits bounds throttle waits; 0 means only ctx bounds them.
	MaxThrottleWaits int

	OnRetry func(attempt int, err error, wait time.Duration)
	// Sleep is replaced in tests.
	Sleep func(ctx context.Context, d time.Duration) error
}

func Fixed(d time.Duration) func(int) time.Duration {
	return func(int) time.Duration { return d }
}

// Linear waits attempt × base.
func Linear(base time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration { return time.Duration(attempt) * base }
}

func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do calls fn until it succeeds, fails with a non-retryable error, the
// attempt budget is spent or ctx is done.
func (p Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	attempts := max(1, p.MaxAttempts)
	sleep := p.Sleep
	if sleep == nil {
		sleep = SleepContext
	}

	attempt := 0
	waits := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}

		if p.Throttled != nil && p.Throttled(err) &&
			(p.MaxThrottleWaits == 0 || waits < p.MaxThrottleWaits) {
			waits++
			var d time.Duration
			if p.ThrottleBackoff != nil {
				d = p.ThrottleBackoff(waits, err)
			}
			if p.OnRetry != nil {
				p.OnRetry(attempt, err, d)
			}
			if serr := sleep(ctx, d); serr != nil {
				return serr
			}
			continue
		}

		attempt++
		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
		if attempt >= attempts {
			return &ExhaustedError{Attempts: attempt, Last: err}
		}

		var d time.Duration
		if p.Backoff != nil {
			d = p.Backoff(attempt)
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, d)
		}
		if serr := sleep(ctx, d); serr != nil {
			return serr
		}
	}
}
