package source

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrRetriesExhausted is returned when every attempt allowed by the policy
// failed with a transient error.
var ErrRetriesExhausted = errors.New("retries exhausted")

// transientError marks an error as retryable. Anything not wrapped is
// terminal and fails the run immediately.
type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

// Transient wraps err as retryable.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient reports whether err (or anything it wraps) is retryable.
func IsTransient(err error) bool {
	var t *transientError
	return errors.As(err, &t)
}

// Sleeper abstracts the backoff wait so tests can observe delays without
// actually waiting.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

type realSleeper struct{}

func (realSleeper) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	select {
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RetryPolicy is a fixed schedule of inter-attempt delays. An empty schedule
// means a single attempt. Delays must be strictly increasing.
type RetryPolicy struct {
	Delays []time.Duration
}

// DefaultRetryPolicy allows 1 initial attempt plus 3 retries, waiting
// 10s, 30s and 90s between attempts.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Delays: []time.Duration{10 * time.Second, 30 * time.Second, 90 * time.Second}}
}

// MaxAttempts returns the total number of attempts the policy allows.
func (p RetryPolicy) MaxAttempts() int { return len(p.Delays) + 1 }

type retryState int

const (
	stateAttempting retryState = iota
	stateBackoff
	stateSucceeded
	stateFailed
)

// Run drives attempt through the retry state machine
// (Attempting → Backoff → Attempting → ... → Succeeded | Failed).
// Terminal errors abort immediately; transient errors consume a delay from
// the schedule until it is exhausted. Context cancellation aborts between
// attempts and during backoff.
func (p RetryPolicy) Run(ctx context.Context, sleep Sleeper, attempt func(n int) error) error {
	if sleep == nil {
		sleep = realSleeper{}
	}

	st := stateAttempting
	n := 0
	var lastErr error

	for {
		switch st {
		case stateAttempting:
			if err := ctx.Err(); err != nil {
				return err
			}
			err := attempt(n)
			if err == nil {
				st = stateSucceeded
				break
			}
			lastErr = err
			if !IsTransient(err) || n >= len(p.Delays) {
				st = stateFailed
				break
			}
			st = stateBackoff

		case stateBackoff:
			if err := sleep.Sleep(ctx, p.Delays[n]); err != nil {
				return err
			}
			n++
			st = stateAttempting

		case stateSucceeded:
			return nil

		case stateFailed:
			if IsTransient(lastErr) {
				return fmt.Errorf("%w after %d attempts: %v", ErrRetriesExhausted, n+1, lastErr)
			}
			return lastErr
		}
	}
}
