// Package retry wraps gateway calls with bounded exponential backoff.
// Server-suggested delays take precedence over local backoff, and retries
// are attempted only for failures the gateway classified as retryable.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/mosaicsci/inquiry/llm"
)

// LogFunc receives one human-readable line per retry attempt.
// source names the agent or subsystem the retry belongs to.
type LogFunc func(source, message string)

// Options configures a retry loop.
type Options struct {
	// MaxAttempts is the total attempt budget, including the first call.
	MaxAttempts int

	// BaseDelay is the initial backoff duration. It doubles on each retry
	// that had no server-suggested delay.
	BaseDelay time.Duration

	// MaxDelay caps the locally computed backoff.
	MaxDelay time.Duration

	// RateLimitSchedule, when set, is a fixed escalating sleep schedule
	// used for rate-limit errors instead of exponential backoff. The last
	// entry repeats if there are more retries than entries.
	RateLimitSchedule []time.Duration

	// Source names the caller in log lines (e.g., "writer", "editor").
	Source string

	// OnLog receives one line per retry. nil disables retry logging.
	OnLog LogFunc
}

// DefaultOptions is the standard policy: 5 attempts, 2s base delay,
// doubling only when the server gave no delay hint.
func DefaultOptions() Options {
	return Options{
		MaxAttempts: 5,
		BaseDelay:   2 * time.Second,
		MaxDelay:    2 * time.Minute,
	}
}

// PatientOptions is the policy for long-running review and analysis steps:
// rate limits sleep on a fixed 30s/60s/120s schedule, reflecting that these
// calls are slow and bursty on the service side.
func PatientOptions() Options {
	return Options{
		MaxAttempts:       4,
		BaseDelay:         2 * time.Second,
		MaxDelay:          2 * time.Minute,
		RateLimitSchedule: []time.Duration{30 * time.Second, 60 * time.Second, 120 * time.Second},
	}
}

// FailureReason explains which policy ended a retry loop.
type FailureReason string

const (
	// ReasonRetriesExhausted means every attempt in the budget failed
	// with a retryable error.
	ReasonRetriesExhausted FailureReason = "retries_exhausted"

	// ReasonNonRetryable means the last error was not worth retrying.
	ReasonNonRetryable FailureReason = "non_retryable"
)

// TerminalError is the final failure of a retry loop, wrapping the last
// underlying error.
type TerminalError struct {
	Reason   FailureReason
	Attempts int
	err      error
}

func (e *TerminalError) Error() string {
	return fmt.Sprintf("retry: %s after %d attempt(s): %v", e.Reason, e.Attempts, e.err)
}

func (e *TerminalError) Unwrap() error {
	return e.err
}

// sleep waits for d or until ctx is done. Overridden in tests.
var sleep = func(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Do runs fn with the configured retry policy and returns its result.
// Context cancellation passes through unwrapped so callers can tell a stop
// request apart from a terminal failure.
func Do[T any](ctx context.Context, opts Options, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	var lastErr error

	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}

	backoff := opts.BaseDelay
	scheduleIdx := 0

	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		if !llm.IsRetryable(err) {
			return zero, &TerminalError{Reason: ReasonNonRetryable, Attempts: attempt, err: err}
		}
		if attempt == opts.MaxAttempts {
			break
		}

		delay := backoff
		switch hint, ok := llm.RetryAfterHint(err); {
		case ok:
			// A server hint is trusted over local backoff state and does
			// not inflate future locally computed delays.
			delay = hint
		case llm.AsError(err).Kind == llm.ErrRateLimited && len(opts.RateLimitSchedule) > 0:
			idx := scheduleIdx
			if idx >= len(opts.RateLimitSchedule) {
				idx = len(opts.RateLimitSchedule) - 1
			}
			delay = opts.RateLimitSchedule[idx]
			scheduleIdx++
		default:
			backoff *= 2
			if opts.MaxDelay > 0 && backoff > opts.MaxDelay {
				backoff = opts.MaxDelay
			}
		}

		if opts.OnLog != nil {
			opts.OnLog(opts.Source, fmt.Sprintf(
				"attempt %d/%d failed (%s), retrying in %s",
				attempt, opts.MaxAttempts, llm.AsError(err).Kind, delay))
		}

		if err := sleep(ctx, delay); err != nil {
			return zero, err
		}
	}

	return zero, &TerminalError{Reason: ReasonRetriesExhausted, Attempts: opts.MaxAttempts, err: lastErr}
}
