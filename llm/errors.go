package llm

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies gateway failures so callers can decide whether to retry.
type ErrorKind string

const (
	ErrRateLimited ErrorKind = "rate_limited"
	ErrTimeout     ErrorKind = "timeout"
	ErrServer      ErrorKind = "server_error"
	ErrAuth        ErrorKind = "auth_error"
	ErrNetwork     ErrorKind = "network_error"
	ErrUnknown     ErrorKind = "unknown"
)

// Error is the uniform error shape returned by the gateway.
// RetryAfter carries a server-suggested delay when the service provided one
// (Retry-After header or structured RetryInfo details); zero means no hint.
type Error struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	RetryAfter time.Duration
	err        error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("llm: %s: %s", e.Kind, e.Message)
	}
	if e.err != nil {
		return fmt.Sprintf("llm: %s: %v", e.Kind, e.err)
	}
	return fmt.Sprintf("llm: %s", e.Kind)
}

func (e *Error) Unwrap() error {
	return e.err
}

// Retryable reports whether the failure is worth another attempt.
// Only rate limits and timeouts qualify; auth and malformed-request errors
// will fail the same way every time.
func (e *Error) Retryable() bool {
	return e.Kind == ErrRateLimited || e.Kind == ErrTimeout
}

// NewError wraps err with a classification.
func NewError(kind ErrorKind, err error) *Error {
	return &Error{Kind: kind, err: err}
}

// AsError extracts an *Error from an error chain, or wraps unclassified
// errors as ErrUnknown so callers always see a uniform shape.
func AsError(err error) *Error {
	var ge *Error
	if errors.As(err, &ge) {
		return ge
	}
	return &Error{Kind: ErrUnknown, err: err}
}

// IsRetryable reports whether err is a retryable gateway error.
func IsRetryable(err error) bool {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Retryable()
	}
	return false
}

// RetryAfterHint returns the server-suggested retry delay, if any.
func RetryAfterHint(err error) (time.Duration, bool) {
	var ge *Error
	if errors.As(err, &ge) && ge.RetryAfter > 0 {
		return ge.RetryAfter, true
	}
	return 0, false
}

// Humanize translates a terminal gateway failure into a message fit for
// display. Technical detail stays in the run log.
func Humanize(err error) string {
	var ge *Error
	if !errors.As(err, &ge) {
		return "The request failed unexpectedly. Please try again."
	}
	switch ge.Kind {
	case ErrRateLimited:
		return "The model service is busy. Please retry shortly."
	case ErrTimeout:
		return "The model took too long to respond. Please retry."
	case ErrAuth:
		return "The configured API credential is invalid or expired."
	case ErrNetwork:
		return "Could not reach the model service. Check your connection."
	case ErrServer:
		return "The model service reported an internal error. Please retry later."
	default:
		return "The request failed unexpectedly. Please try again."
	}
}
