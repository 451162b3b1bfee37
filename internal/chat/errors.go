package chat

import (
	"errors"
	"fmt"
	"time"
)

// Common errors returned by the chat client. Each error condition is tagged
// at the single point where it is first detected; callers discriminate with
// errors.Is rather than re-classifying downstream.
var (
	// ErrEmptyMessage is returned when the user message trims to empty.
	// No network call is attempted.
	ErrEmptyMessage = errors.New("user message cannot be empty")

	// ErrRateLimited is returned when the client's local admission guard
	// denies the call. No network call is attempted.
	ErrRateLimited = errors.New("chat client rate limit reached")

	// ErrNetwork is returned on transport-level failures. This is the only
	// retryable error.
	ErrNetwork = errors.New("failed to reach chat completion endpoint")

	// ErrUpstreamRateLimited is returned when the upstream responds with a
	// rate-limit status. Not retried: the upstream condition will not clear
	// within the local backoff horizon.
	ErrUpstreamRateLimited = errors.New("upstream rate limit exceeded")

	// ErrUpstream is returned for any other non-2xx upstream status.
	ErrUpstream = errors.New("upstream returned an error status")

	// ErrInvalidResponse is returned when the response body lacks the
	// expected choices/message/content shape.
	ErrInvalidResponse = errors.New("invalid response format from chat completion endpoint")
)

// RateLimitError is returned when the local admission guard denies a call.
// RetryAfter carries the time until the limiter window opens again, for
// caller display.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf(
		"%v: wait %d seconds",
		ErrRateLimited,
		int(e.RetryAfter.Round(time.Second).Seconds()),
	)
}

// Unwrap supports errors.Is(err, ErrRateLimited).
func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

// UpstreamError is returned for non-2xx upstream responses. StatusCode holds
// the HTTP status the upstream returned.
type UpstreamError struct {
	StatusCode int
}

// Code returns a stable machine-readable code, e.g. "HTTP_503".
func (e *UpstreamError) Code() string {
	return fmt.Sprintf("HTTP_%d", e.StatusCode)
}

func (e *UpstreamError) Error() string {
	if e.StatusCode == 429 {
		return fmt.Sprintf("%v (%s)", ErrUpstreamRateLimited, e.Code())
	}
	return fmt.Sprintf("%v (%s)", ErrUpstream, e.Code())
}

// Unwrap maps rate-limit statuses to ErrUpstreamRateLimited and everything
// else to ErrUpstream.
func (e *UpstreamError) Unwrap() error {
	if e.StatusCode == 429 {
		return ErrUpstreamRateLimited
	}
	return ErrUpstream
}
