package generation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tenxcards/cards-api/internal/chat"
)

// Stable machine-readable error codes surfaced to callers and written to the
// generations_error_logs audit table.
const (
	CodeInvalidInput          = "INVALID_INPUT"
	CodeInvalidSourceText     = "INVALID_SOURCE_TEXT"
	CodeRateLimited           = "RATE_LIMITED"
	CodeRateLimitExceeded     = "RATE_LIMIT_EXCEEDED"
	CodeRateLimitCheck        = "RATE_LIMIT_CHECK_ERROR"
	CodeNetwork               = "NETWORK_ERROR"
	CodeUpstreamRateLimited   = "UPSTREAM_RATE_LIMITED"
	CodeInvalidResponseFormat = "INVALID_RESPONSE_FORMAT"
	CodeDBInsert              = "DB_INSERT_ERROR"
	CodeConfiguration         = "CONFIGURATION_ERROR"
	CodeRequestCancelled      = "REQUEST_CANCELLED"
	CodeUnknown               = "UNKNOWN_ERROR"
)

// Error is the closed error variant returned by the generation service.
// Every failure path produces exactly one Error, tagged where the condition
// is first detected; callers read Code and Status instead of sniffing
// underlying types.
type Error struct {
	// Code is a stable machine-readable identifier, e.g. "RATE_LIMIT_EXCEEDED".
	Code string
	// Status is the HTTP-equivalent status for the condition.
	Status int
	// Message is safe for caller display.
	Message string
	// Err is the underlying cause, kept for logs only.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code string, status int, message string, err error) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// classifyError maps an arbitrary failure from the generation flow onto the
// closed taxonomy. Service errors pass through unchanged; chat client errors
// keep their original cause wrapped so errors.Is still works; anything else
// becomes UNKNOWN_ERROR.
func classifyError(err error) *Error {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr
	}

	var rateErr *chat.RateLimitError
	if errors.As(err, &rateErr) {
		return newError(CodeRateLimited, http.StatusTooManyRequests,
			fmt.Sprintf("rate limit exceeded, please wait %d seconds",
				int(rateErr.RetryAfter.Round(time.Second).Seconds())),
			err)
	}

	var upstreamErr *chat.UpstreamError
	if errors.As(err, &upstreamErr) {
		if errors.Is(err, chat.ErrUpstreamRateLimited) {
			return newError(CodeUpstreamRateLimited, http.StatusInternalServerError,
				"AI provider rate limit exceeded", err)
		}
		return newError(upstreamErr.Code(), http.StatusInternalServerError,
			"AI provider rejected the request", err)
	}

	switch {
	case errors.Is(err, chat.ErrEmptyMessage):
		return newError(CodeInvalidInput, http.StatusBadRequest,
			"generation prompt cannot be empty", err)
	case errors.Is(err, chat.ErrNetwork):
		return newError(CodeNetwork, http.StatusInternalServerError,
			"failed to reach the AI provider", err)
	case errors.Is(err, chat.ErrInvalidResponse):
		return newError(CodeInvalidResponseFormat, http.StatusInternalServerError,
			"AI provider returned an invalid response", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return newError(CodeRequestCancelled, http.StatusInternalServerError,
			"generation request was cancelled", err)
	default:
		return newError(CodeUnknown, http.StatusInternalServerError,
			"failed to process generation request", err)
	}
}
