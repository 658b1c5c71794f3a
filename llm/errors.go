package llm

import (
	"errors"
	"fmt"
	"net/http"
	"unicode/utf8"
)

// TransientError is a failure that may succeed on retry.
type TransientError struct {
	err error
}

func (e *TransientError) Error() string { return e.err.Error() }
func (e *TransientError) Unwrap() error { return e.err }

// NewTransientError wraps an error as transient (retryable).
func NewTransientError(err error) error {
	return &TransientError{err: err}
}

// FatalError is a failure that retrying or falling back cannot fix.
type FatalError struct {
	err error
}

func (e *FatalError) Error() string { return e.err.Error() }
func (e *FatalError) Unwrap() error { return e.err }

// NewFatalError wraps an error as fatal (non-retryable).
func NewFatalError(err error) error {
	return &FatalError{err: err}
}

// IsTransient reports whether err is marked transient.
func IsTransient(err error) bool {
	var transient *TransientError
	return errors.As(err, &transient)
}

// IsFatal reports whether err is marked fatal.
func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal)
}

// StatusError is a non-200 reply from an LLM endpoint.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("LLM API error (status %d): %s", e.StatusCode, e.Body)
}

// truncate cuts s to at most n bytes on a rune boundary.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}

// classifyHTTPError wraps a non-200 reply as transient or fatal.
func classifyHTTPError(statusCode int, body []byte) error {
	err := &StatusError{StatusCode: statusCode, Body: truncate(string(body), 200)}

	switch {
	case statusCode == http.StatusTooManyRequests, statusCode >= 500:
		return NewTransientError(err)
	default:
		// 400, 401, 403, 404 and anything unexpected.
		return NewFatalError(err)
	}
}
