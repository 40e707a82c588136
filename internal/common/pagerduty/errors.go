// internal/common/pagerduty/errors.go
package pagerduty

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// APIError is a non-2xx answer from the PagerDuty REST API.
type APIError struct {
	StatusCode int
	Code       int
	Message    string
	Errors     []string
	RetryAfter string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if len(e.Errors) > 0 {
		msg += ": " + strings.Join(e.Errors, "; ")
	}
	if e.Code != 0 {
		return fmt.Sprintf("pagerduty: %d (code %d): %s", e.StatusCode, e.Code, msg)
	}
	return fmt.Sprintf("pagerduty: %d: %s", e.StatusCode, msg)
}

// UnknownMethodError is returned by Call for a method the client has no
// request mapping for.
type UnknownMethodError struct {
	Entity string
	Method string
}

func (e *UnknownMethodError) Error() string {
	return fmt.Sprintf("pagerduty: no method %q on %s", e.Method, e.Entity)
}

// ArgumentError means a method was called without an argument it needs.
type ArgumentError struct {
	Method   string
	Argument string
	Reason   string
}

func (e *ArgumentError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("pagerduty: %s: argument %q %s", e.Method, e.Argument, e.Reason)
	}
	return fmt.Sprintf("pagerduty: %s: argument %q is required", e.Method, e.Argument)
}

func statusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

func IsNotFound(err error) bool {
	return statusOf(err) == http.StatusNotFound
}

func IsUnauthorized(err error) bool {
	s := statusOf(err)
	return s == http.StatusUnauthorized || s == http.StatusForbidden
}

func IsRateLimited(err error) bool {
	return statusOf(err) == http.StatusTooManyRequests
}

// IsRetryable reports whether repeating the same request may succeed.
func IsRetryable(err error) bool {
	s := statusOf(err)
	return s == http.StatusTooManyRequests || s >= 500
}
