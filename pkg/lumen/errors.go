package lumen

import (
	"errors"
	"fmt"
	"time"
)

// APIError represents a generic error returned by the Lumen API.
type APIError struct {
	StatusCode int    `json:"status_code" yaml:"status_code"`
	Method     string `json:"method"      yaml:"method"`
	URL        string `json:"url"         yaml:"url"`
	Attempts   int    `json:"attempts"    yaml:"attempts"`
	Detail     string `json:"detail"      yaml:"detail"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return fmt.Sprintf("lumen: %s %s returned %d after %d attempt(s): %s",
		e.Method, e.URL, e.StatusCode, e.Attempts, e.Detail)
}

// NotFoundError indicates the requested resource does not exist (404).
type NotFoundError struct {
	APIError
}

// RateLimitError indicates the server rejected the request with 429 and the
// retry budget is exhausted. RetryAfter carries the server-supplied minimum
// wait when present.
type RateLimitError struct {
	APIError

	RetryAfter time.Duration `json:"retry_after" yaml:"retry_after"`
}

func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s (retry after %s)", e.APIError.Error(), e.RetryAfter)
	}

	return e.APIError.Error()
}

// ServerError indicates a 5xx response that survived all retries.
type ServerError struct {
	APIError
}

// CircuitOpenError is returned without any network attempt while the circuit
// breaker is open.
type CircuitOpenError struct {
	Endpoint  string        `json:"endpoint"   yaml:"endpoint"`
	RetryIn   time.Duration `json:"retry_in"   yaml:"retry_in"`
	Failures  int           `json:"failures"   yaml:"failures"`
	OpenedAgo time.Duration `json:"opened_ago" yaml:"opened_ago"`
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("lumen: circuit open for %s after %d consecutive failures, retry in %s",
		e.Endpoint, e.Failures, e.RetryIn)
}

// PaginationStalledError is returned when the server repeats a cursor instead
// of advancing it, which would otherwise loop forever.
type PaginationStalledError struct {
	Path   string `json:"path"   yaml:"path"`
	Cursor string `json:"cursor" yaml:"cursor"`
}

func (e *PaginationStalledError) Error() string {
	return fmt.Sprintf("lumen: pagination stalled on %s: cursor %q did not advance", e.Path, e.Cursor)
}

// InvalidFilterError indicates a filter value that has no defined wire
// serialization. It is raised at construction or serialization time, before
// any request is issued.
type InvalidFilterError struct {
	Field  string `json:"field"  yaml:"field"`
	Reason string `json:"reason" yaml:"reason"`
}

func (e *InvalidFilterError) Error() string {
	return fmt.Sprintf("lumen: invalid filter on %q: %s", e.Field, e.Reason)
}

// InvalidGroupByError indicates an unsupported group-by clause.
type InvalidGroupByError struct {
	Fields []string `json:"fields" yaml:"fields"`
	Reason string   `json:"reason" yaml:"reason"`
}

func (e *InvalidGroupByError) Error() string {
	return fmt.Sprintf("lumen: invalid group_by %v: %s", e.Fields, e.Reason)
}

// Common static errors that can be wrapped with context.
var (
	ErrConfigRequired   = errors.New("config is required")
	ErrBaseURLRequired  = errors.New("base URL is required")
	ErrCacheMiss        = errors.New("cache miss")
	ErrCacheDisabled    = errors.New("cache disabled")
	ErrCacheKeyNotFound = errors.New("key not found")
	ErrCacheEntryStale  = errors.New("entry expired")
	ErrOffsetLimit      = errors.New("page offset exceeds server maximum; use cursor pagination")
	ErrCursorWithPage   = errors.New("cursor and page number are mutually exclusive")
	ErrNoMoreRecords    = errors.New("no more records")
	ErrClientClosed     = errors.New("client is closed")
	ErrGroupByQuery     = errors.New("group_by queries return groups, not records")
	ErrNotGroupByQuery  = errors.New("query has no group_by clause")
)

// IsNotFound checks if the error is a not found error.
func IsNotFound(err error) bool {
	var notFound *NotFoundError

	return errors.As(err, &notFound)
}

// IsRateLimited checks if the error is a rate limit error.
func IsRateLimited(err error) bool {
	var rateLimited *RateLimitError

	return errors.As(err, &rateLimited)
}

// IsServerError checks if the error is a 5xx server error.
func IsServerError(err error) bool {
	var serverErr *ServerError

	return errors.As(err, &serverErr)
}

// IsCircuitOpen checks if the error is a circuit-open rejection.
func IsCircuitOpen(err error) bool {
	var open *CircuitOpenError

	return errors.As(err, &open)
}

// IsPaginationStalled checks if the error is a stalled-cursor termination.
func IsPaginationStalled(err error) bool {
	var stalled *PaginationStalledError

	return errors.As(err, &stalled)
}
