package constants

import "time"

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration files.
	ConfigFilePerm = 0600
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default per-attempt timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// ShortHTTPTimeout is used for quick operations.
	ShortHTTPTimeout = 10 * time.Second
)

// Retry defaults.
const (
	// DefaultMaxRetries is the default number of retries after the first attempt.
	DefaultMaxRetries = 3

	// DefaultInitialBackoff is the starting backoff delay.
	DefaultInitialBackoff = 500 * time.Millisecond

	// DefaultMaxBackoff caps the backoff delay between attempts.
	DefaultMaxBackoff = 30 * time.Second

	// DefaultBackoffBase is the exponential backoff multiplier.
	DefaultBackoffBase = 2.0
)

// Circuit breaker defaults.
const (
	// DefaultCircuitThreshold is the consecutive-failure count that opens the circuit.
	DefaultCircuitThreshold = 5

	// DefaultCircuitCooldown is how long an open circuit rejects calls before
	// allowing a half-open trial.
	DefaultCircuitCooldown = 30 * time.Second
)

// Concurrency limits.
const (
	// DefaultConcurrencyLimit bounds simultaneous in-flight page fetches.
	DefaultConcurrencyLimit = 3

	// StreamBufferSize is the channel buffer for streamed pages and records.
	StreamBufferSize = 16
)

// Pagination limits.
const (
	// DefaultPerPage is the page size used when the caller does not set one.
	DefaultPerPage = 25

	// MaxPerPage is the largest page size the API accepts.
	MaxPerPage = 200

	// MaxOffset is the deepest record reachable by page-number pagination
	// (page * per_page); beyond it the server silently returns nothing, so
	// the engine fails the request instead.
	MaxOffset = 10000

	// CursorStart is the wire token that begins a cursor session.
	CursorStart = "*"
)

// Cache defaults.
const (
	// DefaultCacheSize is the default maximum entry count for the memory cache.
	DefaultCacheSize = 1000

	// DefaultCacheTTL is the default time-to-live for cached responses.
	DefaultCacheTTL = 5 * time.Minute
)
