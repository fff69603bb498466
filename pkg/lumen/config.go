package lumen

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/lumen-io/lumen-go/internal/constants"
)

// Config is the immutable per-client configuration. Each client instance
// built from a Config owns its own connection pool, circuit breaker, and
// cache; two clients never share any of the three.
type Config struct {
	// BaseURL is the API root, e.g. "https://api.lumen.io". Required.
	BaseURL string `yaml:"base_url"`

	// Email identifies the caller for the polite pool. Appended to every
	// request as the "mailto" parameter when set.
	Email string `yaml:"email,omitempty"`

	// APIKey is appended as the "api_key" parameter when set.
	APIKey string `yaml:"api_key,omitempty"`

	// UserAgent overrides the default User-Agent header.
	UserAgent string `yaml:"user_agent,omitempty"`

	// HTTPTimeout bounds each individual HTTP attempt, not a whole
	// pagination session.
	HTTPTimeout time.Duration `yaml:"http_timeout,omitempty"`

	// MaxRetries is the retry count after the first attempt; total attempts
	// are MaxRetries+1.
	MaxRetries int `yaml:"max_retries,omitempty"`

	// InitialBackoff is the first retry delay.
	InitialBackoff time.Duration `yaml:"initial_backoff,omitempty"`

	// MaxBackoff caps the computed retry delay.
	MaxBackoff time.Duration `yaml:"max_backoff,omitempty"`

	// BackoffBase is the exponential backoff multiplier.
	BackoffBase float64 `yaml:"backoff_base,omitempty"`

	// CircuitThreshold is the consecutive-failure count that opens the
	// circuit breaker.
	CircuitThreshold int `yaml:"circuit_threshold,omitempty"`

	// CircuitCooldown is how long an open circuit rejects calls before a
	// half-open trial.
	CircuitCooldown time.Duration `yaml:"circuit_cooldown,omitempty"`

	// RequestsPerSecond enables a client-side admission rate limit when > 0.
	RequestsPerSecond float64 `yaml:"requests_per_second,omitempty"`

	// MaxConcurrency bounds simultaneous in-flight page fetches issued by
	// the parallel fetcher.
	MaxConcurrency int `yaml:"max_concurrency,omitempty"`

	// CacheEnabled turns on response caching for idempotent list/get
	// requests. Off by default.
	CacheEnabled bool `yaml:"cache_enabled,omitempty"`

	// CacheTTL is the lifetime of cached responses.
	CacheTTL time.Duration `yaml:"cache_ttl,omitempty"`

	// CacheMaxSize bounds the memory cache entry count.
	CacheMaxSize int `yaml:"cache_max_size,omitempty"`

	// CacheBackend selects a non-default backend (redis, nats, chain).
	// When nil a bounded in-memory cache is used.
	CacheBackend *CacheBackendConfig `yaml:"-"`

	// Logger receives structured engine events. Nil disables logging.
	Logger *zerolog.Logger `yaml:"-"`
}

// WithDefaults returns a copy with unset fields replaced by engine defaults.
func (c Config) WithDefaults() Config {
	out := c

	if out.HTTPTimeout == 0 {
		out.HTTPTimeout = constants.DefaultHTTPTimeout
	}

	if out.MaxRetries == 0 {
		out.MaxRetries = constants.DefaultMaxRetries
	}

	if out.InitialBackoff == 0 {
		out.InitialBackoff = constants.DefaultInitialBackoff
	}

	if out.MaxBackoff == 0 {
		out.MaxBackoff = constants.DefaultMaxBackoff
	}

	if out.BackoffBase == 0 {
		out.BackoffBase = constants.DefaultBackoffBase
	}

	if out.CircuitThreshold == 0 {
		out.CircuitThreshold = constants.DefaultCircuitThreshold
	}

	if out.CircuitCooldown == 0 {
		out.CircuitCooldown = constants.DefaultCircuitCooldown
	}

	if out.MaxConcurrency == 0 {
		out.MaxConcurrency = constants.DefaultConcurrencyLimit
	}

	if out.CacheTTL == 0 {
		out.CacheTTL = constants.DefaultCacheTTL
	}

	if out.CacheMaxSize == 0 {
		out.CacheMaxSize = constants.DefaultCacheSize
	}

	return out
}

// Validate reports configuration errors before any client is built.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return ErrBaseURLRequired
	}

	return nil
}

// LoggerOrNop returns the configured logger or a no-op logger.
func (c Config) LoggerOrNop() zerolog.Logger {
	if c.Logger != nil {
		return *c.Logger
	}

	return zerolog.Nop()
}

// LoadConfig reads a Config from a YAML file, with LUMEN_* environment
// variables overriding file values (LUMEN_BASE_URL, LUMEN_EMAIL, ...).
// Path may be empty to read from the environment alone.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("LUMEN")
	v.AutomaticEnv()

	bindConfigKeys(v)

	if path != "" {
		v.SetConfigFile(path)

		err := v.ReadInConfig()
		if err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	config := Config{
		BaseURL:           v.GetString("base_url"),
		Email:             v.GetString("email"),
		APIKey:            v.GetString("api_key"),
		UserAgent:         v.GetString("user_agent"),
		HTTPTimeout:       v.GetDuration("http_timeout"),
		MaxRetries:        v.GetInt("max_retries"),
		InitialBackoff:    v.GetDuration("initial_backoff"),
		MaxBackoff:        v.GetDuration("max_backoff"),
		BackoffBase:       v.GetFloat64("backoff_base"),
		CircuitThreshold:  v.GetInt("circuit_threshold"),
		CircuitCooldown:   v.GetDuration("circuit_cooldown"),
		RequestsPerSecond: v.GetFloat64("requests_per_second"),
		MaxConcurrency:    v.GetInt("max_concurrency"),
		CacheEnabled:      v.GetBool("cache_enabled"),
		CacheTTL:          v.GetDuration("cache_ttl"),
		CacheMaxSize:      v.GetInt("cache_max_size"),
	}

	return &config, nil
}

func bindConfigKeys(v *viper.Viper) {
	keys := []string{
		"base_url", "email", "api_key", "user_agent",
		"http_timeout", "max_retries", "initial_backoff", "max_backoff",
		"backoff_base", "circuit_threshold", "circuit_cooldown",
		"requests_per_second", "max_concurrency",
		"cache_enabled", "cache_ttl", "cache_max_size",
	}

	for _, key := range keys {
		_ = v.BindEnv(key)
	}
}

// Save writes the config as YAML with owner-only permissions. Logger and
// cache backend wiring are runtime-only and not persisted.
func (c Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	err = os.WriteFile(path, data, constants.ConfigFilePerm)
	if err != nil {
		return fmt.Errorf("writing config %s: %w", path, err)
	}

	return nil
}
