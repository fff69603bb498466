// Package client wires the transport, cache, and pagination layers into the
// public lumen.Client interface.
package client

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/lumen-io/lumen-go/internal/auth"
	"github.com/lumen-io/lumen-go/internal/http"
	"github.com/lumen-io/lumen-go/pkg/lumen"
)

// Client implements lumen.Client. One Client owns one connection pool, one
// circuit breaker, and one cache; nothing is shared process-wide.
type Client struct {
	config     lumen.Config
	httpClient *http.Client
	cache      *lumen.CacheManager
	logger     zerolog.Logger

	mu       sync.Mutex
	entities map[string]*EntitiesClient
	closed   bool
}

// New builds a Client from a validated configuration. Defaults are applied
// here so callers can pass a sparse Config.
func New(ctx context.Context, config *lumen.Config) (*Client, error) {
	if config == nil {
		return nil, lumen.ErrConfigRequired
	}

	cfg := config.WithDefaults()

	err := cfg.Validate()
	if err != nil {
		return nil, err
	}

	logger := cfg.LoggerOrNop()

	breaker := http.NewCircuitBreaker(cfg.BaseURL, cfg.CircuitThreshold, cfg.CircuitCooldown)

	httpOpts := []http.Option{
		http.WithLogger(logger),
		http.WithTimeout(cfg.HTTPTimeout),
	}

	if cfg.UserAgent != "" {
		httpOpts = append(httpOpts, http.WithUserAgent(cfg.UserAgent))
	}

	if cfg.RequestsPerSecond > 0 {
		httpOpts = append(httpOpts, http.WithRateLimit(cfg.RequestsPerSecond))
	}

	identity := auth.Identity{Email: cfg.Email, APIKey: cfg.APIKey}
	if !identity.Empty() {
		httpOpts = append(httpOpts, http.WithRequestHook(identity.Hook()))
	}

	policy := http.RetryPolicy{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxBackoff:     cfg.MaxBackoff,
		Base:           cfg.BackoffBase,
	}

	client := &Client{
		config:     cfg,
		httpClient: http.NewClient(cfg.BaseURL, policy, breaker, httpOpts...),
		logger:     logger,
		entities:   make(map[string]*EntitiesClient),
	}

	if cfg.CacheEnabled {
		cache, err := buildCache(&cfg)
		if err != nil {
			return nil, err
		}

		backend := string(lumen.CacheTypeMemory)
		if cfg.CacheBackend != nil {
			backend = string(cfg.CacheBackend.Type)
		}

		client.cache = lumen.NewCacheManager(cache, backend, cfg.CacheTTL, logger)
	}

	return client, nil
}

// buildCache constructs the configured cache backend, defaulting to a
// bounded in-memory LRU.
func buildCache(cfg *lumen.Config) (lumen.Cache, error) {
	if cfg.CacheBackend == nil {
		return lumen.NewMemoryCache(cfg.CacheMaxSize), nil
	}

	cache, err := lumen.NewCacheFromConfig(cfg.CacheBackend)
	if err != nil {
		return nil, fmt.Errorf("building cache backend: %w", err)
	}

	return cache, nil
}

// Entities returns the client for one resource path. Instances are cached
// so repeated calls share state.
func (c *Client) Entities(path string) lumen.EntitiesClient {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entities, ok := c.entities[path]; ok {
		return entities
	}

	entities := newEntitiesClient(c, path)
	c.entities[path] = entities

	return entities
}

// InvalidateCache drops every response cached by this client.
func (c *Client) InvalidateCache(ctx context.Context) error {
	if c.cache == nil {
		return nil
	}

	return c.cache.InvalidateAll(ctx)
}

// Close releases the connection pool. Safe to call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true
	c.httpClient.Close()

	return nil
}
