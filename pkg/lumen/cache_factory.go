package lumen

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/lumen-io/lumen-go/internal/constants"
)

// CacheType represents the type of cache backend.
type CacheType string

const (
	// CacheTypeMemory represents the in-memory LRU cache.
	CacheTypeMemory CacheType = "memory"

	// CacheTypeRedis represents the Redis cache backend.
	CacheTypeRedis CacheType = "redis"

	// CacheTypeNATS represents the NATS KV cache backend.
	CacheTypeNATS CacheType = "nats"

	// CacheTypeNone represents no caching.
	CacheTypeNone CacheType = "none"

	// CacheTypeChain layers backend configurations, first layer checked first.
	CacheTypeChain CacheType = "chain"
)

// Static errors for cache construction.
var (
	ErrRedisConfigRequired   = errors.New("redis configuration required for redis cache")
	ErrNATSConfigRequired    = errors.New("NATS configuration required for NATS cache")
	ErrChainConfigRequired   = errors.New("chain cache requires at least two layer configurations")
	ErrUnsupportedCacheType  = errors.New("unsupported cache type")
	ErrKeyNotFoundInAnyCache = errors.New("key not found in any cache")
)

// RedisCacheConfig configures the Redis backend.
type RedisCacheConfig struct {
	// Client is an existing Redis client to reuse.
	Client *redis.Client

	// Addr is the Redis address, used when Client is nil.
	Addr string

	// Prefix namespaces keys per logical configuration.
	Prefix string
}

// MemoryCacheConfig configures the memory backend.
type MemoryCacheConfig struct {
	// MaxSize is the maximum number of entries before LRU eviction.
	MaxSize int
}

// CacheBackendConfig selects and configures a cache backend. For
// CacheTypeChain, Chain lists the layer configurations in lookup order
// (L1 first).
type CacheBackendConfig struct {
	Type   CacheType
	Memory *MemoryCacheConfig
	Redis  *RedisCacheConfig
	NATS   *NATSKVConfig
	Chain  []CacheBackendConfig
}

// DefaultCacheBackendConfig returns the default backend configuration.
func DefaultCacheBackendConfig() *CacheBackendConfig {
	return &CacheBackendConfig{
		Type: CacheTypeMemory,
		Memory: &MemoryCacheConfig{
			MaxSize: constants.DefaultCacheSize,
		},
	}
}

// NewCacheFromConfig creates a cache backend from configuration.
func NewCacheFromConfig(config *CacheBackendConfig) (Cache, error) {
	if config == nil {
		config = DefaultCacheBackendConfig()
	}

	switch config.Type {
	case CacheTypeMemory:
		maxSize := constants.DefaultCacheSize
		if config.Memory != nil && config.Memory.MaxSize > 0 {
			maxSize = config.Memory.MaxSize
		}

		return NewMemoryCache(maxSize), nil

	case CacheTypeRedis:
		if config.Redis == nil {
			return nil, ErrRedisConfigRequired
		}

		client := config.Redis.Client
		if client == nil {
			client = redis.NewClient(&redis.Options{Addr: config.Redis.Addr})
		}

		return NewRedisCache(client, config.Redis.Prefix), nil

	case CacheTypeNATS:
		if config.NATS == nil {
			return nil, ErrNATSConfigRequired
		}

		return NewNATSKVCache(config.NATS)

	case CacheTypeNone:
		return NewNoOpCache(), nil

	case CacheTypeChain:
		if len(config.Chain) < 2 {
			return nil, ErrChainConfigRequired
		}

		layers := make([]Cache, 0, len(config.Chain))

		for i := range config.Chain {
			layer, err := NewCacheFromConfig(&config.Chain[i])
			if err != nil {
				return nil, fmt.Errorf("chain layer %d: %w", i, err)
			}

			layers = append(layers, layer)
		}

		return NewCacheChain(layers...), nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCacheType, config.Type)
	}
}

// NoOpCache is a cache that does nothing (no caching).
type NoOpCache struct{}

// NewNoOpCache creates a new no-op cache.
func NewNoOpCache() *NoOpCache {
	return &NoOpCache{}
}

// Get always misses.
func (c *NoOpCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	return nil, ErrCacheDisabled
}

// Set does nothing.
func (c *NoOpCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	return nil
}

// Delete does nothing.
func (c *NoOpCache) Delete(ctx context.Context, key string) error {
	return nil
}

// Clear does nothing.
func (c *NoOpCache) Clear(ctx context.Context) error {
	return nil
}

// Has always returns false.
func (c *NoOpCache) Has(ctx context.Context, key string) bool {
	return false
}

// CacheChain layers cache backends (L1, L2, ...): reads promote hits into
// earlier layers, writes go to every layer.
type CacheChain struct {
	caches []Cache
}

// NewCacheChain creates a new cache chain.
func NewCacheChain(caches ...Cache) *CacheChain {
	return &CacheChain{caches: caches}
}

// Get retrieves an item from the first layer that holds it, populating
// earlier layers on the way out.
func (c *CacheChain) Get(ctx context.Context, key string) (*CacheEntry, error) {
	for i, cache := range c.caches {
		entry, err := cache.Get(ctx, key)
		if err == nil {
			for j := range i {
				_ = c.caches[j].Set(ctx, key, entry)
			}

			return entry, nil
		}
	}

	return nil, ErrKeyNotFoundInAnyCache
}

// Set stores an item in all layers.
func (c *CacheChain) Set(ctx context.Context, key string, entry *CacheEntry) error {
	var lastErr error

	for _, cache := range c.caches {
		err := cache.Set(ctx, key, entry)
		if err != nil {
			lastErr = err
		}
	}

	return lastErr
}

// Delete removes an item from all layers.
func (c *CacheChain) Delete(ctx context.Context, key string) error {
	var lastErr error

	for _, cache := range c.caches {
		err := cache.Delete(ctx, key)
		if err != nil {
			lastErr = err
		}
	}

	return lastErr
}

// Clear removes all items from all layers.
func (c *CacheChain) Clear(ctx context.Context) error {
	var lastErr error

	for _, cache := range c.caches {
		err := cache.Clear(ctx)
		if err != nil {
			lastErr = err
		}
	}

	return lastErr
}

// Has checks if a key exists in any layer.
func (c *CacheChain) Has(ctx context.Context, key string) bool {
	for _, cache := range c.caches {
		if cache.Has(ctx, key) {
			return true
		}
	}

	return false
}
