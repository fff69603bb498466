package lumen

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// Prometheus metrics for cache operations.
var (
	cacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "lumen_cache_hits_total",
		Help: "Total number of cache hits by backend",
	}, []string{"backend"})

	cacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lumen_cache_misses_total",
		Help: "Total number of cache misses",
	})

	cacheEvictionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lumen_cache_evictions_total",
		Help: "Total number of LRU evictions from the memory cache",
	})
)

// CacheEntry is one cached response body with its expiry.
type CacheEntry struct {
	Data      []byte    `json:"data"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	ETag      string    `json:"etag,omitempty"`
}

// Cache is a pluggable cache backend.
type Cache interface {
	Get(ctx context.Context, key string) (*CacheEntry, error)
	Set(ctx context.Context, key string, entry *CacheEntry) error
	Delete(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Has(ctx context.Context, key string) bool
}

// MemoryCache is a bounded in-memory cache with LRU eviction and read-time
// TTL checks. Safe for concurrent use.
type MemoryCache struct {
	mu      sync.Mutex
	maxSize int
	entries map[string]*list.Element
	order   *list.List
	now     func() time.Time
}

type memoryItem struct {
	key   string
	entry *CacheEntry
}

// NewMemoryCache creates a memory cache bounded to maxSize entries.
func NewMemoryCache(maxSize int) *MemoryCache {
	return NewMemoryCacheWithClock(maxSize, time.Now)
}

// NewMemoryCacheWithClock creates a memory cache with an injected clock,
// letting tests control expiry deterministically.
func NewMemoryCacheWithClock(maxSize int, now func() time.Time) *MemoryCache {
	if maxSize <= 0 {
		maxSize = 1
	}

	return &MemoryCache{
		maxSize: maxSize,
		entries: make(map[string]*list.Element),
		order:   list.New(),
		now:     now,
	}
}

// Get returns the entry for key. Expired entries are removed and reported as
// missing: staleness is checked on every read, not only at eviction time.
func (c *MemoryCache) Get(ctx context.Context, key string) (*CacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	element, ok := c.entries[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCacheKeyNotFound, key)
	}

	item := element.Value.(*memoryItem)
	if !c.now().Before(item.entry.ExpiresAt) {
		c.order.Remove(element)
		delete(c.entries, key)

		return nil, fmt.Errorf("%w: %s", ErrCacheEntryStale, key)
	}

	c.order.MoveToFront(element)

	return item.entry, nil
}

// Set stores an entry, evicting the least-recently-used entry when full.
func (c *MemoryCache) Set(ctx context.Context, key string, entry *CacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if element, ok := c.entries[key]; ok {
		element.Value.(*memoryItem).entry = entry
		c.order.MoveToFront(element)

		return nil
	}

	if len(c.entries) >= c.maxSize {
		oldest := c.order.Back()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.entries, oldest.Value.(*memoryItem).key)
			cacheEvictionsTotal.Inc()
		}
	}

	c.entries[key] = c.order.PushFront(&memoryItem{key: key, entry: entry})

	return nil
}

// Delete removes an entry.
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if element, ok := c.entries[key]; ok {
		c.order.Remove(element)
		delete(c.entries, key)
	}

	return nil
}

// Clear removes all entries.
func (c *MemoryCache) Clear(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]*list.Element)
	c.order.Init()

	return nil
}

// Has reports whether a fresh entry exists for key.
func (c *MemoryCache) Has(ctx context.Context, key string) bool {
	_, err := c.Get(ctx, key)

	return err == nil
}

// Len returns the current entry count.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return len(c.entries)
}

// CacheManager owns cache keys and entry lifecycle for one client
// configuration. Instances are never shared across configurations, so
// clients with different base URLs or credentials cannot observe each
// other's entries.
type CacheManager struct {
	cache   Cache
	backend string
	ttl     time.Duration
	group   singleflight.Group
	logger  zerolog.Logger
}

// NewCacheManager wraps a backend with key derivation, TTL stamping, and
// miss coalescing.
func NewCacheManager(cache Cache, backend string, ttl time.Duration, logger zerolog.Logger) *CacheManager {
	return &CacheManager{
		cache:   cache,
		backend: backend,
		ttl:     ttl,
		logger:  logger,
	}
}

// Key derives the deterministic cache key for a path and spec. Two specs
// with the same accumulated state produce the same key regardless of the
// order their builder calls were chained.
func (m *CacheManager) Key(basePrefix, path string, spec QuerySpec) (string, error) {
	encoded, err := spec.Encode()
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256([]byte(basePrefix + "\x00" + path + "?" + encoded))

	return hex.EncodeToString(sum[:]), nil
}

// GetPage returns a cached page, or false on a miss or stale entry.
func (m *CacheManager) GetPage(ctx context.Context, key string) (*ListResponse, bool) {
	entry, err := m.cache.Get(ctx, key)
	if err != nil {
		cacheMissesTotal.Inc()

		return nil, false
	}

	var page ListResponse

	err = json.Unmarshal(entry.Data, &page)
	if err != nil {
		m.logger.Warn().Str("key", key).Err(err).Msg("discarding corrupt cache entry")
		_ = m.cache.Delete(ctx, key)
		cacheMissesTotal.Inc()

		return nil, false
	}

	cacheHitsTotal.WithLabelValues(m.backend).Inc()

	return &page, true
}

// SetPage stores a page under key with the manager's TTL. A failed put is
// logged and ignored: caching is an optimization, never a correctness
// dependency.
func (m *CacheManager) SetPage(ctx context.Context, key string, page *ListResponse) {
	data, err := json.Marshal(page)
	if err != nil {
		m.logger.Warn().Str("key", key).Err(err).Msg("cache encode failed")

		return
	}

	now := time.Now()
	entry := &CacheEntry{
		Data:      data,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}

	err = m.cache.Set(ctx, key, entry)
	if err != nil {
		m.logger.Warn().Str("key", key).Err(err).Msg("cache put failed")
	}
}

// GetOrFetch returns the cached page for key, or runs fetch once even under
// concurrent identical misses and caches its result. Only idempotent
// read-style fetches may go through here.
func (m *CacheManager) GetOrFetch(ctx context.Context, key string, fetch func() (*ListResponse, error)) (*ListResponse, error) {
	if page, ok := m.GetPage(ctx, key); ok {
		return page, nil
	}

	result, err, _ := m.group.Do(key, func() (interface{}, error) {
		// Re-check under the flight lock: a concurrent caller may have
		// populated the key while this one waited.
		if page, ok := m.GetPage(ctx, key); ok {
			return page, nil
		}

		page, err := fetch()
		if err != nil {
			return nil, err
		}

		m.SetPage(ctx, key, page)

		return page, nil
	})
	if err != nil {
		return nil, err
	}

	return result.(*ListResponse), nil
}

// InvalidateAll drops every entry owned by this manager.
func (m *CacheManager) InvalidateAll(ctx context.Context) error {
	return m.cache.Clear(ctx)
}
