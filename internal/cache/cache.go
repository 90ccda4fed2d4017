// Package cache stores rendered search results so repeated queries skip the
// index. Backends are Redis or an in-process LRU.
package cache

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sha1n/mcp-symdex-server/internal/config"
	"github.com/sha1n/mcp-symdex-server/internal/metrics"
	"golang.org/x/sync/singleflight"
)

// KeyPrefix prefixes every key written by the search cache.
const KeyPrefix = "symdex:search:"

// ErrClosed is returned by operations on a closed cache.
var ErrClosed = errors.New("cache is closed")

// Cache is a byte-value store with per-entry time-to-live.
type Cache interface {
	// Get returns the value for key. ok is false if the key is absent or expired.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Set stores value under key. A non-positive ttl means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// DeletePrefix removes every key beginning with prefix.
	DeletePrefix(ctx context.Context, prefix string) error
	// Close releases the backend.
	Close() error
}

// New builds the backend selected by settings: Redis when an address is
// configured, otherwise an LRU of settings.Size entries.
func New(settings *config.CacheSettings) (Cache, error) {
	if settings.RedisAddr == "" {
		return NewLRU(settings.Size), nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     settings.RedisAddr,
		Password: settings.RedisPassword,
		DB:       settings.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", settings.RedisAddr, err)
	}
	return NewRedis(client), nil
}

// QueryCache puts a Cache in front of a compute function. Concurrent misses
// for the same key run the computation once.
type QueryCache struct {
	backend Cache
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewQueryCache wraps backend. m may be nil.
func NewQueryCache(backend Cache, ttl time.Duration, m *metrics.Metrics) *QueryCache {
	return &QueryCache{
		backend: backend,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
}

// Key derives a cache key from the query parts. Parts are trimmed but
// otherwise kept as given, since case can change the result. They are joined
// with a NUL separator and hashed.
func Key(parts ...string) string {
	normalized := make([]string, len(parts))
	for i, p := range parts {
		normalized[i] = strings.TrimSpace(p)
	}
	sum := sha256.Sum256([]byte(strings.Join(normalized, "\x00")))
	return fmt.Sprintf("%s%x", KeyPrefix, sum[:16])
}

// GetOrCompute returns the cached value for key or computes, stores and
// returns it. hit reports whether the value came from the cache. Backend
// failures are logged and treated as misses. Concurrent callers share one
// computation, which runs detached from any single caller's cancellation.
func (c *QueryCache) GetOrCompute(ctx context.Context, key string, compute func(ctx context.Context) ([]byte, error)) (value []byte, hit bool, err error) {
	if value, ok := c.get(ctx, key); ok {
		c.metrics.CacheHit()
		return value, true, nil
	}
	c.metrics.CacheMiss()

	shared := context.WithoutCancel(ctx)
	v, err, _ := c.group.Do(key, func() (any, error) {
		if value, ok := c.get(shared, key); ok {
			return value, nil
		}
		value, err := compute(shared)
		if err != nil {
			return nil, err
		}
		if err := c.backend.Set(shared, key, value, c.ttl); err != nil {
			c.logger.Error("cache set failed", "key", key, "error", err)
		}
		return value, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.([]byte), false, nil
}

// Invalidate drops every search result.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	if err := c.backend.DeletePrefix(ctx, KeyPrefix); err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidated")
	return nil
}

// Close closes the backend.
func (c *QueryCache) Close() error {
	return c.backend.Close()
}

func (c *QueryCache) get(ctx context.Context, key string) ([]byte, bool) {
	value, ok, err := c.backend.Get(ctx, key)
	if err != nil {
		c.logger.Error("cache get failed", "key", key, "error", err)
		return nil, false
	}
	return value, ok
}
