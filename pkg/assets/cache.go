package assets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/leobarcove/true-claim-insight/pkg/logging"
)

// URLCache remembers resolved locations.
type URLCache interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, location string, ttl time.Duration)
	Forget(ctx context.Context, key string)
}

type cachedURL struct {
	location string
	expires  time.Time
}

// MemoryURLCache is a process-local URLCache.
type MemoryURLCache struct {
	mu      sync.Mutex
	entries map[string]cachedURL
	now     func() time.Time
}

// NewMemoryURLCache returns an empty cache.
func NewMemoryURLCache() *MemoryURLCache {
	return &MemoryURLCache{entries: map[string]cachedURL{}, now: time.Now}
}

func (c *MemoryURLCache) Get(_ context.Context, key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return "", false
	}
	if !c.now().Before(e.expires) {
		delete(c.entries, key)
		return "", false
	}
	return e.location, true
}

func (c *MemoryURLCache) Set(_ context.Context, key, location string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cachedURL{location: location, expires: c.now().Add(ttl)}
}

func (c *MemoryURLCache) Forget(_ context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// RedisURLCache shares signed URLs between replicas. Redis failures are
// treated as misses.
type RedisURLCache struct {
	client redis.UniversalClient
	prefix string
	log    *slog.Logger
}

// NewRedisURLCache wraps an existing client.
func NewRedisURLCache(client redis.UniversalClient) *RedisURLCache {
	return &RedisURLCache{client: client, prefix: "asset-url:", log: logging.New("assets")}
}

func (c *RedisURLCache) Get(ctx context.Context, key string) (string, bool) {
	v, err := c.client.Get(ctx, c.prefix+key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("url cache read failed", "key", key, "error", err)
		}
		return "", false
	}
	return v, true
}

func (c *RedisURLCache) Set(ctx context.Context, key, location string, ttl time.Duration) {
	if err := c.client.Set(ctx, c.prefix+key, location, ttl).Err(); err != nil {
		c.log.Warn("url cache write failed", "key", key, "error", err)
	}
}

func (c *RedisURLCache) Forget(ctx context.Context, key string) {
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		c.log.Warn("url cache delete failed", "key", key, "error", err)
	}
}

// CachingSource resolves each key at most once per TTL. The TTL must be
// shorter than the backend's signing lifetime so a cached URL never
// outlives its signature.
type CachingSource struct {
	Source
	cache URLCache
	ttl   time.Duration
	group singleflight.Group
}

// NewCachingSource wraps src.
func NewCachingSource(src Source, cache URLCache, ttl time.Duration) *CachingSource {
	return &CachingSource{Source: src, cache: cache, ttl: ttl}
}

func (s *CachingSource) Locate(ctx context.Context, key string) (string, error) {
	if loc, ok := s.cache.Get(ctx, key); ok {
		return loc, nil
	}
	v, err, _ := s.group.Do(key, func() (any, error) {
		loc, err := s.Source.Locate(ctx, key)
		if err != nil {
			return "", err
		}
		s.cache.Set(ctx, key, loc, s.ttl)
		return loc, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (s *CachingSource) Delete(ctx context.Context, key string) error {
	s.cache.Forget(ctx, key)
	if err := s.Source.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}
