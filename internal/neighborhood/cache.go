package neighborhood

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/StreetCred/SC-Backend/internal/geo"
	"github.com/StreetCred/SC-Backend/internal/metrics"
)

const (
	cacheKeyPrefix = "streetcred:nbhd:"
	// 7 characters is a cell of roughly 150 m, well inside one neighborhood.
	cachePrecision = 7
	cacheOpTimeout = 250 * time.Millisecond
)

// Cache is the key/value store behind Cached. Get reports a miss as
// ok=false with a nil error.
type Cache interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// RedisCache adapts a go-redis client to Cache.
type RedisCache struct {
	rdb *redis.Client
}

// NewRedisCache connects and pings. A failed ping is returned so the caller
// can decide to run without a cache.
func NewRedisCache(ctx context.Context, addr, password string, db int) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return &RedisCache{rdb: rdb}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := c.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Close() error { return c.rdb.Close() }

// Cached wraps a strategy with a read-through cache. Only Resolved results
// of the wrapped strategy are stored; cache failures are logged and the
// wrapped strategy is called as if the cache were absent.
type Cached struct {
	next  Strategy
	cache Cache
	ttl   time.Duration
	log   *zap.Logger
}

func WithCache(next Strategy, cache Cache, ttl time.Duration, log *zap.Logger) *Cached {
	return &Cached{next: next, cache: cache, ttl: ttl, log: log.Named("neighborhood.cache")}
}

func (c *Cached) Name() string { return c.next.Name() }

func (c *Cached) Resolve(ctx context.Context, coord geo.Coordinate) Result {
	key := CacheKey(coord)

	getCtx, cancel := context.WithTimeout(ctx, cacheOpTimeout)
	name, ok, err := c.cache.Get(getCtx, key)
	cancel()
	switch {
	case err != nil:
		c.log.Warn("cache get failed", zap.String("key", key), zap.Error(err))
	case ok && name != "":
		metrics.ResolverCacheHitsTotal.Inc()
		res := Resolved(c.next.Name(), name)
		res.Cached = true
		return res
	default:
		metrics.ResolverCacheMissesTotal.Inc()
	}

	res := c.next.Resolve(ctx, coord)
	if !res.OK() {
		return res
	}

	setCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cacheOpTimeout)
	defer cancel()
	if err := c.cache.Set(setCtx, key, res.Name, c.ttl); err != nil {
		c.log.Warn("cache set failed", zap.String("key", key), zap.Error(err))
	}
	return res
}

// CacheKey buckets a coordinate by geohash cell.
func CacheKey(c geo.Coordinate) string {
	return cacheKeyPrefix + geo.Geohash(c, cachePrecision)
}
