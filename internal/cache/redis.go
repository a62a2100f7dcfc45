package cache

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache is a byte cache shared by every instance of the service.
// Keys are namespaced with a prefix; expiry is left to Redis.
type RedisCache struct {
	client  redis.UniversalClient
	prefix  string
	ttl     time.Duration
	timeout time.Duration

	hits   atomic.Int64
	misses atomic.Int64
}

// RedisConfig holds connection settings for RedisCache.
type RedisConfig struct {
	Addr    string
	Prefix  string
	TTL     time.Duration
	Timeout time.Duration
}

// NewRedisCache connects to Redis. The connection is checked lazily; use Ping
// to verify it at startup.
func NewRedisCache(cfg RedisConfig) *RedisCache {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 500 * time.Millisecond
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		DialTimeout:  cfg.Timeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	})
	return newRedisCache(rdb, cfg)
}

func newRedisCache(client redis.UniversalClient, cfg RedisConfig) *RedisCache {
	if cfg.Prefix == "" {
		cfg.Prefix = "collegesave:chart:"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 500 * time.Millisecond
	}
	return &RedisCache{
		client:  client,
		prefix:  cfg.Prefix,
		ttl:     cfg.TTL,
		timeout: cfg.Timeout,
	}
}

func (r *RedisCache) key(k string) string { return r.prefix + k }

func (r *RedisCache) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), r.timeout)
}

// Ping verifies the server is reachable.
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Get retrieves a value. Connection failures count as misses.
func (r *RedisCache) Get(key string) ([]byte, bool) {
	ctx, cancel := r.ctx()
	defer cancel()

	val, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Warn("Redis get failed", "component", "cache", "key", key, "error", err)
		}
		r.misses.Add(1)
		return nil, false
	}
	r.hits.Add(1)
	return val, true
}

// Set stores a value with the configured TTL. Failures are logged and
// otherwise ignored; the value can always be recomputed.
func (r *RedisCache) Set(key string, data []byte) {
	ctx, cancel := r.ctx()
	defer cancel()

	if err := r.client.Set(ctx, r.key(key), data, r.ttl).Err(); err != nil {
		slog.Warn("Redis set failed", "component", "cache", "key", key, "error", err)
	}
}

// Delete removes a key.
func (r *RedisCache) Delete(key string) {
	ctx, cancel := r.ctx()
	defer cancel()

	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		slog.Warn("Redis delete failed", "component", "cache", "key", key, "error", err)
	}
}

// Size counts keys under the cache prefix.
func (r *RedisCache) Size() int {
	ctx, cancel := r.ctx()
	defer cancel()

	n := 0
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		n++
	}
	if err := iter.Err(); err != nil {
		slog.Warn("Redis scan failed", "component", "cache", "error", err)
	}
	return n
}

// Stats returns hit/miss counters and the current size.
func (r *RedisCache) Stats() Stats {
	return Stats{Hits: r.hits.Load(), Misses: r.misses.Load(), Size: r.Size()}
}

// Close releases the connection pool.
func (r *RedisCache) Close() error {
	return r.client.Close()
}
