package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// ErrCacheMiss signals a missing key in a typed way.
var ErrCacheMiss = errors.New("cache: miss")

// Cache is the minimal key-value contract the cached directory needs.
// Implementations must be concurrency-safe.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Close() error
}

// RedisCache satisfies Cache using a go-redis client.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache connects to redis and verifies connectivity.
func NewRedisCache(url string) (*RedisCache, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis: parse url: %w", err)
	}
	c := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("redis: ping: %w", err)
	}
	return &RedisCache{client: c}, nil
}

func (r *RedisCache) Get(ctx context.Context, key string) (string, error) {
	res, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	if err != nil {
		return "", err
	}
	return res, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}

// CachedDirectory is a read-through decorator over another Directory.
// Cache failures degrade to plain lookups; they never fail the request.
type CachedDirectory struct {
	inner Directory
	cache Cache
	ttl   time.Duration
}

// NewCachedDirectory wraps inner with a profile cache.
func NewCachedDirectory(inner Directory, cache Cache, ttl time.Duration) *CachedDirectory {
	return &CachedDirectory{inner: inner, cache: cache, ttl: ttl}
}

// Lookup serves what it can from the cache and fetches the rest upstream in
// one batched call.
func (d *CachedDirectory) Lookup(ctx context.Context, ids []int) (map[int]Profile, error) {
	profiles := make(map[int]Profile, len(ids))
	missing := make([]int, 0, len(ids))

	for _, id := range dedupe(ids) {
		raw, err := d.cache.Get(ctx, profileKey(id))
		if err != nil {
			if !errors.Is(err, ErrCacheMiss) {
				log.Printf("profile cache get failed: %v", err)
			}
			missing = append(missing, id)
			continue
		}
		var p Profile
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			missing = append(missing, id)
			continue
		}
		profiles[id] = p
	}

	if len(missing) == 0 {
		return profiles, nil
	}

	fetched, err := d.inner.Lookup(ctx, missing)
	if err != nil {
		return nil, err
	}
	for id, p := range fetched {
		profiles[id] = p
		if raw, err := json.Marshal(p); err == nil {
			if err := d.cache.Set(ctx, profileKey(id), string(raw), d.ttl); err != nil {
				log.Printf("profile cache set failed: %v", err)
			}
		}
	}
	return profiles, nil
}

func profileKey(id int) string {
	return fmt.Sprintf("profile:%d", id)
}
