package data

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// CacheKeyResult prefixes parsed model results: scribeline:result:{operation}:{hash}
const CacheKeyResult = "scribeline:result"

// Default result TTLs per tier.
const (
	TTLResultLocal = 10 * time.Minute
	TTLResultRedis = 24 * time.Hour
)

// ErrCacheNotFound is returned when a cache key does not exist
var ErrCacheNotFound = errors.New("cache: key not found")

var errNoRedis = errors.New("cache: redis not configured")

// CacheClient is the shared byte store behind the in-process result cache.
// Values are opaque; encoding is the caller's concern.
type CacheClient interface {
	// Load returns the stored bytes or ErrCacheNotFound.
	Load(ctx context.Context, key string) ([]byte, error)
	Store(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type redisCache struct {
	client *redis.Client
}

// NewCacheClient wraps rdb. A nil client fails every operation.
func NewCacheClient(rdb *redis.Client) CacheClient {
	return &redisCache{client: rdb}
}

func (c *redisCache) Load(ctx context.Context, key string) ([]byte, error) {
	if c.client == nil {
		return nil, errNoRedis
	}

	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("cache: failed to load %s: %w", key, err)
	}
	return val, nil
}

func (c *redisCache) Store(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if c.client == nil {
		return errNoRedis
	}
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("cache: failed to store %s: %w", key, err)
	}
	return nil
}

// BuildCacheKey joins prefix and parts with ":".
//
//	BuildCacheKey(CacheKeyResult, "chat:ab12") -> "scribeline:result:chat:ab12"
func BuildCacheKey(prefix string, parts ...string) string {
	return strings.Join(append([]string{prefix}, parts...), ":")
}
