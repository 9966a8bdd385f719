package data

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"Scribeline/internal/conf"
	pkglog "Scribeline/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

const defaultLocalSize = 512

// ResultCache implements biz.ResultCache with an in-process expirable LRU in
// front of redis. Values are stored as JSON in both tiers.
type ResultCache struct {
	enabled  bool
	local    *expirable.LRU[string, []byte]
	remote   CacheClient
	redisTTL time.Duration
	logger   *pkglog.LogHelper
}

// NewResultCache creates the result cache. When caching is disabled every
// lookup misses; without redis only the local tier is used.
func NewResultCache(c *conf.Data, d *Data, logger log.Logger) *ResultCache {
	rc := &ResultCache{
		redisTTL: TTLResultRedis,
		logger:   pkglog.NewLogHelper(logger),
	}
	if c == nil || c.Cache == nil || !c.Cache.Enabled {
		return rc
	}

	size, localTTL := c.Cache.LocalSize, c.Cache.LocalTTL
	if size <= 0 {
		size = defaultLocalSize
	}
	if localTTL <= 0 {
		localTTL = TTLResultLocal
	}
	if c.Cache.RedisTTL > 0 {
		rc.redisTTL = c.Cache.RedisTTL
	}

	rc.enabled = true
	rc.local = expirable.NewLRU[string, []byte](size, nil, localTTL)
	if d != nil && d.GetRedisClient() != nil {
		rc.remote = d.GetCache()
	}
	return rc
}

// Get loads the value stored under key into dest.
// Returns ErrCacheNotFound on a miss in both tiers.
func (c *ResultCache) Get(ctx context.Context, key string, dest any) error {
	if !c.enabled {
		return ErrCacheNotFound
	}
	full := BuildCacheKey(CacheKeyResult, key)

	if raw, ok := c.local.Get(full); ok {
		if err := json.Unmarshal(raw, dest); err != nil {
			c.local.Remove(full)
			return fmt.Errorf("cache: failed to unmarshal local value for key %s: %w", full, err)
		}
		c.logger.Cache("local cache hit", "key", full)
		return nil
	}

	if c.remote == nil {
		return ErrCacheNotFound
	}
	raw, err := c.remote.Load(ctx, full)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("cache: failed to unmarshal redis value for key %s: %w", full, err)
	}

	c.local.Add(full, raw)
	c.logger.Cache("redis cache hit", "key", full)
	return nil
}

// Set stores value in both tiers. A redis failure is returned after the local
// tier has been written.
func (c *ResultCache) Set(ctx context.Context, key string, value any) error {
	if !c.enabled {
		return nil
	}
	full := BuildCacheKey(CacheKeyResult, key)

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("cache: failed to marshal value for key %s: %w", full, err)
	}
	c.local.Add(full, raw)

	if c.remote == nil {
		return nil
	}
	return c.remote.Store(ctx, full, raw, c.redisTTL)
}
