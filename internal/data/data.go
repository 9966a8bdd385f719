// Package data provides data access layer implementations.
// It holds the generation transport, the result cache and the call log.
package data

import (
	"Scribeline/internal/conf"
	pkglog "Scribeline/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
	"github.com/redis/go-redis/v9"
)

// ProviderSet is data providers.
var ProviderSet = wire.NewSet(
	NewData,
	NewRedisClient,
	NewCacheClient,
	NewMySQLClient,
)

// Data holds the shared stores. Each may be absent.
type Data struct {
	redisClient *redis.Client
	cache       CacheClient
}

// NewData collects the shared stores and reports which result cache tiers are active.
func NewData(c *conf.Data, logger log.Logger, rdb *redis.Client, cache CacheClient) (*Data, func(), error) {
	helper := pkglog.NewLogHelper(logger)

	enabled := c != nil && c.Cache != nil && c.Cache.Enabled
	switch {
	case !enabled:
		helper.Cache("result cache disabled")
	case rdb == nil:
		helper.Cache("result cache is in-process only", "tiers", "local")
	default:
		helper.Cache("result cache enabled", "tiers", "local,redis")
	}

	d := &Data{
		redisClient: rdb,
		cache:       cache,
	}
	cleanup := func() {
		helper.Info("closing the data resources")
	}
	return d, cleanup, nil
}

// GetCache returns the shared L2 byte store.
func (d *Data) GetCache() CacheClient {
	return d.cache
}

// GetRedisClient returns nil when no redis address is configured.
func (d *Data) GetRedisClient() *redis.Client {
	return d.redisClient
}
