package data

import (
	"context"
	"time"

	"Scribeline/internal/conf"
	pkglog "Scribeline/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"
)

const (
	redisPoolSize     = 32
	redisMinIdleConns = 4
	redisDialTimeout  = 3 * time.Second
	redisIdleTimeout  = 5 * time.Minute
)

// NewRedisClient connects the L2 result cache. No address means no client.
// An unreachable server is logged and the client kept; reads become misses.
func NewRedisClient(c *conf.Data, logger log.Logger) (*redis.Client, func(), error) {
	helper := pkglog.NewLogHelper(logger)

	if c == nil || c.Redis == nil || c.Redis.Addr == "" {
		helper.Cache("redis not configured")
		return nil, func() {}, nil
	}
	rc := c.Redis

	opts := &redis.Options{
		Network:         "tcp",
		Addr:            rc.Addr,
		Password:        rc.Password,
		DB:              rc.DB,
		PoolSize:        redisPoolSize,
		MinIdleConns:    redisMinIdleConns,
		DialTimeout:     redisDialTimeout,
		ReadTimeout:     rc.ReadTimeout,
		WriteTimeout:    rc.WriteTimeout,
		ConnMaxIdleTime: redisIdleTimeout,
	}
	if rc.Network != "" {
		opts.Network = rc.Network
	}
	rdb := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), redisDialTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		helper.Warnw("msg", "redis unreachable, result cache runs local only", "addr", rc.Addr, "error", err)
	} else {
		helper.Cache("redis connected", "addr", rc.Addr, "db", rc.DB)
	}

	return rdb, func() {
		if err := rdb.Close(); err != nil {
			helper.Errorw("msg", "close redis", "error", err)
		}
	}, nil
}
