// Package redisx opens the Redis connection backing the rate limiter.
package redisx

import (
	"context"
	"time"

	"fiber-cms-pg/internal/config"

	"github.com/redis/go-redis/v9"
)

// Client is an alias for a Redis client
type Client = redis.Client

// Open connects to Redis when an address is configured, verifying the
// connection with a ping bounded by the configured dial timeout. No
// address means no client: the limiter falls back to its in-process
// window.
func Open(cfg *config.Config) (*Client, func(), error) {
	if cfg.Redis.Addr == "" {
		return nil, func() {}, nil
	}
	timeout := time.Duration(cfg.Redis.DialTimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:        cfg.Redis.Addr,
		Password:    cfg.Redis.Password,
		DB:          cfg.Redis.DB,
		DialTimeout: timeout,
		ClientName:  "fiber-cms-pg",
	})
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, func() {}, err
	}
	closer := func() { _ = rdb.Close() }
	return rdb, closer, nil
}
