// Package redis opens the connection that backs the Redis queue.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"eligo/internal/platform/config"
	"eligo/pkg/platform/sentinel"
)

// Client is a go-redis client; it satisfies redis.UniversalClient so it can
// be handed straight to queue.NewRedisQueue.
type Client struct {
	*redis.Client
}

// New dials and pings Redis. An empty URL means the process runs on in-memory
// queues, so New returns nil without error.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	opts.MinIdleConns = cfg.MinIdleConns
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout

	c := &Client{Client: redis.NewClient(opts)}
	if err := c.Health(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// Health is the /health probe for the queue backend.
func (c *Client) Health(ctx context.Context) error {
	if err := c.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w: %w", sentinel.ErrUnavailable, err)
	}
	return nil
}
