package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	Addr     string
	Password string // optional
	DB       int    // optional
}

func NewClient(ctx context.Context, cfg Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return client, nil
}

// CounterCache keeps short-lived integer values under a key prefix.
type CounterCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func NewCounterCache(client *redis.Client, prefix string, ttl time.Duration) *CounterCache {
	return &CounterCache{client: client, prefix: prefix, ttl: ttl}
}

// Get returns the cached value and whether it was present.
func (c *CounterCache) Get(ctx context.Context, key string) (int64, bool, error) {
	raw, err := c.client.Get(ctx, c.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get %s: %w", c.prefix+key, err)
	}

	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("parse %s: %w", c.prefix+key, err)
	}

	return v, true, nil
}

func (c *CounterCache) Set(ctx context.Context, key string, v int64) error {
	if err := c.client.Set(ctx, c.prefix+key, v, c.ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", c.prefix+key, err)
	}
	return nil
}

func (c *CounterCache) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		return fmt.Errorf("delete %s: %w", c.prefix+key, err)
	}
	return nil
}
