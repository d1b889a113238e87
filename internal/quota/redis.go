package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCounter shares quota counters between server replicas
type RedisCounter struct {
	client *redis.Client
}

// NewRedisCounter connects to the redis URL and pings it
func NewRedisCounter(ctx context.Context, url string) (*RedisCounter, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisCounter{client: client}, nil
}

func (c *RedisCounter) Close() error {
	return c.client.Close()
}

func (c *RedisCounter) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	var incr *redis.IntCmd
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.ExpireNX(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to increment quota counter: %w", err)
	}
	return incr.Val(), nil
}

func (c *RedisCounter) Decr(ctx context.Context, key string) error {
	if err := c.client.Decr(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to decrement quota counter: %w", err)
	}
	return nil
}

// Get returns the current count, 0 when the key does not exist
func (c *RedisCounter) Get(ctx context.Context, key string) (int64, error) {
	val, err := c.client.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return val, err
}
