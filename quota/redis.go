package quota

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCounter keeps counters in Redis so every replica shares one budget.
type RedisCounter struct {
	client redis.UniversalClient
}

// NewRedisCounter wraps an existing client.
func NewRedisCounter(client redis.UniversalClient) *RedisCounter {
	return &RedisCounter{client: client}
}

// DialRedis parses a redis:// URL and checks the server answers.
func DialRedis(ctx context.Context, url string) (*RedisCounter, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return &RedisCounter{client: client}, nil
}

// Increment runs INCR and sets the expiry when the key was just created.
func (r *RedisCounter) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	n, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 && ttl > 0 {
		if err := r.client.Expire(ctx, key, ttl).Err(); err != nil {
			return n, err
		}
	}
	return n, nil
}

// Get returns the value of key, zero when absent.
func (r *RedisCounter) Get(ctx context.Context, key string) (int64, error) {
	n, err := r.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// Close closes the client.
func (r *RedisCounter) Close() error {
	return r.client.Close()
}
