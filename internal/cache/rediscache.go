package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pesio-ai/be-fleet-transport/internal/apperrors"
)

// BytesCache is the read-through cache the services use for hot entities.
// A nil-safe no-op implementation is acceptable; callers treat cache
// failures as misses.
type BytesCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type RedisCache struct {
	c *redis.Client
}

func New(addr string) *RedisCache {
	return &RedisCache{
		c: redis.NewClient(&redis.Options{
			Addr: addr,
		}),
	}
}

func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.c.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperrors.Wrap(err, apperrors.ErrCodeInternal, "redis get")
	}
	return val, true, nil
}

func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.c.Set(ctx, key, value, ttl).Err(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "redis set")
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, key string) error {
	if err := r.c.Del(ctx, key).Err(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "redis del")
	}
	return nil
}

func (r *RedisCache) Close() error {
	return r.c.Close()
}

// NopCache satisfies BytesCache when Redis is not configured.
type NopCache struct{}

func (NopCache) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (NopCache) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (NopCache) Delete(context.Context, string) error                     { return nil }
