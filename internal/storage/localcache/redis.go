package localcache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"remotion_studio/internal/storage"
	redisapp "remotion_studio/internal/storage/redis"
)

type RedisCache struct {
	client *redisapp.Client
	ttl    time.Duration
}

func NewRedisCache(client *redisapp.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

func (r *RedisCache) Get(ctx context.Context, key string, dst any) error {
	raw, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return storage.ErrorNoSuchKey
	}
	if err != nil {
		return err
	}
	return decode(raw, dst)
}

func (r *RedisCache) Set(ctx context.Context, key string, value any) error {
	raw, err := encode(value)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, key, raw, r.ttl).Err()
}

func (r *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}

func (r *RedisCache) Close() error {
	return r.client.Close()
}
