package storage

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "edd:"

type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func (r *RedisAdapter) Get(ctx context.Context, group, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, cacheKey(group, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (r *RedisAdapter) SetWithTTL(ctx context.Context, group, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, cacheKey(group, key), value, ttl).Err()
}

func (r *RedisAdapter) Delete(ctx context.Context, group, key string) error {
	return r.client.Del(ctx, cacheKey(group, key)).Err()
}

func cacheKey(group, key string) string {
	return cacheKeyPrefix + group + ":" + key
}
