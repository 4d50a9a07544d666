package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"fitstudio/internal/config"
	"fitstudio/internal/models"

	"github.com/redis/go-redis/v9"
)

const classCacheIndexKey = "classes:index"

// RedisClassCache keeps rendered class listings per timezone. Keys are tracked
// in a set so invalidation clears every timezone at once.
type RedisClassCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient builds a redis client from config.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisClassCache(client *redis.Client, ttl time.Duration) *RedisClassCache {
	return &RedisClassCache{
		client: client,
		ttl:    ttl,
	}
}

func classCacheKey(tz string) string {
	return fmt.Sprintf("classes:%s", tz)
}

func (r *RedisClassCache) Get(ctx context.Context, tz string) ([]models.ClassView, bool, error) {
	if r.client == nil {
		return nil, false, fmt.Errorf("redis client is nil")
	}
	val, err := r.client.Get(ctx, classCacheKey(tz)).Result()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get class listing from redis: %w", err)
	}

	var views []models.ClassView
	if err := json.Unmarshal([]byte(val), &views); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal class listing: %w", err)
	}
	return views, true, nil
}

func (r *RedisClassCache) Set(ctx context.Context, tz string, views []models.ClassView) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	data, err := json.Marshal(views)
	if err != nil {
		return fmt.Errorf("failed to marshal class listing: %w", err)
	}

	key := classCacheKey(tz)
	if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set class listing in redis: %w", err)
	}
	if err := r.client.SAdd(ctx, classCacheIndexKey, key).Err(); err != nil {
		return fmt.Errorf("failed to track class listing key: %w", err)
	}
	return nil
}

func (r *RedisClassCache) Invalidate(ctx context.Context) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	keys, err := r.client.SMembers(ctx, classCacheIndexKey).Result()
	if err != nil {
		return fmt.Errorf("failed to list class listing keys: %w", err)
	}
	if len(keys) > 0 {
		if err := r.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("failed to delete class listings: %w", err)
		}
	}
	if err := r.client.Del(ctx, classCacheIndexKey).Err(); err != nil {
		return fmt.Errorf("failed to delete class listing index: %w", err)
	}
	return nil
}

// Ping checks the Redis connection.
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}
