package cv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix   = "jobscout:cv:"
	redisIndexPrefix = "jobscout:cv-index:"
)

// RedisCache shares cached generations between processes.
type RedisCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisClient creates and verifies a Redis client connection.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return rdb, nil
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl}
}

func redisKey(k CacheKey) string {
	return redisKeyPrefix + k.String()
}

// templateIndexKey names the set holding every cached key of one template.
func templateIndexKey(templateID string) string {
	return redisIndexPrefix + templateID
}

func (c *RedisCache) Get(ctx context.Context, key CacheKey) (*Generation, error) {
	raw, err := c.rdb.Get(ctx, redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var g Generation
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, fmt.Errorf("decode cached generation: %w", err)
	}
	return &g, nil
}

// Put stores the generation and records its key in the template index. The
// index outlives its newest entry by one TTL.
func (c *RedisCache) Put(ctx context.Context, key CacheKey, g *Generation) error {
	raw, err := json.Marshal(g)
	if err != nil {
		return err
	}

	entry := redisKey(key)
	index := templateIndexKey(key.TemplateID)
	_, err = c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, entry, raw, c.ttl)
		pipe.SAdd(ctx, index, entry)
		if c.ttl > 0 {
			pipe.Expire(ctx, index, c.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis put: %w", err)
	}
	return nil
}

// InvalidateTemplate deletes every key listed in the template's index, then the index.
func (c *RedisCache) InvalidateTemplate(ctx context.Context, templateID string) error {
	index := templateIndexKey(templateID)
	keys, err := c.rdb.SMembers(ctx, index).Result()
	if err != nil {
		return fmt.Errorf("redis smembers: %w", err)
	}

	keys = append(keys, index)
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}
