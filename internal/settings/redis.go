package settings

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/KirkDiggler/auras/internal/errors"
)

// DefaultHash is the redis hash settings are stored in
const DefaultHash = "auras:settings"

// RedisConfig holds the redis store's dependencies
type RedisConfig struct {
	Client redis.Cmdable
	// Hash defaults to DefaultHash
	Hash string
}

// Redis is a Store backed by one redis hash
type Redis struct {
	client redis.Cmdable
	hash   string
}

// NewRedis creates a redis-backed Store
func NewRedis(cfg *RedisConfig) *Redis {
	if cfg.Client == nil {
		panic("redis client is required")
	}
	hash := cfg.Hash
	if hash == "" {
		hash = DefaultHash
	}
	return &Redis{client: cfg.Client, hash: hash}
}

// Get implements Store
func (r *Redis) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.HGet(ctx, r.hash, key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.WrapWithCode(err, errors.CodeUnavailable, "failed to get setting "+key)
	}
	return v, true, nil
}

// Set implements Store
func (r *Redis) Set(ctx context.Context, key, value string) error {
	if err := r.client.HSet(ctx, r.hash, key, value).Err(); err != nil {
		return errors.WrapWithCode(err, errors.CodeUnavailable, "failed to set setting "+key)
	}
	return nil
}
