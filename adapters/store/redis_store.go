package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/layer-3/swapgate/core"
	"github.com/layer-3/swapgate/ports"
	"github.com/redis/go-redis/v9"
)

// RedisCache is a Redis implementation of NonceCache
type RedisCache struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisCache creates a Redis nonce cache
func NewRedisCache(client redis.UniversalClient) *RedisCache {
	return &RedisCache{
		client: client,
		prefix: "swapgate:",
	}
}

var _ ports.NonceCache = (*RedisCache)(nil)

// SetNX stores a key only if it does not exist yet
func (s *RedisCache) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, s.prefix+key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to set key: %w", err)
	}
	return ok, nil
}

// GetDel atomically reads and deletes a key
func (s *RedisCache) GetDel(ctx context.Context, key string) (string, error) {
	value, err := s.client.GetDel(ctx, s.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", core.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get key: %w", err)
	}
	return value, nil
}
