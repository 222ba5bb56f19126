package database

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	apperrors "medqa-workers/internal/common/errors"

	"github.com/redis/go-redis/v9"
)

const responseKeyPrefix = "medqa:resp:"

// ResponseCache stores successful upstream bodies keyed by request URL.
type ResponseCache struct {
	redis *RedisClient
	ttl   time.Duration
}

func NewResponseCache(client *RedisClient, ttl time.Duration) *ResponseCache {
	return &ResponseCache{redis: client, ttl: ttl}
}

// ResponseKey is the Redis key for a request URL.
func ResponseKey(url string) string {
	sum := sha256.Sum256([]byte(url))
	return responseKeyPrefix + hex.EncodeToString(sum[:])
}

// Get returns the cached body for url. A miss is (nil, false, nil).
func (c *ResponseCache) Get(ctx context.Context, url string) ([]byte, bool, error) {
	body, err := c.redis.GetBytes(ctx, ResponseKey(url))
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperrors.NewCacheUnavailableError(err)
	}
	return body, true, nil
}

func (c *ResponseCache) Put(ctx context.Context, url string, body []byte) error {
	if err := c.redis.Set(ctx, ResponseKey(url), body, c.ttl); err != nil {
		return apperrors.NewCacheUnavailableError(err)
	}
	return nil
}
