package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/ctos-api/pkg/errors"
)

// CacheRepository provides helpers around Redis for cached document listings,
// dashboard aggregates and report summaries.
type CacheRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewCacheRepository constructs a cache repository. A nil client disables caching.
func NewCacheRepository(client *redis.Client, logger *zap.Logger) *CacheRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheRepository{client: client, logger: logger}
}

// Enabled reports whether a Redis client is configured.
func (r *CacheRepository) Enabled() bool {
	return r != nil && r.client != nil
}

// Get retrieves and unmarshals the cached value into the provided destination.
func (r *CacheRepository) Get(ctx context.Context, key string, dest interface{}) error {
	if !r.Enabled() {
		return appErrors.ErrCacheMiss
	}

	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return appErrors.ErrCacheMiss
		}
		return fmt.Errorf("redis get %s: %w", key, err)
	}

	if err := json.Unmarshal(raw, dest); err != nil {
		return fmt.Errorf("unmarshal cache value for %s: %w", key, err)
	}

	return nil
}

// Set marshals the provided value and stores it with the given TTL.
func (r *CacheRepository) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if !r.Enabled() {
		return nil
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %s: %w", key, err)
	}

	if err := r.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}

	return nil
}

// DeleteByPattern removes cached entries matching the provided pattern and
// returns how many keys were removed.
func (r *CacheRepository) DeleteByPattern(ctx context.Context, pattern string) (int, error) {
	if !r.Enabled() {
		return 0, nil
	}

	removed := 0
	iter := r.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		if err := r.client.Del(ctx, key).Err(); err != nil {
			return removed, fmt.Errorf("redis delete %s: %w", key, err)
		}
		removed++
	}

	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("redis scan pattern %s: %w", pattern, err)
	}

	r.logger.Debug("cache entries invalidated", zap.String("pattern", pattern), zap.Int("removed", removed))
	return removed, nil
}

// Ping checks Redis connectivity.
func (r *CacheRepository) Ping(ctx context.Context) error {
	if !r.Enabled() {
		return nil
	}
	return r.client.Ping(ctx).Err()
}

// Close releases the underlying Redis connection if present.
func (r *CacheRepository) Close() error {
	if !r.Enabled() {
		return nil
	}
	return r.client.Close()
}
