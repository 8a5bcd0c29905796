package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCacheBackend is a CacheBackend over a shared Redis instance. It lets
// several gitgauge processes on one host share the hot listing cache.
type RedisCacheBackend struct {
	client *redis.Client
	prefix string
}

// NewRedisCacheBackend connects to Redis at addr and verifies the connection.
func NewRedisCacheBackend(ctx context.Context, addr, password string, db int) (*RedisCacheBackend, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return &RedisCacheBackend{client: client, prefix: "gitgauge:"}, nil
}

// Set stores a value under key with a TTL.
func (r *RedisCacheBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache key %s: %w", key, err)
	}
	return nil
}

// Get returns the value for key, or (nil, nil) on a miss.
func (r *RedisCacheBackend) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cache key %s: %w", key, err)
	}
	return val, nil
}

// Delete removes a key.
func (r *RedisCacheBackend) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete cache key %s: %w", key, err)
	}
	return nil
}

// Flush removes all keys under the gitgauge prefix.
func (r *RedisCacheBackend) Flush(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, r.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to flush cache: %w", err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache keys: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (r *RedisCacheBackend) Close() error {
	return r.client.Close()
}
