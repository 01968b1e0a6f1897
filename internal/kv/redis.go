// Package kv wraps the external key-value store behind the two primitives
// the rest of the service needs: a lookup and a set-if-absent with TTL.
package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store is the key-value capability the short-link allocator builds on.
type Store interface {
	// Get returns the value for key, with false when the key is absent
	// (never stored or already evicted by its TTL).
	Get(ctx context.Context, key string) (string, bool, error)
	// SetNX stores value under key with the given TTL only if the key is
	// currently absent, and reports whether it won the write.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
}

// RedisStore is the production Store, backed by a single Redis instance.
// Redis owns record expiry: entries vanish on their own when the TTL lapses,
// so nothing in this service ever deletes a short-code entry explicitly.
type RedisStore struct {
	client *redis.Client
}

// Open connects to Redis and verifies the connection with a ping.
func Open(ctx context.Context, addr, password string, db int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Get(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("kv get %q: %w", key, err)
	}
	return val, true, nil
}

func (s *RedisStore) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, key, value, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("kv setnx %q: %w", key, err)
	}
	return ok, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
