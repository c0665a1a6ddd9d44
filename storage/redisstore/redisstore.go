// Package redisstore implements storage.Backend over Redis using go-redis:
// a key prefix, and Get/Set/Delete translating go-redis's Nil sentinel into
// the not-found boolean.
package redisstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "cachegate:"

// Backend is a storage.Backend backed by a Redis client.
type Backend struct {
	client *redis.Client
}

// New wraps an already configured *redis.Client.
func New(client *redis.Client) *Backend {
	return &Backend{client: client}
}

func prefixed(key string) string {
	return keyPrefix + key
}

// Get returns the bytes stored under key, if present.
func (b *Backend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := b.client.Get(ctx, prefixed(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redisstore: get %q: %w", key, err)
	}
	return data, true, nil
}

// Set stores value under key with no expiration; eviction is left to the
// backend's own policy.
func (b *Backend) Set(ctx context.Context, key string, value []byte) error {
	if err := b.client.Set(ctx, prefixed(key), value, 0).Err(); err != nil {
		return fmt.Errorf("redisstore: set %q: %w", key, err)
	}
	return nil
}

// Delete removes key. It is a no-op if key is absent.
func (b *Backend) Delete(ctx context.Context, key string) error {
	if err := b.client.Del(ctx, prefixed(key)).Err(); err != nil {
		return fmt.Errorf("redisstore: delete %q: %w", key, err)
	}
	return nil
}
