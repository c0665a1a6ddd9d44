// Package memcachestore implements storage.Backend over memcache using
// bradfitz/gomemcache.
package memcachestore

import (
	"context"
	"errors"
	"fmt"

	"github.com/bradfitz/gomemcache/memcache"
)

const keyPrefix = "cachegate:"

// Backend is a storage.Backend backed by a memcache client.
type Backend struct {
	client *memcache.Client
}

// New wraps an already configured *memcache.Client.
func New(client *memcache.Client) *Backend {
	return &Backend{client: client}
}

func prefixed(key string) string {
	return keyPrefix + key
}

// Get returns the bytes stored under key, if present.
func (b *Backend) Get(_ context.Context, key string) ([]byte, bool, error) {
	item, err := b.client.Get(prefixed(key))
	if err != nil {
		if errors.Is(err, memcache.ErrCacheMiss) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("memcachestore: get %q: %w", key, err)
	}
	return item.Value, true, nil
}

// Set stores value under key.
func (b *Backend) Set(_ context.Context, key string, value []byte) error {
	item := &memcache.Item{Key: prefixed(key), Value: value}
	if err := b.client.Set(item); err != nil {
		return fmt.Errorf("memcachestore: set %q: %w", key, err)
	}
	return nil
}

// Delete removes key. It is a no-op if key is absent.
func (b *Backend) Delete(_ context.Context, key string) error {
	if err := b.client.Delete(prefixed(key)); err != nil {
		if errors.Is(err, memcache.ErrCacheMiss) {
			return nil
		}
		return fmt.Errorf("memcachestore: delete %q: %w", key, err)
	}
	return nil
}
