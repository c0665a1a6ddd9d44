// Package freecachestore implements storage.Backend over freecache, an
// in-process LRU cache with no GC pressure from cached entries.
package freecachestore

import (
	"context"
	"errors"
	"fmt"

	"github.com/coocood/freecache"
)

// Backend is a storage.Backend backed by a freecache.Cache.
type Backend struct {
	cache *freecache.Cache
}

// New returns a Backend with the given total byte size budget.
func New(sizeBytes int) *Backend {
	return &Backend{cache: freecache.NewCache(sizeBytes)}
}

// Get returns the bytes stored under key, if present.
func (b *Backend) Get(_ context.Context, key string) ([]byte, bool, error) {
	value, err := b.cache.Get([]byte(key))
	if err != nil {
		if errors.Is(err, freecache.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("freecachestore: get %q: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key with no expiration (freecache evicts by its
// own LRU policy once the size budget is exceeded).
func (b *Backend) Set(_ context.Context, key string, value []byte) error {
	if err := b.cache.Set([]byte(key), value, 0); err != nil {
		return fmt.Errorf("freecachestore: set %q: %w", key, err)
	}
	return nil
}

// Delete removes key. It is a no-op if key is absent.
func (b *Backend) Delete(_ context.Context, key string) error {
	b.cache.Del([]byte(key))
	return nil
}
