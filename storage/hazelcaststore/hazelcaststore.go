// Package hazelcaststore implements storage.Backend over a Hazelcast
// distributed map.
package hazelcaststore

import (
	"context"
	"fmt"

	"github.com/hazelcast/hazelcast-go-client"
)

const keyPrefix = "cachegate:"

// Backend is a storage.Backend backed by a Hazelcast distributed map.
type Backend struct {
	m *hazelcast.Map
}

// New wraps an already obtained *hazelcast.Map.
func New(m *hazelcast.Map) *Backend {
	return &Backend{m: m}
}

func prefixed(key string) string {
	return keyPrefix + key
}

// Get returns the bytes stored under key, if present.
func (b *Backend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := b.m.Get(ctx, prefixed(key))
	if err != nil {
		return nil, false, fmt.Errorf("hazelcaststore: get %q: %w", key, err)
	}
	if val == nil {
		return nil, false, nil
	}
	data, ok := val.([]byte)
	if !ok {
		return nil, false, nil
	}
	return data, true, nil
}

// Set stores value under key.
func (b *Backend) Set(ctx context.Context, key string, value []byte) error {
	if err := b.m.Set(ctx, prefixed(key), value); err != nil {
		return fmt.Errorf("hazelcaststore: set %q: %w", key, err)
	}
	return nil
}

// Delete removes key. It is a no-op if key is absent.
func (b *Backend) Delete(ctx context.Context, key string) error {
	if _, err := b.m.Remove(ctx, prefixed(key)); err != nil {
		return fmt.Errorf("hazelcaststore: delete %q: %w", key, err)
	}
	return nil
}
