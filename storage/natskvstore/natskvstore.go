// Package natskvstore implements storage.Backend over a NATS JetStream
// key/value bucket.
package natskvstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
)

const keyPrefix = "cachegate."

// Backend is a storage.Backend backed by a JetStream KeyValue bucket.
type Backend struct {
	kv jetstream.KeyValue
}

// New wraps an already provisioned jetstream.KeyValue bucket.
func New(kv jetstream.KeyValue) *Backend {
	return &Backend{kv: kv}
}

func prefixed(key string) string {
	return keyPrefix + key
}

// Get returns the bytes stored under key, if present.
func (b *Backend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	entry, err := b.kv.Get(ctx, prefixed(key))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("natskvstore: get %q: %w", key, err)
	}
	return entry.Value(), true, nil
}

// Set stores value under key.
func (b *Backend) Set(ctx context.Context, key string, value []byte) error {
	if _, err := b.kv.Put(ctx, prefixed(key), value); err != nil {
		return fmt.Errorf("natskvstore: set %q: %w", key, err)
	}
	return nil
}

// Delete removes key. It is a no-op if key is absent.
func (b *Backend) Delete(ctx context.Context, key string) error {
	if err := b.kv.Delete(ctx, prefixed(key)); err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil
		}
		return fmt.Errorf("natskvstore: delete %q: %w", key, err)
	}
	return nil
}
