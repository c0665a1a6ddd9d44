// Package multistore cascades a storage.Backend lookup across tiers (e.g.
// memstore, then redisstore, then diskstore), promoting a hit back into
// every faster tier it missed.
package multistore

import (
	"context"

	"github.com/relaycache/cachegate/storage"
)

// Backend cascades Get across tiers in order, Set/Delete across all of
// them.
type Backend struct {
	tiers []storage.Backend
}

// New builds a Backend over tiers, fastest first. It returns nil if tiers
// is empty or contains a nil or duplicate entry.
func New(tiers ...storage.Backend) *Backend {
	if len(tiers) == 0 {
		return nil
	}
	seen := make(map[storage.Backend]bool, len(tiers))
	for _, t := range tiers {
		if t == nil || seen[t] {
			return nil
		}
		seen[t] = true
	}
	return &Backend{tiers: tiers}
}

// Get tries each tier in order, promoting a hit into every faster tier it
// wasn't found in. Promotion errors are ignored: the value was still found.
func (b *Backend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	for i, tier := range b.tiers {
		value, ok, err := tier.Get(ctx, key)
		if err != nil {
			return nil, false, err
		}
		if ok {
			b.promote(ctx, key, value, i)
			return value, true, nil
		}
	}
	return nil, false, nil
}

func (b *Backend) promote(ctx context.Context, key string, value []byte, foundAt int) {
	for i := 0; i < foundAt; i++ {
		_ = b.tiers[i].Set(ctx, key, value) //nolint:errcheck // promotion is best-effort
	}
}

// Set writes value to every tier.
func (b *Backend) Set(ctx context.Context, key string, value []byte) error {
	for _, tier := range b.tiers {
		if err := tier.Set(ctx, key, value); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes key from every tier.
func (b *Backend) Delete(ctx context.Context, key string) error {
	for _, tier := range b.tiers {
		if err := tier.Delete(ctx, key); err != nil {
			return err
		}
	}
	return nil
}
