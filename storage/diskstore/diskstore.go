// Package diskstore implements storage.Backend over diskv, supplementing an
// in-memory index with persistent files on disk.
package diskstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/peterbourgon/diskv"
)

// Backend is a storage.Backend backed by diskv.
type Backend struct {
	d *diskv.Diskv
}

// New returns a Backend storing files under basePath, with a 100MB in-memory
// cache of recently touched entries.
func New(basePath string) *Backend {
	return &Backend{
		d: diskv.New(diskv.Options{
			BasePath:     basePath,
			CacheSizeMax: 100 * 1024 * 1024,
		}),
	}
}

// NewWithDiskv wraps an already configured *diskv.Diskv.
func NewWithDiskv(d *diskv.Diskv) *Backend {
	return &Backend{d: d}
}

// Get returns the bytes stored under key, if present.
func (b *Backend) Get(_ context.Context, key string) ([]byte, bool, error) {
	data, err := b.d.Read(keyToFilename(key))
	if err != nil {
		return nil, false, nil
	}
	return data, true, nil
}

// Set stores value under key.
func (b *Backend) Set(_ context.Context, key string, value []byte) error {
	if err := b.d.WriteStream(keyToFilename(key), bytes.NewReader(value), true); err != nil {
		return fmt.Errorf("diskstore: write key: %w", err)
	}
	return nil
}

// Delete removes key. It is a no-op if key is absent.
func (b *Backend) Delete(_ context.Context, key string) error {
	_ = b.d.Erase(keyToFilename(key)) //nolint:errcheck // file not found is acceptable
	return nil
}

func keyToFilename(key string) string {
	h := sha256.New()
	_, _ = io.WriteString(h, key)
	return hex.EncodeToString(h.Sum(nil))
}
