// Package leveldbstore implements storage.Backend over goleveldb.
package leveldbstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
)

// Backend is a storage.Backend backed by an embedded LevelDB instance.
type Backend struct {
	db *leveldb.DB
}

// New opens (or creates) a LevelDB database at path.
func New(path string) (*Backend, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("leveldbstore: open %q: %w", path, err)
	}
	return &Backend{db: db}, nil
}

// NewWithDB wraps an already opened *leveldb.DB.
func NewWithDB(db *leveldb.DB) *Backend {
	return &Backend{db: db}
}

// Get returns the bytes stored under key, if present.
func (b *Backend) Get(_ context.Context, key string) ([]byte, bool, error) {
	data, err := b.db.Get([]byte(key), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("leveldbstore: get %q: %w", key, err)
	}
	return data, true, nil
}

// Set stores value under key.
func (b *Backend) Set(_ context.Context, key string, value []byte) error {
	if err := b.db.Put([]byte(key), value, nil); err != nil {
		return fmt.Errorf("leveldbstore: set %q: %w", key, err)
	}
	return nil
}

// Delete removes key. It is a no-op if key is absent.
func (b *Backend) Delete(_ context.Context, key string) error {
	if err := b.db.Delete([]byte(key), nil); err != nil {
		return fmt.Errorf("leveldbstore: delete %q: %w", key, err)
	}
	return nil
}

// Close releases the underlying database handle.
func (b *Backend) Close() error {
	return b.db.Close()
}
