// Package securebackend wraps a storage.Backend with key hashing and, when
// a passphrase is configured, AES-256-GCM encryption of stored values.
// Reuses this module's own cachegate.HashKey/Encrypt/Decrypt (root
// security.go) instead of re-deriving the scrypt/AES-GCM plumbing a second
// time.
package securebackend

import (
	"context"
	"crypto/sha256"
	"fmt"

	"github.com/relaycache/cachegate"
	"github.com/relaycache/cachegate/storage"
)

// saltSeed derives a fixed salt for key derivation. A fixed, published salt
// is acceptable here because the secret is the passphrase, not the salt;
// callers needing per-deployment salts should derive their own Backend.
var saltSeed = sha256.Sum256([]byte("cachegate-securebackend-salt-v1"))

// Backend wraps an inner storage.Backend, hashing every key and, when a
// passphrase is set, encrypting every value.
type Backend struct {
	inner      storage.Backend
	passphrase []byte
}

// New wraps inner. An empty passphrase disables encryption; keys are always
// hashed regardless.
func New(inner storage.Backend, passphrase string) (*Backend, error) {
	if inner == nil {
		return nil, fmt.Errorf("securebackend: inner backend cannot be nil")
	}
	return &Backend{inner: inner, passphrase: []byte(passphrase)}, nil
}

// Get decrypts (if a passphrase is configured) the value stored under key's
// hash.
func (b *Backend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, ok, err := b.inner.Get(ctx, cachegate.HashKey(key))
	if err != nil || !ok {
		return nil, ok, err
	}
	if len(b.passphrase) == 0 {
		return raw, true, nil
	}
	plaintext, err := cachegate.Decrypt(b.passphrase, saltSeed[:], raw)
	if err != nil {
		return nil, false, fmt.Errorf("securebackend: decrypt %q: %w", key, err)
	}
	return plaintext, true, nil
}

// Set encrypts (if a passphrase is configured) value and stores it under
// key's hash.
func (b *Backend) Set(ctx context.Context, key string, value []byte) error {
	stored := value
	if len(b.passphrase) > 0 {
		ciphertext, err := cachegate.Encrypt(b.passphrase, saltSeed[:], value)
		if err != nil {
			return fmt.Errorf("securebackend: encrypt %q: %w", key, err)
		}
		stored = ciphertext
	}
	return b.inner.Set(ctx, cachegate.HashKey(key), stored)
}

// Delete removes the value stored under key's hash.
func (b *Backend) Delete(ctx context.Context, key string) error {
	return b.inner.Delete(ctx, cachegate.HashKey(key))
}
