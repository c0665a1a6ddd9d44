// Package blobstore implements storage.Backend over a gocloud.dev/blob
// bucket, so the same code serves S3, GCS, Azure Blob or a local directory
// depending only on which driver the caller blank-imports. No concrete
// cloud SDK is imported here, keeping this package free of a hard
// aws-sdk-go/cloud.google.com/go dependency.
package blobstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"
)

// Config configures a Backend.
type Config struct {
	// BucketURL is the Go Cloud blob URL, e.g. "s3://bucket?region=us-west-2"
	// or "mem://" for an in-memory bucket used in tests.
	BucketURL string

	// KeyPrefix is prepended to every blob key.
	KeyPrefix string

	// Timeout bounds each blob operation when ctx carries no deadline.
	Timeout time.Duration

	// Bucket is an optional pre-opened bucket; if set, BucketURL is ignored.
	Bucket *blob.Bucket
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{KeyPrefix: "cache/", Timeout: 30 * time.Second}
}

// Backend is a storage.Backend backed by a cloud-agnostic blob bucket.
type Backend struct {
	bucket    *blob.Bucket
	keyPrefix string
	timeout   time.Duration
}

// New opens cfg.BucketURL (or uses cfg.Bucket if already provided).
func New(ctx context.Context, cfg Config) (*Backend, error) {
	if cfg.BucketURL == "" && cfg.Bucket == nil {
		return nil, fmt.Errorf("blobstore: either BucketURL or Bucket must be provided")
	}
	def := DefaultConfig()
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = def.KeyPrefix
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}

	bucket := cfg.Bucket
	if bucket == nil {
		var err error
		bucket, err = blob.OpenBucket(ctx, cfg.BucketURL)
		if err != nil {
			return nil, fmt.Errorf("blobstore: open bucket: %w", err)
		}
	}

	return &Backend{bucket: bucket, keyPrefix: cfg.KeyPrefix, timeout: cfg.Timeout}, nil
}

// NewWithBucket wraps an already opened bucket.
func NewWithBucket(bucket *blob.Bucket, keyPrefix string, timeout time.Duration) *Backend {
	if keyPrefix == "" {
		keyPrefix = DefaultConfig().KeyPrefix
	}
	if timeout == 0 {
		timeout = DefaultConfig().Timeout
	}
	return &Backend{bucket: bucket, keyPrefix: keyPrefix, timeout: timeout}
}

func (b *Backend) blobKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return b.keyPrefix + hex.EncodeToString(hash[:])
}

func (b *Backend) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, b.timeout)
}

// Get returns the bytes stored under key, if present.
func (b *Backend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	reader, err := b.bucket.NewReader(ctx, b.blobKey(key), nil)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("blobstore: get %q: %w", key, err)
	}
	defer reader.Close() //nolint:errcheck // best effort cleanup

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, false, fmt.Errorf("blobstore: read %q: %w", key, err)
	}
	return data, true, nil
}

// Set stores value under key.
func (b *Backend) Set(ctx context.Context, key string, value []byte) error {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	writer, err := b.bucket.NewWriter(ctx, b.blobKey(key), nil)
	if err != nil {
		return fmt.Errorf("blobstore: set %q: create writer: %w", key, err)
	}
	_, writeErr := writer.Write(value)
	closeErr := writer.Close()
	if writeErr != nil {
		return fmt.Errorf("blobstore: set %q: write: %w", key, writeErr)
	}
	if closeErr != nil {
		return fmt.Errorf("blobstore: set %q: close: %w", key, closeErr)
	}
	return nil
}

// Delete removes key. It is a no-op if key is absent.
func (b *Backend) Delete(ctx context.Context, key string) error {
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	if err := b.bucket.Delete(ctx, b.blobKey(key)); err != nil && gcerrors.Code(err) != gcerrors.NotFound {
		return fmt.Errorf("blobstore: delete %q: %w", key, err)
	}
	return nil
}
