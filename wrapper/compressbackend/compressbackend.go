// Package compressbackend wraps a storage.Backend with transparent
// compression, prefixing every stored value with a one-byte algorithm
// marker so a value written under one algorithm can still be decompressed
// after the wrapper is reconfigured to another.
package compressbackend

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"sync/atomic"

	"github.com/andybalholm/brotli"
	"github.com/golang/snappy"

	"github.com/relaycache/cachegate/storage"
)

// Algorithm identifies which codec compressed a stored value.
type Algorithm int

const (
	// Gzip trades compression ratio for broad familiarity and stdlib support.
	Gzip Algorithm = iota
	// Brotli gives the best compression ratio at higher CPU cost.
	Brotli
	// Snappy is the fastest codec, at a lower compression ratio.
	Snappy
)

func (a Algorithm) String() string {
	switch a {
	case Gzip:
		return "gzip"
	case Brotli:
		return "brotli"
	case Snappy:
		return "snappy"
	default:
		return "unknown"
	}
}

// Stats reports the wrapper's cumulative compression effectiveness.
type Stats struct {
	CompressedBytes   int64
	UncompressedBytes int64
	CompressedCount   int64
	SkippedCount      int64
	CompressionRatio  float64
	SavingsPercent    float64
}

// uncompressedMarker flags a value stored without compression, e.g. because
// compressing it failed.
const uncompressedMarker = 0

// Backend wraps an inner storage.Backend, compressing values with algorithm
// on Set and transparently decompressing on Get regardless of which
// algorithm a given stored value actually used.
type Backend struct {
	inner     storage.Backend
	algorithm Algorithm
	level     int

	compressedBytes   atomic.Int64
	uncompressedBytes atomic.Int64
	compressedCount   atomic.Int64
	skippedCount      atomic.Int64
}

// New wraps inner, compressing new values with algorithm. level is only
// meaningful for Brotli (1-11, with 0 selecting level 6); it is ignored
// otherwise.
func New(inner storage.Backend, algorithm Algorithm, level int) (*Backend, error) {
	if inner == nil {
		return nil, fmt.Errorf("compressbackend: inner backend cannot be nil")
	}
	if algorithm == Brotli {
		if level == 0 {
			level = 6
		}
		if level < 0 || level > 11 {
			return nil, fmt.Errorf("compressbackend: invalid brotli level %d", level)
		}
	}
	return &Backend{inner: inner, algorithm: algorithm, level: level}, nil
}

// Get decompresses the value stored under key, dispatching on its marker
// byte regardless of the Backend's currently configured algorithm.
func (b *Backend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, ok, err := b.inner.Get(ctx, key)
	if err != nil || !ok {
		return nil, ok, err
	}
	if len(raw) == 0 {
		return raw, true, nil
	}

	marker := raw[0]
	if marker == uncompressedMarker {
		return raw[1:], true, nil
	}

	data, err := decompress(Algorithm(marker-1), raw[1:])
	if err != nil {
		return nil, false, fmt.Errorf("compressbackend: decompress %q: %w", key, err)
	}
	return data, true, nil
}

// Set compresses value and stores it with a leading algorithm marker byte.
// A compression failure falls back to storing the value uncompressed rather
// than losing it.
func (b *Backend) Set(ctx context.Context, key string, value []byte) error {
	compressed, err := compress(b.algorithm, b.level, value)
	if err != nil {
		b.skippedCount.Add(1)
		b.uncompressedBytes.Add(int64(len(value)))
		data := make([]byte, len(value)+1)
		data[0] = uncompressedMarker
		copy(data[1:], value)
		return b.inner.Set(ctx, key, data)
	}

	b.compressedCount.Add(1)
	b.compressedBytes.Add(int64(len(compressed)))
	b.uncompressedBytes.Add(int64(len(value)))

	data := make([]byte, len(compressed)+1)
	data[0] = byte(b.algorithm + 1)
	copy(data[1:], compressed)
	return b.inner.Set(ctx, key, data)
}

// Delete removes key from the inner backend.
func (b *Backend) Delete(ctx context.Context, key string) error {
	return b.inner.Delete(ctx, key)
}

// Stats reports cumulative compression effectiveness since construction.
func (b *Backend) Stats() Stats {
	compressed := b.compressedBytes.Load()
	uncompressed := b.uncompressedBytes.Load()

	var ratio, savings float64
	if uncompressed > 0 {
		ratio = float64(compressed) / float64(uncompressed)
		savings = (1.0 - ratio) * 100
	}

	return Stats{
		CompressedBytes:   compressed,
		UncompressedBytes: uncompressed,
		CompressedCount:   b.compressedCount.Load(),
		SkippedCount:      b.skippedCount.Load(),
		CompressionRatio:  ratio,
		SavingsPercent:    savings,
	}
}

func compress(algorithm Algorithm, level int, data []byte) ([]byte, error) {
	switch algorithm {
	case Gzip:
		var buf bytes.Buffer
		w := gzip.NewWriter(&buf)
		if _, err := w.Write(data); err != nil {
			_ = w.Close()
			return nil, fmt.Errorf("gzip write: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("gzip close: %w", err)
		}
		return buf.Bytes(), nil
	case Brotli:
		var buf bytes.Buffer
		w := brotli.NewWriterLevel(&buf, level)
		if _, err := w.Write(data); err != nil {
			_ = w.Close()
			return nil, fmt.Errorf("brotli write: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("brotli close: %w", err)
		}
		return buf.Bytes(), nil
	case Snappy:
		return snappy.Encode(nil, data), nil
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %v", algorithm)
	}
}

func decompress(algorithm Algorithm, data []byte) ([]byte, error) {
	switch algorithm {
	case Gzip:
		r, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		defer r.Close()
		return io.ReadAll(r)
	case Brotli:
		return io.ReadAll(brotli.NewReader(bytes.NewReader(data)))
	case Snappy:
		return snappy.Decode(nil, data)
	default:
		return nil, fmt.Errorf("unsupported decompression algorithm: %v", algorithm)
	}
}
