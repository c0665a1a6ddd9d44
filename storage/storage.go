// Package storage defines the MetaStore and EntityStore collaborators the
// cache core reads and writes, and a generic adapter pair that turns any
// key/value Backend into either role.
//
// A Backend stores opaque byte blobs under string keys (get/set/delete);
// the two adapters layer metadata/body separation on top of it, so every
// backend package below can serve as either a MetaStore or an EntityStore.
package storage

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"
)

// ErrNotFound is returned by EntityStore.Read when no body is stored under
// the digest. Backends report an absent key through Get's boolean result
// instead, and MetaStore.Lookup reports one as an empty list with no error.
var ErrNotFound = errors.New("storage: not found")

// Backend is the minimal key/value contract every storage package in this
// module implements: get, set and delete an opaque byte blob by string key.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Entry is the JSON-portable encoding of a stored response: a stored
// request-header subset paired with stored response headers (including the
// X-Content-Digest pointing into an EntityStore).
type Entry struct {
	RequestHeaders  map[string][]string `json:"request_headers"`
	ResponseHeaders map[string][]string `json:"response_headers"`
	StoredAt        time.Time           `json:"stored_at"`
}

// MetaStore maps a cache key to its ordered (newest first) list of Entry
// values.
type MetaStore interface {
	Lookup(ctx context.Context, key string) ([]Entry, error)
	Store(ctx context.Context, key string, entry Entry) error
	Purge(ctx context.Context, key string) error
	Hash(ctx context.Context) (map[string][]Entry, error)
}

// EntityStore is a content-addressed byte store keyed by a SHA-1 digest of
// the body.
type EntityStore interface {
	Write(ctx context.Context, body io.Reader) (digest string, err error)
	Read(ctx context.Context, digest string) (io.ReadCloser, error)
	Purge(ctx context.Context, digest string) error
}

// MaxEntriesPerKey bounds how many historical Vary variants NewMetaStore
// keeps per cache key before pruning the oldest. Eviction policy beyond
// this is left to the backend.
const MaxEntriesPerKey = 16

// metaStoreAdapter turns a Backend into a MetaStore by JSON-encoding the
// entry list under each key. Writes are per-key serialized with an
// in-process mutex so concurrent prepends from separate Context instances
// observe a consistent order.
type metaStoreAdapter struct {
	backend Backend

	mu      sync.Mutex
	keyLock map[string]*sync.Mutex
}

// NewMetaStore adapts backend into a MetaStore.
func NewMetaStore(backend Backend) MetaStore {
	return &metaStoreAdapter{backend: backend, keyLock: make(map[string]*sync.Mutex)}
}

func (m *metaStoreAdapter) lockFor(key string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.keyLock[key]
	if !ok {
		l = &sync.Mutex{}
		m.keyLock[key] = l
	}
	return l
}

func (m *metaStoreAdapter) Lookup(ctx context.Context, key string) ([]Entry, error) {
	raw, ok, err := m.backend.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("storage: malformed entry for key %q: %w", key, err)
	}
	return entries, nil
}

func (m *metaStoreAdapter) Store(ctx context.Context, key string, entry Entry) error {
	lock := m.lockFor(key)
	lock.Lock()
	defer lock.Unlock()

	existing, err := m.Lookup(ctx, key)
	if err != nil {
		// A corrupt existing record must not block a fresh store.
		existing = nil
	}

	entries := append([]Entry{entry}, existing...)
	if len(entries) > MaxEntriesPerKey {
		entries = entries[:MaxEntriesPerKey]
	}

	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("storage: encode entries for key %q: %w", key, err)
	}
	return m.backend.Set(ctx, key, raw)
}

func (m *metaStoreAdapter) Purge(ctx context.Context, key string) error {
	return m.backend.Delete(ctx, key)
}

// hashableBackend is implemented by backends (e.g. memstore) that can
// enumerate their own keys for the diagnostic Hash() snapshot. Backends
// that cannot enumerate keys cheaply (most network stores) leave Hash()
// returning an empty snapshot rather than scanning an entire remote
// keyspace on every diagnostic call.
type hashableBackend interface {
	Keys(ctx context.Context) ([]string, error)
}

func (m *metaStoreAdapter) Hash(ctx context.Context) (map[string][]Entry, error) {
	hb, ok := m.backend.(hashableBackend)
	if !ok {
		return map[string][]Entry{}, nil
	}
	keys, err := hb.Keys(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]Entry, len(keys))
	for _, k := range keys {
		entries, err := m.Lookup(ctx, k)
		if err != nil {
			continue
		}
		out[k] = entries
	}
	return out, nil
}

// entityStoreAdapter turns a Backend into a content-addressed EntityStore.
type entityStoreAdapter struct {
	backend Backend
}

// NewEntityStore adapts backend into an EntityStore.
func NewEntityStore(backend Backend) EntityStore {
	return &entityStoreAdapter{backend: backend}
}

func (e *entityStoreAdapter) Write(ctx context.Context, body io.Reader) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("storage: read body: %w", err)
	}
	digest := Digest(data)
	// Idempotent on digest collision: an identical body already stored
	// under this digest needs no second write.
	if existing, ok, err := e.backend.Get(ctx, digest); err == nil && ok && bytes.Equal(existing, data) {
		return digest, nil
	}
	if err := e.backend.Set(ctx, digest, data); err != nil {
		return "", err
	}
	return digest, nil
}

func (e *entityStoreAdapter) Read(ctx context.Context, digest string) (io.ReadCloser, error) {
	data, ok, err := e.backend.Get(ctx, digest)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (e *entityStoreAdapter) Purge(ctx context.Context, digest string) error {
	return e.backend.Delete(ctx, digest)
}

// Digest computes the EntityStore key for body bytes: a hex SHA-1 digest.
func Digest(body []byte) string {
	sum := sha1.Sum(body) //nolint:gosec // content-addressing digest, not a security boundary
	return hex.EncodeToString(sum[:])
}

// HashSnapshot renders a MetaStore's Hash() output deterministically, for
// tests and diagnostics.
func HashSnapshot(h map[string][]Entry) string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b bytes.Buffer
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %d entries\n", k, len(h[k]))
	}
	return b.String()
}

// CanonicalHeaders copies h into a fresh http.Header, canonicalizing keys.
// Backends that persist a request-header subset should pass it through this
// first so casing differences never break Vary matching.
func CanonicalHeaders(h map[string][]string) http.Header {
	out := make(http.Header, len(h))
	for k, v := range h {
		out[http.CanonicalHeaderKey(k)] = v
	}
	return out
}
