package cachegate

import (
	"net/http"
	"time"

	"github.com/relaycache/cachegate/storage"
)

// storedEntry is the in-memory, http.Header-typed view of a storage.Entry
// used while Context evaluates candidates. storage.Entry carries headers as
// map[string][]string for JSON portability across backends; storedEntry
// wraps them as http.Header for case-insensitive lookups.
type storedEntry struct {
	requestHeaders  http.Header
	responseHeaders http.Header
	storedAt        time.Time
	digest          string
}

func newStoredEntry(e storage.Entry) storedEntry {
	return storedEntry{
		requestHeaders:  http.Header(e.RequestHeaders),
		responseHeaders: http.Header(e.ResponseHeaders),
		storedAt:        e.StoredAt,
		digest:          e.ResponseHeaders.Get(headerContentDigest),
	}
}

func (e storedEntry) toStorageEntry() storage.Entry {
	return storage.Entry{
		RequestHeaders:  map[string][]string(e.requestHeaders),
		ResponseHeaders: map[string][]string(e.responseHeaders),
		StoredAt:        e.storedAt,
	}
}

// CacheEntry is a stored response viewed through the lens of freshness,
// age, validators and cacheability.
type CacheEntry struct {
	entry storedEntry
}

// Date returns the stored response's Date header value.
func (c CacheEntry) Date() (time.Time, error) {
	return parseDate(c.entry.responseHeaders)
}

// Age returns the entry's current age, computed at call time: max(0,
// now-Date).
func (c CacheEntry) Age(now time.Time) time.Duration {
	date, err := c.Date()
	if err != nil {
		return 0
	}
	age := now.Sub(date)
	if age < 0 {
		age = 0
	}
	return age
}

// FreshnessLifetime computes the freshness lifetime: max-age if present,
// else Expires-Date, else 0.
func (c CacheEntry) FreshnessLifetime() time.Duration {
	cc := parseCacheControl(c.entry.responseHeaders)
	if maxAge, ok := cc[directiveMaxAge]; ok {
		if d, err := parseSeconds(maxAge); err == nil {
			return d
		}
		return 0
	}

	date, err := c.Date()
	if err != nil {
		return 0
	}
	expiresHeader := c.entry.responseHeaders.Get("Expires")
	if expiresHeader == "" {
		return 0
	}
	expires, err := time.Parse(time.RFC1123, expiresHeader)
	if err != nil {
		return 0
	}
	lifetime := expires.Sub(date)
	if lifetime < 0 {
		return 0
	}
	return lifetime
}

// Fresh reports whether the entry is fresh at now: age < freshness lifetime.
// A stored response carrying Cache-Control: no-cache is never fresh,
// regardless of any max-age/Expires it also carries: no-cache demands
// revalidation before every reuse.
func (c CacheEntry) Fresh(now time.Time) bool {
	if parseCacheControl(c.entry.responseHeaders).has(directiveNoCache) {
		return false
	}
	return c.Age(now) < c.FreshnessLifetime()
}

// Validators returns the ETag/Last-Modified pair usable to build a
// conditional revalidation request.
func (c CacheEntry) Validators() (etag, lastModified string) {
	return c.entry.responseHeaders.Get("ETag"), c.entry.responseHeaders.Get("Last-Modified")
}

// Digest returns the stored response's X-Content-Digest, the EntityStore
// key for its body.
func (c CacheEntry) Digest() string {
	return c.entry.digest
}
