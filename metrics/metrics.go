// Package metrics defines the Collector seam the gateway and its storage
// wrappers report through, so a concrete metrics backend (Prometheus or
// otherwise) is never a hard dependency of the core.
package metrics

import "time"

// Collector receives cache and gateway events for external observability.
type Collector interface {
	// RecordCacheOperation records a storage.Backend operation.
	RecordCacheOperation(operation, backend, result string, duration time.Duration)

	// RecordCacheSize records the current size of a backend in bytes.
	RecordCacheSize(backend string, sizeBytes int64)

	// RecordCacheEntries records the current number of entries in a backend.
	RecordCacheEntries(backend string, count int64)

	// RecordHTTPRequest records a request Gateway served.
	RecordHTTPRequest(method, cacheStatus string, statusCode int, duration time.Duration)

	// RecordStaleResponse records a stale response served under
	// stale-while-revalidate or stale-if-error.
	RecordStaleResponse(reason string)
}

// NoOpCollector discards every event. It is the Collector used when none is
// configured.
type NoOpCollector struct{}

func (NoOpCollector) RecordCacheOperation(string, string, string, time.Duration) {}
func (NoOpCollector) RecordCacheSize(string, int64)                              {}
func (NoOpCollector) RecordCacheEntries(string, int64)                           {}
func (NoOpCollector) RecordHTTPRequest(string, string, int, time.Duration)       {}
func (NoOpCollector) RecordStaleResponse(string)                                 {}

// DefaultCollector is used by InstrumentedBackend when no Collector is
// supplied.
var DefaultCollector Collector = NoOpCollector{}

var _ Collector = NoOpCollector{}
