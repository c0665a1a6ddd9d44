// Package prometheus provides a metrics.Collector backed by
// prometheus/client_golang, plus InstrumentedBackend, a storage.Backend
// wrapper that reports every operation through a Collector.
package prometheus

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/relaycache/cachegate/metrics"
	"github.com/relaycache/cachegate/storage"
)

const (
	resultHit     = "hit"
	resultMiss    = "miss"
	resultSuccess = "success"
	resultError   = "error"
)

// Collector implements metrics.Collector using prometheus/client_golang
// vectors, registered against reg.
type Collector struct {
	operationDuration *prometheus.HistogramVec
	cacheSize         *prometheus.GaugeVec
	cacheEntries      *prometheus.GaugeVec
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	staleResponses    *prometheus.CounterVec
}

// NewCollector registers the cache's metric vectors against reg and returns
// a Collector reporting through them.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		operationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cachegate",
			Name:      "backend_operation_duration_seconds",
			Help:      "Duration of storage.Backend operations.",
		}, []string{"operation", "backend", "result"}),
		cacheSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "cachegate",
			Name:      "backend_size_bytes",
			Help:      "Current size of a storage backend in bytes.",
		}, []string{"backend"}),
		cacheEntries: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "cachegate",
			Name:      "backend_entries",
			Help:      "Current number of entries in a storage backend.",
		}, []string{"backend"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cachegate",
			Name:      "http_requests_total",
			Help:      "Requests served through the gateway, by cache status.",
		}, []string{"method", "cache_status", "code"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cachegate",
			Name:      "http_request_duration_seconds",
			Help:      "Duration of requests served through the gateway.",
		}, []string{"method", "cache_status"}),
		staleResponses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cachegate",
			Name:      "stale_responses_total",
			Help:      "Responses served stale, by reason.",
		}, []string{"reason"}),
	}

	for _, collector := range []prometheus.Collector{
		c.operationDuration, c.cacheSize, c.cacheEntries, c.httpRequests, c.httpDuration, c.staleResponses,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// RecordCacheOperation implements metrics.Collector.
func (c *Collector) RecordCacheOperation(operation, backend, result string, duration time.Duration) {
	c.operationDuration.WithLabelValues(operation, backend, result).Observe(duration.Seconds())
}

// RecordCacheSize implements metrics.Collector.
func (c *Collector) RecordCacheSize(backend string, sizeBytes int64) {
	c.cacheSize.WithLabelValues(backend).Set(float64(sizeBytes))
}

// RecordCacheEntries implements metrics.Collector.
func (c *Collector) RecordCacheEntries(backend string, count int64) {
	c.cacheEntries.WithLabelValues(backend).Set(float64(count))
}

// RecordHTTPRequest implements metrics.Collector.
func (c *Collector) RecordHTTPRequest(method, cacheStatus string, statusCode int, duration time.Duration) {
	c.httpRequests.WithLabelValues(method, cacheStatus, strconv.Itoa(statusCode)).Inc()
	c.httpDuration.WithLabelValues(method, cacheStatus).Observe(duration.Seconds())
}

// RecordStaleResponse implements metrics.Collector.
func (c *Collector) RecordStaleResponse(reason string) {
	c.staleResponses.WithLabelValues(reason).Inc()
}

var _ metrics.Collector = (*Collector)(nil)

// InstrumentedBackend wraps a storage.Backend, reporting every operation's
// outcome and latency through a Collector.
type InstrumentedBackend struct {
	inner     storage.Backend
	collector metrics.Collector
	backend   string
}

// NewInstrumentedBackend wraps inner. A nil collector falls back to
// metrics.DefaultCollector.
func NewInstrumentedBackend(inner storage.Backend, backend string, collector metrics.Collector) *InstrumentedBackend {
	if collector == nil {
		collector = metrics.DefaultCollector
	}
	return &InstrumentedBackend{inner: inner, collector: collector, backend: backend}
}

// Get implements storage.Backend.
func (b *InstrumentedBackend) Get(ctx context.Context, key string) ([]byte, bool, error) {
	start := time.Now()
	value, ok, err := b.inner.Get(ctx, key)
	duration := time.Since(start)

	result := resultMiss
	switch {
	case err != nil:
		result = resultError
	case ok:
		result = resultHit
	}
	b.collector.RecordCacheOperation("get", b.backend, result, duration)
	return value, ok, err
}

// Set implements storage.Backend.
func (b *InstrumentedBackend) Set(ctx context.Context, key string, value []byte) error {
	start := time.Now()
	err := b.inner.Set(ctx, key, value)
	duration := time.Since(start)

	result := resultSuccess
	if err != nil {
		result = resultError
	}
	b.collector.RecordCacheOperation("set", b.backend, result, duration)
	return err
}

// Delete implements storage.Backend.
func (b *InstrumentedBackend) Delete(ctx context.Context, key string) error {
	start := time.Now()
	err := b.inner.Delete(ctx, key)
	duration := time.Since(start)

	result := resultSuccess
	if err != nil {
		result = resultError
	}
	b.collector.RecordCacheOperation("delete", b.backend, result, duration)
	return err
}

var _ storage.Backend = (*InstrumentedBackend)(nil)
