package cachegate

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/relaycache/cachegate/metrics"
	"github.com/relaycache/cachegate/storage"
	"github.com/relaycache/cachegate/storage/memstore"
)

var errBoom = errors.New("boom")

// fakeCollector records the arguments of its last RecordHTTPRequest and
// RecordStaleResponse call, and how many times each fired.
type fakeCollector struct {
	metrics.NoOpCollector
	httpRequests int
	lastStatus   string
	lastCode     int
	staleReasons []string
}

func (f *fakeCollector) RecordHTTPRequest(method, cacheStatus string, statusCode int, d time.Duration) {
	f.httpRequests++
	f.lastStatus = cacheStatus
	f.lastCode = statusCode
}

func (f *fakeCollector) RecordStaleResponse(reason string) {
	f.staleReasons = append(f.staleReasons, reason)
}

func newTestGateway(origin OriginFunc) *Gateway {
	meta := storage.NewMetaStore(memstore.New())
	entity := storage.NewEntityStore(memstore.New())
	return NewGateway(meta, entity, origin)
}

func TestGatewayServeHTTPServesAndCaches(t *testing.T) {
	now := time.Now()
	var calls int32
	origin := OriginFunc(func(ctx context.Context, req *http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		h := http.Header{}
		h.Set("Cache-Control", "max-age=60")
		h.Set("Date", now.UTC().Format(http.TimeFormat))
		return &http.Response{StatusCode: http.StatusOK, Header: h, Body: io.NopCloser(strings.NewReader("hi"))}, nil
	})
	g := newTestGateway(origin)

	req := httptest.NewRequest(http.MethodGet, "http://example.com/a", nil)
	rec := httptest.NewRecorder()
	g.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "hi" {
		t.Fatalf("body = %q, want %q", rec.Body.String(), "hi")
	}

	req2 := httptest.NewRequest(http.MethodGet, "http://example.com/a", nil)
	rec2 := httptest.NewRecorder()
	g.ServeHTTP(rec2, req2)

	if !g.LastPerformed(EventHit) {
		t.Error("expected second request to hit the cache")
	}
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("origin called %d times, want 1", got)
	}
}

func TestGatewayServeHTTPOriginErrorIsBadGateway(t *testing.T) {
	origin := OriginFunc(func(ctx context.Context, req *http.Request) (*http.Response, error) {
		return nil, errBoom
	})
	g := newTestGateway(origin)

	req := httptest.NewRequest(http.MethodGet, "http://example.com/a", nil)
	rec := httptest.NewRecorder()
	g.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}

func TestGatewayClientUsesCache(t *testing.T) {
	now := time.Now()
	var calls int32
	origin := OriginFunc(func(ctx context.Context, req *http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		h := http.Header{}
		h.Set("Cache-Control", "max-age=60")
		h.Set("Date", now.UTC().Format(http.TimeFormat))
		return &http.Response{StatusCode: http.StatusOK, Header: h, Body: io.NopCloser(strings.NewReader("hi"))}, nil
	})
	g := newTestGateway(origin)
	client := g.Client()

	req, _ := http.NewRequest(http.MethodGet, "http://example.com/a", nil)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("first Do: %v", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	req2, _ := http.NewRequest(http.MethodGet, "http://example.com/a", nil)
	resp2, err := client.Do(req2)
	if err != nil {
		t.Fatalf("second Do: %v", err)
	}
	resp2.Body.Close()

	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Errorf("origin called %d times, want 1", got)
	}
}

func TestGatewayServeHTTPRecordsCollectorMetrics(t *testing.T) {
	now := time.Now()
	origin := OriginFunc(func(ctx context.Context, req *http.Request) (*http.Response, error) {
		h := http.Header{}
		h.Set("Cache-Control", "max-age=60")
		h.Set("Date", now.UTC().Format(http.TimeFormat))
		return &http.Response{StatusCode: http.StatusOK, Header: h, Body: io.NopCloser(strings.NewReader("hi"))}, nil
	})
	meta := storage.NewMetaStore(memstore.New())
	entity := storage.NewEntityStore(memstore.New())
	collector := &fakeCollector{}
	g := NewGateway(meta, entity, origin, WithGatewayCollector(collector))

	req := httptest.NewRequest(http.MethodGet, "http://example.com/a", nil)
	g.ServeHTTP(httptest.NewRecorder(), req)
	if collector.httpRequests != 1 {
		t.Fatalf("httpRequests = %d, want 1", collector.httpRequests)
	}
	if collector.lastStatus != "miss" {
		t.Errorf("lastStatus = %q, want miss", collector.lastStatus)
	}

	req2 := httptest.NewRequest(http.MethodGet, "http://example.com/a", nil)
	g.ServeHTTP(httptest.NewRecorder(), req2)
	if collector.httpRequests != 2 {
		t.Fatalf("httpRequests = %d, want 2", collector.httpRequests)
	}
	if collector.lastStatus != "hit" {
		t.Errorf("lastStatus = %q, want hit", collector.lastStatus)
	}
	if collector.lastCode != http.StatusOK {
		t.Errorf("lastCode = %d, want 200", collector.lastCode)
	}
}

func TestGatewayServeHTTPRecordsErrorOnOriginFailure(t *testing.T) {
	origin := OriginFunc(func(ctx context.Context, req *http.Request) (*http.Response, error) {
		return nil, errBoom
	})
	meta := storage.NewMetaStore(memstore.New())
	entity := storage.NewEntityStore(memstore.New())
	collector := &fakeCollector{}
	g := NewGateway(meta, entity, origin, WithGatewayCollector(collector))

	req := httptest.NewRequest(http.MethodGet, "http://example.com/a", nil)
	g.ServeHTTP(httptest.NewRecorder(), req)

	if collector.httpRequests != 1 {
		t.Fatalf("httpRequests = %d, want 1", collector.httpRequests)
	}
	if collector.lastStatus != "error" {
		t.Errorf("lastStatus = %q, want error", collector.lastStatus)
	}
	if collector.lastCode != http.StatusBadGateway {
		t.Errorf("lastCode = %d, want 502", collector.lastCode)
	}
}
