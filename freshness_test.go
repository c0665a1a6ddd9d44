package cachegate

import (
	"net/http"
	"testing"
	"time"
)

func headerWithDate(now time.Time, extra ...string) http.Header {
	h := http.Header{}
	h.Set("Date", now.UTC().Format(http.TimeFormat))
	for i := 0; i+1 < len(extra); i += 2 {
		h.Set(extra[i], extra[i+1])
	}
	return h
}

func TestRequestForcesRevalidation(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)
	if requestForcesRevalidation(req) {
		t.Error("plain request should not force revalidation")
	}
	req.Header.Set("Cache-Control", "no-cache")
	if !requestForcesRevalidation(req) {
		t.Error("Cache-Control: no-cache should force revalidation")
	}

	req2, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)
	req2.Header.Set("Pragma", "no-cache")
	if !requestForcesRevalidation(req2) {
		t.Error("legacy Pragma: no-cache should force revalidation")
	}
}

func TestRequestOnlyIfCached(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)
	req.Header.Set("Cache-Control", "only-if-cached")
	if !requestOnlyIfCached(req) {
		t.Error("expected only-if-cached to be detected")
	}
}

func TestResponseCacheable(t *testing.T) {
	now := time.Now()
	req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)
	resp := &http.Response{StatusCode: http.StatusOK, Header: headerWithDate(now)}
	if !responseCacheable(req, resp) {
		t.Error("plain 200 GET should be cacheable")
	}

	postReq, _ := http.NewRequest(http.MethodPost, "http://example.com", nil)
	if responseCacheable(postReq, resp) {
		t.Error("POST should never be cacheable")
	}

	noStore := &http.Response{StatusCode: http.StatusOK, Header: headerWithDate(now, "Cache-Control", "no-store")}
	if responseCacheable(req, noStore) {
		t.Error("no-store response should not be cacheable")
	}

	private := &http.Response{StatusCode: http.StatusOK, Header: headerWithDate(now, "Cache-Control", "private")}
	if responseCacheable(req, private) {
		t.Error("private response should not be cacheable")
	}

	noDate := &http.Response{StatusCode: http.StatusOK, Header: http.Header{}}
	if responseCacheable(req, noDate) {
		t.Error("response without Date header should not be cacheable")
	}

	authReq, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)
	authReq.Header.Set("Authorization", "basic foobarbaz")
	if responseCacheable(authReq, resp) {
		t.Error("response to a request carrying Authorization should not be cacheable")
	}

	cookieReq, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)
	cookieReq.Header.Set("Cookie", "session=abc123")
	if responseCacheable(cookieReq, resp) {
		t.Error("response to a request carrying Cookie should not be cacheable")
	}
}

func TestIsPrivateRequest(t *testing.T) {
	req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)
	if isPrivateRequest(req) {
		t.Error("plain request should not be private")
	}

	authReq, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)
	authReq.Header.Set("Authorization", "basic foobarbaz")
	if !isPrivateRequest(authReq) {
		t.Error("Authorization should mark a request private")
	}

	cookieReq, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)
	cookieReq.Header.Set("Cookie", "session=abc123")
	if !isPrivateRequest(cookieReq) {
		t.Error("Cookie should mark a request private")
	}
}

func TestFreshnessLifetimeSMaxAgeOverride(t *testing.T) {
	now := time.Now()
	h := headerWithDate(now, "Cache-Control", "max-age=10, s-maxage=100")
	entry := CacheEntry{entry: storedEntry{responseHeaders: h, storedAt: now}}
	if got := freshnessLifetime(entry, h); got != 100*time.Second {
		t.Errorf("freshnessLifetime = %v, want 100s (s-maxage should win)", got)
	}
}

func TestStaleButRevalidatable(t *testing.T) {
	now := time.Now()
	h := headerWithDate(now.Add(-65*time.Second), "Cache-Control", "max-age=60, stale-while-revalidate=30")
	entry := CacheEntry{entry: storedEntry{responseHeaders: h}}
	if !staleButRevalidatable(entry, h, now) {
		t.Error("5s stale, inside a 30s grace window, should still be revalidatable")
	}

	tooOld := headerWithDate(now.Add(-200*time.Second), "Cache-Control", "max-age=60, stale-while-revalidate=30")
	entryOld := CacheEntry{entry: storedEntry{responseHeaders: tooOld}}
	if staleButRevalidatable(entryOld, tooOld, now) {
		t.Error("far past grace window should not be revalidatable")
	}
}

func TestStaleIfErrorAllowed(t *testing.T) {
	now := time.Now()
	h := headerWithDate(now.Add(-65*time.Second), "Cache-Control", "max-age=60, stale-if-error=30")
	entry := CacheEntry{entry: storedEntry{responseHeaders: h}}
	if !staleIfErrorAllowed(entry, h, now) {
		t.Error("expected stale-if-error grace to allow serving stale")
	}
}

func TestMustRevalidate(t *testing.T) {
	h := http.Header{}
	h.Set("Cache-Control", "must-revalidate")
	if !mustRevalidate(h) {
		t.Error("expected must-revalidate to be detected")
	}
	h2 := http.Header{}
	h2.Set("Cache-Control", "proxy-revalidate")
	if !mustRevalidate(h2) {
		t.Error("expected proxy-revalidate to be detected")
	}
}
