package twincore

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func staticSettings(c Config) func() Config {
	return func() Config { return c }
}

func newTestMiddleware(c Config) *Middleware {
	return NewMiddleware(staticSettings(c), slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
}

// ---------------------------------------------------------------------------
// RequestLog
// ---------------------------------------------------------------------------

func TestRequestLogRingBuffer(t *testing.T) {
	rl := NewRequestLog(3)
	for i := 0; i < 5; i++ {
		rl.Add(RequestLogEntry{Path: fmt.Sprintf("/v1/products/%d", i)})
	}

	entries := rl.Entries()
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Path != "/v1/products/2" || entries[2].Path != "/v1/products/4" {
		t.Errorf("oldest entries were not evicted: %+v", entries)
	}

	entries[0].Path = "/mutated"
	if rl.Entries()[0].Path == "/mutated" {
		t.Error("Entries did not return a copy")
	}

	rl.Clear()
	if len(rl.Entries()) != 0 {
		t.Error("expected empty log after Clear")
	}
}

// ---------------------------------------------------------------------------
// FaultRegistry
// ---------------------------------------------------------------------------

func TestFaultRegistry(t *testing.T) {
	fr := NewFaultRegistry()
	fr.Set("/v1/cart/checkout", FaultConfig{StatusCode: 503})

	fault := fr.Check("/v1/cart/checkout")
	if fault == nil || fault.StatusCode != 503 || fault.Rate != 1.0 {
		t.Fatalf("expected always-on 503 fault, got %+v", fault)
	}
	if fr.Check("/v1/cart") != nil {
		t.Error("fault matched an unrelated path")
	}

	all := fr.All()
	all["/v1/cart/checkout"] = FaultConfig{StatusCode: 200}
	if fr.All()["/v1/cart/checkout"].StatusCode != 503 {
		t.Error("All did not return a copy")
	}

	if !fr.Remove("/v1/cart/checkout") || fr.Remove("/v1/cart/checkout") {
		t.Error("Remove should report existence exactly once")
	}

	fr.Set("/a", FaultConfig{StatusCode: 500})
	fr.Reset()
	if len(fr.All()) != 0 {
		t.Error("expected no faults after Reset")
	}
}

func TestFaultInjectionMiddleware(t *testing.T) {
	mw := newTestMiddleware(Config{})
	mw.Faults.Set("/v1/invest", FaultConfig{StatusCode: 502})
	mw.Faults.Set("/v1/custom", FaultConfig{StatusCode: 418, Body: `{"teapot":true}`})

	h := mw.FaultInjection(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		path   string
		status int
		body   string
	}{
		{"/v1/invest", 502, `"injected fault"`},
		{"/v1/custom", 418, `{"teapot":true}`},
		{"/v1/other", 200, ""},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest("POST", tt.path, nil))
		if rec.Code != tt.status {
			t.Errorf("%s: expected %d, got %d", tt.path, tt.status, rec.Code)
		}
		if tt.body != "" && !strings.Contains(rec.Body.String(), tt.body) {
			t.Errorf("%s: body %q missing %q", tt.path, rec.Body.String(), tt.body)
		}
	}
}

// ---------------------------------------------------------------------------
// Latency
// ---------------------------------------------------------------------------

func TestLatencyInjection(t *testing.T) {
	mw := newTestMiddleware(Config{Latency: 20 * time.Millisecond})
	h := mw.LatencyInjection(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	start := time.Now()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	if elapsed := time.Since(start); elapsed < 15*time.Millisecond {
		t.Errorf("expected at least 80%% of latency, took %v", elapsed)
	}
}

// ---------------------------------------------------------------------------
// Idempotency
// ---------------------------------------------------------------------------

func TestIdempotencyReplaysSuccess(t *testing.T) {
	mw := newTestMiddleware(Config{})
	calls := 0
	h := mw.Idempotency(func(r *http.Request) string { return r.Header.Get("X-Session") })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			JSON(w, http.StatusCreated, map[string]int{"call": calls})
		}))

	send := func(session, key string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", "/v1/cart/checkout", nil)
		req.Header.Set("X-Session", session)
		if key != "" {
			req.Header.Set("Idempotency-Key", key)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	first := send("s1", "k1")
	second := send("s1", "k1")
	if calls != 1 {
		t.Fatalf("handler ran %d times, expected 1", calls)
	}
	if second.Code != http.StatusCreated || second.Body.String() != first.Body.String() {
		t.Errorf("replay mismatch: %d %q vs %q", second.Code, second.Body.String(), first.Body.String())
	}
	if second.Header().Get("Idempotent-Replayed") != "true" {
		t.Error("expected replay header")
	}

	send("s2", "k1")
	send("s1", "")
	if calls != 3 {
		t.Errorf("other scopes and keyless requests must reach the handler, calls=%d", calls)
	}
}

func TestIdempotencyDoesNotCacheFailures(t *testing.T) {
	mw := newTestMiddleware(Config{})
	calls := 0
	h := mw.Idempotency(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		Error(w, http.StatusPaymentRequired, "insufficient funds")
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("POST", "/v1/investments", nil)
		req.Header.Set("Idempotency-Key", "same")
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
	if calls != 2 {
		t.Errorf("expected failures to be retried, calls=%d", calls)
	}
	if mw.Idempotent.Len() != 0 {
		t.Errorf("expected empty cache, got %d", mw.Idempotent.Len())
	}
}
