package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// recorder is a fake twin that remembers what it was sent.
type recorder struct {
	mu      sync.Mutex
	method  string
	path    string
	headers http.Header
	body    map[string]any
}

func (rc *recorder) last() (string, string, http.Header, map[string]any) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.method, rc.path, rc.headers, rc.body
}

func newTestServer(t *testing.T) (*httptest.Server, *recorder) {
	t.Helper()
	rc := &recorder{}
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/sessions", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"session_id": "sess-1", "token": "tok-1"})
	})
	mux.HandleFunc("POST /v1/wallet/debit", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"error":{"message":"insufficient funds","type":"Payment Required","code":402,"kind":"insufficient_funds"}}`))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		rc.mu.Lock()
		rc.method, rc.path, rc.headers, rc.body = r.Method, r.URL.Path, r.Header.Clone(), body
		rc.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok", "path": r.URL.Path})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, rc
}

// ---------------------------------------------------------------------------
// TwinClient
// ---------------------------------------------------------------------------

func TestNewTwinClientURLTrimsSlash(t *testing.T) {
	tc := NewTwinClientURL(t, "http://localhost:4100/")
	if tc.BaseURL != "http://localhost:4100" {
		t.Errorf("unexpected base URL %q", tc.BaseURL)
	}
}

func TestVerbsAndBodies(t *testing.T) {
	srv, rc := newTestServer(t)
	tc := NewTwinClient(t, srv)

	tests := []struct {
		name   string
		call   func() *Response
		method string
		path   string
	}{
		{"get", func() *Response { return tc.Get("/v1/cart") }, "GET", "/v1/cart"},
		{"post", func() *Response { return tc.Post("/v1/cart/items", map[string]any{"product_id": "1"}) }, "POST", "/v1/cart/items"},
		{"patch", func() *Response { return tc.Patch("/v1/cart/items/1", map[string]any{"quantity": 3}) }, "PATCH", "/v1/cart/items/1"},
		{"delete", func() *Response { return tc.Delete("/v1/cart/items/1") }, "DELETE", "/v1/cart/items/1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.call().AssertStatus(http.StatusOK)
			method, path, headers, body := rc.last()
			if method != tt.method || path != tt.path {
				t.Errorf("got %s %s", method, path)
			}
			if tt.method == "POST" && (body["product_id"] != "1" || headers.Get("Content-Type") != "application/json") {
				t.Errorf("JSON body not sent: %+v", body)
			}
			if headers.Get("Authorization") != "" {
				t.Error("anonymous client sent credentials")
			}
		})
	}
}

func TestOpenSessionSendsToken(t *testing.T) {
	srv, rc := newTestServer(t)
	anon := NewTwinClient(t, srv)

	client, id := anon.OpenSession()
	if id != "sess-1" || client.Token != "tok-1" {
		t.Fatalf("unexpected session %q token %q", id, client.Token)
	}
	if anon.Token != "" {
		t.Error("OpenSession must not mutate the original client")
	}

	client.Get("/v1/wallet")
	_, _, headers, _ := rc.last()
	if got := headers.Get("Authorization"); got != "Bearer tok-1" {
		t.Errorf("expected bearer token, got %q", got)
	}
}

func TestDoWithHeaders(t *testing.T) {
	srv, rc := newTestServer(t)
	tc := NewTwinClient(t, srv)

	tc.DoWithHeaders("POST", "/v1/cart/checkout", nil, map[string]string{"Idempotency-Key": "k1"})
	_, _, headers, _ := rc.last()
	if headers.Get("Idempotency-Key") != "k1" {
		t.Errorf("header not sent: %v", headers)
	}
}

func TestResponseHelpers(t *testing.T) {
	srv, _ := newTestServer(t)
	tc := NewTwinClient(t, srv)

	resp := tc.Get("/v1/catalog/products")
	if resp.AssertStatus(http.StatusOK) != resp || resp.AssertBodyContains(`"status"`) != resp {
		t.Error("assertions must return the response for chaining")
	}
	if m := resp.JSONMap(); m["path"] != "/v1/catalog/products" {
		t.Errorf("unexpected body %+v", m)
	}
	var typed struct {
		Status string `json:"status"`
	}
	resp.JSON(&typed)
	if typed.Status != "ok" {
		t.Errorf("unexpected typed body %+v", typed)
	}
}

func TestAssertError(t *testing.T) {
	srv, _ := newTestServer(t)
	tc := NewTwinClient(t, srv)
	tc.Post("/v1/wallet/debit", map[string]any{"amount": 1}).
		AssertError(http.StatusPaymentRequired, "insufficient_funds")
}

// ---------------------------------------------------------------------------
// AdminClient
// ---------------------------------------------------------------------------

func TestAdminClientRoutes(t *testing.T) {
	srv, rc := newTestServer(t)
	ac := NewAdminClient(NewTwinClient(t, srv))

	tests := []struct {
		call   func() *Response
		method string
		path   string
	}{
		{ac.Health, "GET", "/admin/health"},
		{ac.Reset, "POST", "/admin/reset"},
		{ac.GetState, "GET", "/admin/state"},
		{func() *Response { return ac.LoadState(map[string]any{"sess-1": map[string]any{}}) }, "POST", "/admin/state"},
		{func() *Response { return ac.InjectFault("/v1/cart/checkout", map[string]any{"status_code": 503}) }, "POST", "/admin/fault/v1/cart/checkout"},
		{func() *Response { return ac.RemoveFault("/v1/cart/checkout") }, "DELETE", "/admin/fault/v1/cart/checkout"},
		{ac.GetRequests, "GET", "/admin/requests"},
		{ac.FlushWebhooks, "POST", "/admin/webhooks/flush"},
		{func() *Response { return ac.AdvanceTime("24h") }, "POST", "/admin/time/advance"},
		{ac.GetConfig, "GET", "/admin/config"},
		{func() *Response { return ac.UpdateConfig(map[string]any{"latency": "10ms"}) }, "PATCH", "/admin/config"},
	}
	for _, tt := range tests {
		tt.call().AssertStatus(http.StatusOK)
		method, path, _, _ := rc.last()
		if method != tt.method || path != tt.path {
			t.Errorf("expected %s %s, got %s %s", tt.method, tt.path, method, path)
		}
	}

	ac.AdvanceTime("24h")
	if _, _, _, body := rc.last(); body["duration"] != "24h" {
		t.Errorf("duration not sent: %+v", body)
	}
}
