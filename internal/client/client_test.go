package client

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type bodies struct {
	mu   sync.Mutex
	seen []string
}

func (b *bodies) add(s string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seen = append(b.seen, s)
}

func (b *bodies) all() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.seen...)
}

func fakeAdmin(t *testing.T) (*httptest.Server, *bodies) {
	t.Helper()
	seen := &bodies{}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /admin/health", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"status":"ok","uptime":"3s"}`)
	})
	mux.HandleFunc("POST /admin/reset", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"status":"reset"}`)
	})
	mux.HandleFunc("POST /admin/state", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		seen.add(string(body))
		if r.Header.Get("Content-Type") != "application/json" {
			w.WriteHeader(http.StatusUnsupportedMediaType)
			return
		}
		io.WriteString(w, `{"status":"loaded"}`)
	})
	mux.HandleFunc("GET /admin/state", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"sess_a":{},"sess_b":{}}`)
	})
	mux.HandleFunc("GET /admin/config", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"latency":"0s","checkout_delay":"2s"}`)
	})
	mux.HandleFunc("GET /admin/time", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"offset":"0s"}`)
	})
	mux.HandleFunc("POST /admin/time/advance", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		seen.add(string(body))
		io.WriteString(w, `{"status":"advanced"}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, seen
}

func TestHealth(t *testing.T) {
	srv, _ := fakeAdmin(t)
	ok, body := New(srv.URL + "/").Health(context.Background())
	assert.True(t, ok)
	assert.Contains(t, body, `"status":"ok"`)

	ok, msg := New("http://127.0.0.1:1").Health(context.Background())
	assert.False(t, ok)
	assert.NotEmpty(t, msg)
}

func TestResetAndSeed(t *testing.T) {
	srv, seen := fakeAdmin(t)
	c := New(srv.URL)

	out, err := c.Reset(context.Background())
	require.NoError(t, err)
	assert.Equal(t, `{"status":"reset"}`, out)

	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"sess_a":{"wallet_balance":1000}}`), 0o644))
	_, err = c.Seed(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{`{"sess_a":{"wallet_balance":1000}}`}, seen.all())

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{nope`), 0o644))
	_, err = c.Seed(context.Background(), bad)
	assert.ErrorContains(t, err, "not valid JSON")

	_, err = c.Seed(context.Background(), filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorContains(t, err, "reading seed file")
}

func TestStatus(t *testing.T) {
	srv, _ := fakeAdmin(t)
	s, err := New(srv.URL).Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "ok", s.Health["status"])
	assert.Equal(t, "2s", s.Config["checkout_delay"])
	assert.Equal(t, 2, s.Sessions)
}

func TestAdvanceTime(t *testing.T) {
	srv, seen := fakeAdmin(t)
	_, err := New(srv.URL).AdvanceTime(context.Background(), 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, []string{`{"duration":"24h0m0s"}`}, seen.all())
}

func TestNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusTeapot)
	}))
	t.Cleanup(srv.Close)
	_, err := New(srv.URL).Reset(context.Background())
	assert.ErrorContains(t, err, "status 418")
}
