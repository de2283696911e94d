// Package testutil provides HTTP clients and assertions for exercising a
// running agrotwin in tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// TwinClient sends JSON requests to a twin. A client with a token sends it
// as a bearer credential on every request.
type TwinClient struct {
	BaseURL    string
	HTTPClient *http.Client
	Token      string
	t          *testing.T
}

// NewTwinClient creates a client pointed at a test server.
func NewTwinClient(t *testing.T, server *httptest.Server) *TwinClient {
	return &TwinClient{
		BaseURL:    server.URL,
		HTTPClient: server.Client(),
		t:          t,
	}
}

// NewTwinClientURL creates a client pointed at baseURL.
func NewTwinClientURL(t *testing.T, baseURL string) *TwinClient {
	return &TwinClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{},
		t:          t,
	}
}

// WithToken returns a copy of c that authenticates with token.
func (c *TwinClient) WithToken(token string) *TwinClient {
	cp := *c
	cp.Token = token
	return &cp
}

// OpenSession calls POST /v1/sessions and returns a client bound to the new
// session along with its id.
func (c *TwinClient) OpenSession() (*TwinClient, string) {
	c.t.Helper()
	var out struct {
		SessionID string `json:"session_id"`
		Token     string `json:"token"`
	}
	c.Post("/v1/sessions", nil).AssertStatus(http.StatusCreated).JSON(&out)
	if out.Token == "" || out.SessionID == "" {
		c.t.Fatalf("session response missing token or id: %+v", out)
	}
	return c.WithToken(out.Token), out.SessionID
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Body       []byte
	Headers    http.Header
	t          *testing.T
}

// JSON unmarshals the body into v.
func (r *Response) JSON(v any) {
	r.t.Helper()
	if err := json.Unmarshal(r.Body, v); err != nil {
		r.t.Fatalf("failed to unmarshal response: %v\nbody: %s", err, string(r.Body))
	}
}

// JSONMap returns the body as a map.
func (r *Response) JSONMap() map[string]any {
	r.t.Helper()
	var m map[string]any
	r.JSON(&m)
	return m
}

func (r *Response) AssertStatus(expected int) *Response {
	r.t.Helper()
	if r.StatusCode != expected {
		r.t.Errorf("expected status %d, got %d\nbody: %s", expected, r.StatusCode, string(r.Body))
	}
	return r
}

func (r *Response) AssertBodyContains(substr string) *Response {
	r.t.Helper()
	if !strings.Contains(string(r.Body), substr) {
		r.t.Errorf("expected body to contain %q, got: %s", substr, string(r.Body))
	}
	return r
}

// AssertError checks status and the error envelope's kind code.
func (r *Response) AssertError(status int, kind string) *Response {
	r.t.Helper()
	r.AssertStatus(status)
	var env struct {
		Error struct {
			Kind string `json:"kind"`
		} `json:"error"`
	}
	if err := json.Unmarshal(r.Body, &env); err != nil {
		r.t.Errorf("body is not an error envelope: %s", string(r.Body))
		return r
	}
	if env.Error.Kind != kind {
		r.t.Errorf("expected error kind %q, got %q\nbody: %s", kind, env.Error.Kind, string(r.Body))
	}
	return r
}

func (c *TwinClient) Get(path string) *Response {
	c.t.Helper()
	return c.do("GET", path, nil, nil)
}

// Post sends body as JSON. A nil body sends no payload.
func (c *TwinClient) Post(path string, body any) *Response {
	c.t.Helper()
	return c.do("POST", path, body, nil)
}

func (c *TwinClient) Patch(path string, body any) *Response {
	c.t.Helper()
	return c.do("PATCH", path, body, nil)
}

func (c *TwinClient) Delete(path string) *Response {
	c.t.Helper()
	return c.do("DELETE", path, nil, nil)
}

// DoWithHeaders performs a request with extra headers, e.g. Idempotency-Key.
func (c *TwinClient) DoWithHeaders(method, path string, body any, headers map[string]string) *Response {
	c.t.Helper()
	return c.do(method, path, body, headers)
}

func (c *TwinClient) do(method, path string, body any, headers map[string]string) *Response {
	c.t.Helper()

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			c.t.Fatalf("failed to marshal body: %v", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.BaseURL+path, bodyReader)
	if err != nil {
		c.t.Fatalf("failed to create request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		c.t.Fatalf("failed to read response: %v", err)
	}
	return &Response{
		StatusCode: resp.StatusCode,
		Body:       respBody,
		Headers:    resp.Header,
		t:          c.t,
	}
}

// AdminClient wraps the /admin control plane.
type AdminClient struct {
	*TwinClient
}

func NewAdminClient(tc *TwinClient) *AdminClient {
	return &AdminClient{tc}
}

func (ac *AdminClient) Reset() *Response {
	ac.t.Helper()
	return ac.Post("/admin/reset", nil)
}

func (ac *AdminClient) GetState() *Response {
	ac.t.Helper()
	return ac.Get("/admin/state")
}

func (ac *AdminClient) LoadState(state any) *Response {
	ac.t.Helper()
	return ac.Post("/admin/state", state)
}

// InjectFault registers a fault for the request path endpoint, e.g.
// "/v1/cart/checkout".
func (ac *AdminClient) InjectFault(endpoint string, fault any) *Response {
	ac.t.Helper()
	return ac.Post("/admin/fault/"+strings.TrimPrefix(endpoint, "/"), fault)
}

func (ac *AdminClient) RemoveFault(endpoint string) *Response {
	ac.t.Helper()
	return ac.Delete("/admin/fault/" + strings.TrimPrefix(endpoint, "/"))
}

func (ac *AdminClient) GetRequests() *Response {
	ac.t.Helper()
	return ac.Get("/admin/requests")
}

func (ac *AdminClient) FlushWebhooks() *Response {
	ac.t.Helper()
	return ac.Post("/admin/webhooks/flush", nil)
}

// AdvanceTime moves simulated time by a Go duration string such as "24h".
func (ac *AdminClient) AdvanceTime(duration string) *Response {
	ac.t.Helper()
	return ac.Post("/admin/time/advance", map[string]string{"duration": duration})
}

func (ac *AdminClient) GetConfig() *Response {
	ac.t.Helper()
	return ac.Get("/admin/config")
}

func (ac *AdminClient) UpdateConfig(updates map[string]any) *Response {
	ac.t.Helper()
	return ac.Patch("/admin/config", updates)
}

func (ac *AdminClient) Health() *Response {
	ac.t.Helper()
	return ac.Get("/admin/health")
}
