// Package client provides an HTTP client for the agrotwin admin API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// AdminClient talks to /admin/* on one running twin.
type AdminClient struct {
	baseURL string
	http    *http.Client
}

// New creates an AdminClient for baseURL with a 5-second timeout.
func New(baseURL string) *AdminClient {
	return &AdminClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

// Health checks GET /admin/health. Returns (ok, response body or error message).
func (c *AdminClient) Health(ctx context.Context) (bool, string) {
	status, body, err := c.do(ctx, http.MethodGet, "/admin/health", nil)
	if err != nil {
		return false, err.Error()
	}
	if status == http.StatusOK {
		return true, body
	}
	return false, fmt.Sprintf("status %d: %s", status, body)
}

// Reset calls POST /admin/reset.
func (c *AdminClient) Reset(ctx context.Context) (string, error) {
	return c.expectOK(ctx, "reset", http.MethodPost, "/admin/reset", nil)
}

// Seed POSTs the contents of a JSON file to /admin/state.
func (c *AdminClient) Seed(ctx context.Context, filePath string) (string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("reading seed file: %w", err)
	}
	if !json.Valid(data) {
		return "", fmt.Errorf("seed file %s is not valid JSON", filePath)
	}
	return c.expectOK(ctx, "seed", http.MethodPost, "/admin/state", data)
}

// Status is a summary of a running twin.
type Status struct {
	Health   map[string]any
	Config   map[string]any
	Time     map[string]any
	Sessions int
}

// Status gathers health, runtime config, simulated time and the session
// count.
func (c *AdminClient) Status(ctx context.Context) (*Status, error) {
	var s Status
	var sessions map[string]json.RawMessage
	for _, q := range []struct {
		path string
		into any
	}{
		{"/admin/health", &s.Health},
		{"/admin/config", &s.Config},
		{"/admin/time", &s.Time},
		{"/admin/state", &sessions},
	} {
		body, err := c.expectOK(ctx, "status", http.MethodGet, q.path, nil)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(body), q.into); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", q.path, err)
		}
	}
	s.Sessions = len(sessions)
	return &s, nil
}

// AdvanceTime moves simulated time forward by d.
func (c *AdminClient) AdvanceTime(ctx context.Context, d time.Duration) (string, error) {
	body, _ := json.Marshal(map[string]string{"duration": d.String()})
	return c.expectOK(ctx, "advance time", http.MethodPost, "/admin/time/advance", body)
}

func (c *AdminClient) expectOK(ctx context.Context, op, method, path string, payload []byte) (string, error) {
	status, body, err := c.do(ctx, method, path, payload)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", fmt.Errorf("%s returned status %d: %s", op, status, body)
	}
	return body, nil
}

func (c *AdminClient) do(ctx context.Context, method, path string, payload []byte) (int, string, error) {
	var rdr io.Reader
	if payload != nil {
		rdr = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rdr)
	if err != nil {
		return 0, "", err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, "", fmt.Errorf("reading response: %w", err)
	}
	return resp.StatusCode, strings.TrimSpace(string(body)), nil
}
