// Package proxy is a thin HTTP wrapper for the batching agent API. Calls are
// stateless per request and safe for concurrent use across workers.
package proxy

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client talks to one batching agent.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// New creates a client for the agent at baseURL (e.g. http://10.0.0.1:8080).
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Health probes GET /health; any 2xx counts as alive.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("proxy: health: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("proxy: health status %d", resp.StatusCode)
	}
	return nil
}

// Get fetches a key through the agent.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	return c.call(ctx, http.MethodGet, "/redis/get", url.Values{"key": {key}}, "value")
}

// Set writes a key through the agent and returns the server's status string.
func (c *Client) Set(ctx context.Context, key, value string) (string, error) {
	return c.call(ctx, http.MethodPost, "/redis/set", url.Values{"key": {key}, "value": {value}}, "result")
}

// Del deletes a key; the returned string is the removed-key count.
func (c *Client) Del(ctx context.Context, key string) (string, error) {
	return c.call(ctx, http.MethodDelete, "/redis/del", url.Values{"key": {key}}, "deleted")
}

// Exists checks a key; the returned string is the match count.
func (c *Client) Exists(ctx context.Context, key string) (string, error) {
	return c.call(ctx, http.MethodGet, "/redis/exists", url.Values{"key": {key}}, "exists")
}

// call runs one agent request and extracts field from the JSON body. Non-2xx
// statuses and malformed bodies come back as plain errors; the caller records
// them as operation failures, never aborts.
func (c *Client) call(ctx context.Context, method, path string, q url.Values, field string) (string, error) {
	u := c.BaseURL + path + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("proxy: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", fmt.Errorf("proxy: %s %s: read body: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("proxy: %s %s: status %d: %s", method, path, resp.StatusCode, truncate(body, 200))
	}

	var fields map[string]string
	if err := json.Unmarshal(body, &fields); err != nil {
		return "", fmt.Errorf("proxy: %s %s: malformed response: %w", method, path, err)
	}
	return fields[field], nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
