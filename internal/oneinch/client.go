// Package oneinch is a typed client for the aggregator REST API. Every request goes through a
// throttle.Limiter shared by all callers of the same API key.
package oneinch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/zamyatin-zkex/swapdash/pkg/throttle"
)

const maxErrorBody = 512

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *throttle.Limiter
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func New(baseURL, apiKey string, limiter *throttle.Limiter, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 15 * time.Second},
		limiter: limiter,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// call runs one request through the limiter and decodes the JSON answer into T.
func call[T any](ctx context.Context, c *Client, method, path string, query url.Values, body any) (T, error) {
	return throttle.Do(ctx, c.limiter, func(ctx context.Context) (T, error) {
		var out T

		req, err := c.request(ctx, method, path, query, body)
		if err != nil {
			return out, err
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return out, fmt.Errorf("%s %s: %w", method, path, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			return out, &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
		}

		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return out, fmt.Errorf("%w: decode %s: %s", ErrInvalidResponse, path, err)
		}
		return out, nil
	})
}

func (c *Client) request(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return req, nil
}
