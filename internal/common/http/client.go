// internal/common/http/client.go
package http

import (
	"context"
	"net/http"
	"time"
)

// Client is a thin http.Client wrapper that stamps a fixed set of headers
// on every request.
type Client struct {
	httpClient *http.Client
	headers    http.Header
}

func NewClient(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		headers:    http.Header{},
	}
}

// NewClientWithTransport lets tests and callers swap the round tripper.
func NewClientWithTransport(timeout time.Duration, transport http.RoundTripper) *Client {
	c := NewClient(timeout)
	c.httpClient.Transport = transport
	return c
}

// SetHeader registers a header sent with every request. Request-level
// headers win over these.
func (c *Client) SetHeader(key, value string) {
	c.headers.Set(key, value)
}

func (c *Client) Do(req *http.Request) (*http.Response, error) {
	for k, vals := range c.headers {
		if req.Header.Get(k) != "" {
			continue
		}
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}
	return c.httpClient.Do(req)
}

func (c *Client) DoWithContext(ctx context.Context, req *http.Request) (*http.Response, error) {
	return c.Do(req.WithContext(ctx))
}
