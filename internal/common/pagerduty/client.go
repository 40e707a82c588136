// internal/common/pagerduty/client.go
package pagerduty

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	commonhttp "pagerduty-workers/internal/common/http"
	"pagerduty-workers/internal/common/metrics"
)

const (
	DefaultBaseURL  = "https://api.pagerduty.com"
	DefaultPageSize = 100

	acceptHeader = "application/vnd.pagerduty+json;version=2"
)

type ClientConfig struct {
	APIToken string
	BaseURL  string
	Timeout  time.Duration
	PageSize int
	// Transport overrides the default round tripper, mostly for tests.
	Transport http.RoundTripper
}

// Client talks to the PagerDuty REST API v2 without per-resource types:
// entities are addressed by their collection name (incidents, services,
// escalation_policies, ...) and objects come back as generic maps.
type Client struct {
	baseURL  string
	pageSize int
	http     *commonhttp.Client
}

func NewClient(cfg ClientConfig) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}

	var hc *commonhttp.Client
	if cfg.Transport != nil {
		hc = commonhttp.NewClientWithTransport(cfg.Timeout, cfg.Transport)
	} else {
		hc = commonhttp.NewClient(cfg.Timeout)
	}
	hc.SetHeader("Accept", acceptHeader)
	hc.SetHeader("Authorization", "Token token="+cfg.APIToken)

	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		pageSize: cfg.PageSize,
		http:     hc,
	}
}

// Find lists entity objects matching params. It follows offset pagination
// until PagerDuty reports no more results. A "maximum" param caps the
// number of objects returned and is not sent upstream.
func (c *Client) Find(ctx context.Context, entity string, params Params) ([]map[string]interface{}, error) {
	q := params.Clone()
	maximum := 0
	if v, ok := q.PopString("maximum"); ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, &ArgumentError{Method: "find", Argument: "maximum", Reason: "must be a non-negative integer"}
		}
		maximum = n
	}

	limit := c.pageSize
	if v, ok := q.PopString("limit"); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	offset := 0
	if v, ok := q.PopString("offset"); ok {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	results := make([]map[string]interface{}, 0)
	for {
		page := encodeQuery(q)
		page.Set("limit", strconv.Itoa(limit))
		page.Set("offset", strconv.Itoa(offset))

		body, err := c.do(ctx, http.MethodGet, collectionPath(entity), page, nil, "")
		if err != nil {
			return nil, err
		}

		items := objectList(body[entity])
		for _, item := range items {
			results = append(results, item)
			if maximum > 0 && len(results) >= maximum {
				return results, nil
			}
		}

		more, _ := body["more"].(bool)
		if !more || len(items) == 0 {
			return results, nil
		}
		offset += len(items)
	}
}

// Fetch returns a single object by id.
func (c *Client) Fetch(ctx context.Context, entity, id string, params Params) (map[string]interface{}, error) {
	body, err := c.do(ctx, http.MethodGet, objectPath(entity, id), encodeQuery(params), nil, "")
	if err != nil {
		return nil, err
	}
	return unwrap(body, Singular(entity)), nil
}

// Delete removes an object. PagerDuty answers 204 with no body, so the
// result is a small receipt naming the deleted id.
func (c *Client) Delete(ctx context.Context, entity, id string, params Params) (map[string]interface{}, error) {
	if _, err := c.do(ctx, http.MethodDelete, objectPath(entity, id), encodeQuery(params), nil, ""); err != nil {
		return nil, err
	}
	return map[string]interface{}{"id": id, "deleted": true}, nil
}

// Create posts payload wrapped in the singular entity key. Extra params are
// merged into the top level of the request body.
func (c *Client) Create(ctx context.Context, entity, fromEmail string, payload interface{}, params Params) (map[string]interface{}, error) {
	singular := Singular(entity)
	reqBody := map[string]interface{}{}
	for k, v := range params {
		reqBody[k] = v
	}
	reqBody[singular] = payload

	body, err := c.do(ctx, http.MethodPost, collectionPath(entity), nil, reqBody, fromEmail)
	if err != nil {
		return nil, err
	}
	return unwrap(body, singular), nil
}

// Call runs a per-object method such as acknowledge or notes. The params
// key "from_email" is sent as the From header.
func (c *Client) Call(ctx context.Context, entity, method, id string, params Params) (interface{}, error) {
	build, ok := lookupMethod(entity, method)
	if !ok {
		return nil, &UnknownMethodError{Entity: entity, Method: method}
	}

	p := params.Clone()
	from, _ := p.PopString("from_email")

	req, err := build(entity, id, p)
	if err != nil {
		return nil, err
	}
	if req.needsFrom && from == "" {
		return nil, &ArgumentError{Method: method, Argument: "from_email"}
	}

	var query url.Values
	var reqBody interface{}
	if req.httpMethod == http.MethodGet || req.httpMethod == http.MethodDelete {
		query = encodeQuery(p)
	} else {
		merged := map[string]interface{}{}
		for k, v := range p {
			merged[k] = v
		}
		for k, v := range req.body {
			merged[k] = v
		}
		reqBody = merged
	}

	body, err := c.do(ctx, req.httpMethod, req.path, query, reqBody, from)
	if err != nil {
		return nil, err
	}
	if req.resultKey == "" {
		return body, nil
	}
	if v, ok := body[req.resultKey]; ok {
		return v, nil
	}
	return body, nil
}

// HasMethod reports whether Call knows how to run method on entity.
func (c *Client) HasMethod(entity, method string) bool {
	_, ok := lookupMethod(entity, method)
	return ok
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body interface{}, from string) (map[string]interface{}, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if from != "" {
		req.Header.Set("From", from)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.APIRequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.APIRequests.WithLabelValues(method, "error").Inc()
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()
	metrics.APIRequests.WithLabelValues(method, strconv.Itoa(resp.StatusCode)).Inc()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, parseAPIError(resp, raw)
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]interface{}{}, nil
	}

	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return out, nil
}

func parseAPIError(resp *http.Response, raw []byte) *APIError {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		RetryAfter: resp.Header.Get("Retry-After"),
	}

	var envelope struct {
		Error struct {
			Message string   `json:"message"`
			Code    int      `json:"code"`
			Errors  []string `json:"errors"`
		} `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && envelope.Error.Message != "" {
		apiErr.Message = envelope.Error.Message
		apiErr.Code = envelope.Error.Code
		apiErr.Errors = envelope.Error.Errors
		return apiErr
	}

	apiErr.Message = strings.TrimSpace(string(raw))
	return apiErr
}

func collectionPath(entity string) string {
	return "/" + url.PathEscape(entity)
}

func objectPath(entity, id string) string {
	return collectionPath(entity) + "/" + url.PathEscape(id)
}

func unwrap(body map[string]interface{}, key string) map[string]interface{} {
	if obj, ok := body[key].(map[string]interface{}); ok {
		return obj
	}
	return body
}

func objectList(v interface{}) []map[string]interface{} {
	list, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]map[string]interface{}, 0, len(list))
	for _, item := range list {
		if obj, ok := item.(map[string]interface{}); ok {
			out = append(out, obj)
		}
	}
	return out
}
