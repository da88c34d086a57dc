// Package http provides a fluent, retry-aware HTTP client.
//
// Usage:
//
//	resp, err := http.Get(base + "collections/products/records").
//	    Timeout(5 * time.Second).
//	    Retry(3, time.Second).
//	    WithContext(ctx).
//	    Send()
//
//	var page struct{ Items []Product }
//	err = resp.JSON(&page)
//
//	// PATCH JSON body
//	resp, err := http.Patch(base + "collections/products/records/" + id).
//	    Body(map[string]any{"stock": 8}).
//	    Send()
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	gohttp "net/http"
	"time"

	"github.com/huertohogar/huerto/pkg/logger"
)

// defaultTransport is the connection-pooled transport used in production.
var defaultTransport = &gohttp.Transport{
	Proxy:               gohttp.ProxyFromEnvironment,
	MaxIdleConns:        100,
	MaxIdleConnsPerHost: 20,
	IdleConnTimeout:     90 * time.Second,
}

// DefaultClient is the shared HTTP client used when a request does not name
// its own.
var DefaultClient = &gohttp.Client{
	Transport: defaultTransport,
}

// ------------------- Request -------------------

// Request is a fluent HTTP request builder.
type Request struct {
	method    string
	url       string
	headers   map[string]string
	body      interface{}
	timeout   time.Duration
	retries   int
	retryWait time.Duration
	ctx       context.Context
	client    *gohttp.Client
}

// Get starts a GET request.
func Get(url string) *Request { return newRequest(gohttp.MethodGet, url) }

// Post starts a POST request.
func Post(url string) *Request { return newRequest(gohttp.MethodPost, url) }

// Patch starts a PATCH request.
func Patch(url string) *Request { return newRequest(gohttp.MethodPatch, url) }

// Delete starts a DELETE request.
func Delete(url string) *Request { return newRequest(gohttp.MethodDelete, url) }

func newRequest(method, url string) *Request {
	return &Request{
		method:    method,
		url:       url,
		headers:   map[string]string{"Accept": "application/json"},
		timeout:   30 * time.Second,
		retries:   1,
		retryWait: 500 * time.Millisecond,
		ctx:       context.Background(),
		client:    DefaultClient,
	}
}

// Header adds a single header to the request.
func (r *Request) Header(key, value string) *Request {
	r.headers[key] = value
	return r
}

// Bearer sets the Authorization: Bearer <token> header.
func (r *Request) Bearer(token string) *Request {
	if token == "" {
		return r
	}
	return r.Header("Authorization", "Bearer "+token)
}

// Body sets the request body, sent as JSON.
func (r *Request) Body(v interface{}) *Request {
	r.body = v
	return r
}

// Timeout sets the per-attempt timeout.
func (r *Request) Timeout(d time.Duration) *Request {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Retry configures automatic retries on failure.
// n is total attempts (1 = no retry), wait is the initial backoff (doubles each attempt).
func (r *Request) Retry(n int, wait time.Duration) *Request {
	if n < 1 {
		n = 1
	}
	r.retries = n
	r.retryWait = wait
	return r
}

// WithContext sets a custom context.
func (r *Request) WithContext(ctx context.Context) *Request {
	r.ctx = ctx
	return r
}

// Using sends the request with c instead of DefaultClient.
func (r *Request) Using(c *gohttp.Client) *Request {
	if c != nil {
		r.client = c
	}
	return r
}

// ------------------- Send -------------------

// errRetryableStatus marks a 5xx gateway response worth another attempt.
var errRetryableStatus = errors.New("http: retryable status")

// Send executes the request and returns a Response.
// Transport failures and 502/503/504 answers are retried; any other
// response, successful or not, is returned as is.
func (r *Request) Send() (*Response, error) {
	var lastErr error
	var lastResp *Response

	for attempt := 1; attempt <= r.retries; attempt++ {
		resp, err := r.do()
		if err == nil && !retryableStatus(resp.StatusCode) {
			return resp, nil
		}
		if err == nil {
			lastResp = resp
			err = fmt.Errorf("%w %d", errRetryableStatus, resp.StatusCode)
		}
		lastErr = err

		if attempt < r.retries {
			// Exponential backoff: wait * 2^(attempt-1)
			backoff := time.Duration(float64(r.retryWait) * math.Pow(2, float64(attempt-1)))
			logger.WithCtx(r.ctx).Warn("http: request failed, retrying",
				"method", r.method, "url", r.url, "attempt", attempt, "backoff", backoff, "error", err)

			select {
			case <-time.After(backoff):
			case <-r.ctx.Done():
				return nil, fmt.Errorf("http: %s %s: %w", r.method, r.url, r.ctx.Err())
			}
		}
	}

	if lastResp != nil {
		return lastResp, nil
	}
	return nil, fmt.Errorf("http: all %d attempts failed for %s %s: %w", r.retries, r.method, r.url, lastErr)
}

func retryableStatus(code int) bool {
	return code == gohttp.StatusBadGateway ||
		code == gohttp.StatusServiceUnavailable ||
		code == gohttp.StatusGatewayTimeout
}

func (r *Request) do() (*Response, error) {
	body, ct, err := r.buildBody()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(r.ctx, r.timeout)
	defer cancel()

	req, err := gohttp.NewRequestWithContext(ctx, r.method, r.url, body)
	if err != nil {
		return nil, fmt.Errorf("http: build request: %w", err)
	}

	for k, v := range r.headers {
		req.Header.Set(k, v)
	}
	if ct != "" {
		req.Header.Set("Content-Type", ct)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http: send: %w", err)
	}

	raw, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("http: read body: %w", err)
	}

	return &Response{StatusCode: resp.StatusCode, Raw: raw}, nil
}

func (r *Request) buildBody() (io.Reader, string, error) {
	if r.body == nil {
		return nil, "", nil
	}
	b, err := json.Marshal(r.body)
	if err != nil {
		return nil, "", fmt.Errorf("http: marshal body: %w", err)
	}
	return bytes.NewReader(b), "application/json", nil
}

// ------------------- Response -------------------

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Raw        []byte
}

// OK reports whether the status code is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// JSON unmarshals the response body into dest.
func (r *Response) JSON(dest interface{}) error {
	if err := json.Unmarshal(r.Raw, dest); err != nil {
		return fmt.Errorf("http: decode JSON: %w", err)
	}
	return nil
}

// Text returns the response body as a string.
func (r *Response) Text() string {
	return string(r.Raw)
}
