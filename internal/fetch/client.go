// Package fetch retrieves JSON documents over HTTP with a bounded timeout.
// Failures are returned as *Error and logged; nothing is retried.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

// DefaultTimeout bounds every request unless configured otherwise.
const DefaultTimeout = 30 * time.Second

// maxBody caps how much of a response body is read.
const maxBody = 16 << 20

// Result is a decoded 2xx response.
type Result struct {
	URL        string          `json:"url"`
	StatusCode int             `json:"status_code"`
	Payload    any             `json:"payload"`
	Raw        json.RawMessage `json:"-"`
	RequestID  string          `json:"request_id,omitempty"`
	Elapsed    time.Duration   `json:"elapsed"`
}

// Client issues GET requests and decodes JSON bodies.
type Client struct {
	httpClient *http.Client
	header     http.Header
}

// NewClient returns a client with the given timeout; <= 0 means DefaultTimeout.
func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		header:     http.Header{"Accept": []string{"application/json"}},
	}
}

// Timeout returns the per-request timeout.
func (c *Client) Timeout() time.Duration { return c.httpClient.Timeout }

// SetHeader adds a header sent with every request.
func (c *Client) SetHeader(key, value string) {
	c.header.Set(key, value)
}

// Fetch GETs url and decodes the JSON body.
func (c *Client) Fetch(ctx context.Context, url string) (*Result, error) {
	return c.get(ctx, url, nil)
}

func (c *Client) get(ctx context.Context, url string, extra http.Header) (*Result, error) {
	start := time.Now()
	res, err := c.do(ctx, url, extra)
	if err != nil {
		var fe *Error
		if errors.As(err, &fe) {
			log.WithFields(log.Fields{
				"url":        url,
				"kind":       fe.Kind,
				"status":     fe.StatusCode,
				"request_id": fe.RequestID,
				"elapsed_ms": time.Since(start).Milliseconds(),
			}).WithError(fe.Err).Warn("fetch failed")
		}
		return nil, err
	}
	res.Elapsed = time.Since(start)
	log.WithFields(log.Fields{
		"url":        url,
		"status":     res.StatusCode,
		"request_id": res.RequestID,
		"elapsed_ms": res.Elapsed.Milliseconds(),
	}).Debug("fetch ok")
	return res, nil
}

func (c *Client) do(ctx context.Context, url string, extra http.Header) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &Error{Kind: Transport, URL: url, Err: fmt.Errorf("build request: %w", err)}
	}
	for k, vs := range c.header {
		req.Header[k] = append([]string(nil), vs...)
	}
	for k, vs := range extra {
		req.Header[k] = append([]string(nil), vs...)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Kind: classifyTransport(ctx, err), URL: url, Err: err}
	}
	defer resp.Body.Close()

	rid := extractRequestID(resp)
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, &Error{Kind: classifyTransport(ctx, err), URL: url, StatusCode: resp.StatusCode, RequestID: rid, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{
			Kind:       Status,
			URL:        url,
			StatusCode: resp.StatusCode,
			RequestID:  rid,
			Message:    errorMessage(body),
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}
	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &Error{Kind: Decode, URL: url, StatusCode: resp.StatusCode, RequestID: rid, Err: fmt.Errorf("decode response: %w", err)}
	}
	if payload == nil {
		return nil, &Error{Kind: Decode, URL: url, StatusCode: resp.StatusCode, RequestID: rid, Err: ErrEmptyBody}
	}
	return &Result{
		URL:        url,
		StatusCode: resp.StatusCode,
		Payload:    payload,
		Raw:        json.RawMessage(body),
		RequestID:  rid,
	}, nil
}

func classifyTransport(ctx context.Context, err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return Timeout
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return Timeout
	}
	return Transport
}

// errorMessage pulls a message out of {"error":{"message":...}} or
// {"message":...} bodies.
func errorMessage(body []byte) string {
	var raw map[string]any
	if json.Unmarshal(body, &raw) != nil {
		return ""
	}
	if v, ok := raw["error"].(map[string]any); ok {
		if msg, ok := v["message"].(string); ok {
			return msg
		}
	}
	if msg, ok := raw["error"].(string); ok {
		return msg
	}
	if msg, ok := raw["message"].(string); ok {
		return msg
	}
	return ""
}

func extractRequestID(resp *http.Response) string {
	for _, k := range []string{"X-Request-Id", "X-Correlation-Id", "X-Amzn-Requestid"} {
		if v := resp.Header.Get(k); v != "" {
			return v
		}
	}
	return ""
}
