// Package client opens answer streams against the chatbot backend.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/creastat/welfarechat"
)

// DefaultConnectTimeout bounds dialing and waiting for response headers.
// The body itself is never timed out: a stalled answer stays open until the
// caller cancels.
const DefaultConnectTimeout = 10 * time.Second

// maxErrorBody is how much of a failed response is kept for the log.
const maxErrorBody = 512

// ChatRequest is the JSON body posted to the endpoint.
type ChatRequest struct {
	SessionID int64  `json:"session_id"`
	InputText string `json:"input_text"`
}

// Client posts questions and hands back the raw event stream.
type Client struct {
	endpoint       string
	httpClient     *http.Client
	connectTimeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithConnectTimeout overrides DefaultConnectTimeout. Ignored together with
// WithHTTPClient.
func WithConnectTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.connectTimeout = d
		}
	}
}

// New creates a client for endpoint.
func New(endpoint string, opts ...Option) (*Client, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("%w: empty chat endpoint", welfarechat.ErrInvalidConfig)
	}

	c := &Client{endpoint: endpoint, connectTimeout: DefaultConnectTimeout}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = newHTTPClient(c.connectTimeout)
	}
	return c, nil
}

func newHTTPClient(connectTimeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{Timeout: connectTimeout, KeepAlive: 30 * time.Second}).DialContext
	transport.TLSHandshakeTimeout = connectTimeout
	transport.ResponseHeaderTimeout = connectTimeout
	return &http.Client{Transport: transport}
}

// Endpoint returns the URL requests are posted to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Stream posts the question and returns the response body once the backend
// has accepted it. The caller must close the body. Cancelling ctx aborts both
// the request and any pending body read. Blank text is rejected with
// ErrEmptyInput before anything is sent.
func (c *Client) Stream(ctx context.Context, sessionID int64, text string) (io.ReadCloser, error) {
	if strings.TrimSpace(text) == "" {
		return nil, welfarechat.ErrEmptyInput
	}

	body, err := json.Marshal(ChatRequest{SessionID: sessionID, InputText: text})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	log.Debug().Str("component", "client").Str("endpoint", c.endpoint).Int64("session_id", sessionID).Msg("POST chat stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: %d - %s", welfarechat.ErrRequestFailed, resp.StatusCode, strings.TrimSpace(string(excerpt)))
	}
	if resp.Body == nil {
		return nil, welfarechat.ErrMissingBody
	}
	// Null-body statuses never carry a stream, unlike an empty 200.
	if resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusResetContent {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: status %d", welfarechat.ErrMissingBody, resp.StatusCode)
	}
	return resp.Body, nil
}
