// Package gateway is the single HTTP boundary to the trial-matching service.
//
// Every remote operation goes through Client.call so failures share one
// shape: *RemoteError. Calls are fail-fast; there are no retries and the
// client sets no timeout of its own.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// DefaultBaseURL is the service address used when none is configured.
const DefaultBaseURL = "http://localhost:8007"

// maxMessage caps how much of an error body is kept in a RemoteError.
const maxMessage = 512

// Options configures a Client.
type Options struct {
	HTTPClient *http.Client
	Logger     *slog.Logger
	Registerer prometheus.Registerer
}

// Client talks to the trial-matching service over JSON/HTTP.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
	metrics *metrics
}

// New creates a client for the service at baseURL.
func New(baseURL string, opts Options) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  hc,
		logger:  logger,
		metrics: newMetrics(reg),
	}
}

// BaseURL returns the service address.
func (c *Client) BaseURL() string { return c.baseURL }

// call issues one request. payload (if non-nil) is sent as JSON and a 2xx
// body is decoded into out (if non-nil).
func (c *Client) call(ctx context.Context, op, method, path string, payload, out any) error {
	start := time.Now()
	err := c.do(ctx, op, method, path, payload, out)
	c.metrics.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())

	if err != nil {
		c.metrics.requests.WithLabelValues(op, "error").Inc()
		c.logger.Warn("remote call failed",
			slog.String("op", op),
			slog.Int("status", StatusOf(err)),
			slog.String("error", err.Error()))
		return err
	}
	c.metrics.requests.WithLabelValues(op, "ok").Inc()
	c.logger.Debug("remote call",
		slog.String("op", op),
		slog.String("method", method),
		slog.String("path", path),
		slog.Duration("took", time.Since(start)))
	return nil
}

func (c *Client) do(ctx context.Context, op, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return &RemoteError{Op: op, Message: fmt.Sprintf("marshal request: %v", err), Err: err}
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &RemoteError{Op: op, Message: fmt.Sprintf("create request: %v", err), Err: err}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return &RemoteError{Op: op, Message: fmt.Sprintf("send request: %v", err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &RemoteError{Op: op, Status: resp.StatusCode, Message: errorMessage(resp)}
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &RemoteError{Op: op, Status: resp.StatusCode, Message: fmt.Sprintf("decode response: %v", err), Err: err}
	}
	return nil
}

// errorMessage extracts a message from a failed response. The body is not
// guaranteed to be readable or JSON; a FastAPI-style {"detail": "..."} is
// unwrapped when present, otherwise the raw body or the status text is used.
func errorMessage(resp *http.Response) string {
	b, err := io.ReadAll(io.LimitReader(resp.Body, 4*maxMessage))
	msg := strings.TrimSpace(string(b))
	if err != nil || msg == "" {
		return http.StatusText(resp.StatusCode)
	}

	var detail struct {
		Detail string `json:"detail"`
		Error  string `json:"error"`
	}
	if json.Unmarshal(b, &detail) == nil {
		switch {
		case detail.Detail != "":
			msg = detail.Detail
		case detail.Error != "":
			msg = detail.Error
		}
	}
	if len(msg) > maxMessage {
		msg = msg[:maxMessage] + "..."
	}
	return msg
}
