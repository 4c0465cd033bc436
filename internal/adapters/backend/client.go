package backend

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

	"cumeal/internal/adapters/http/perf"
)

// DefaultBaseURL is the hosted Cumeal API.
const DefaultBaseURL = "https://cumeal.vercel.app/api"

// DefaultSlowUpstreamMs is the threshold above which backend calls log at WARN.
const DefaultSlowUpstreamMs = 500

// maxErrorBody caps how much of a failed response is read for its message.
const maxErrorBody = 64 << 10

// Config carries the client settings.
type Config struct {
	BaseURL        string
	Timeout        time.Duration
	SlowUpstreamMs int
}

// Client talks to the Cumeal backend REST API.
type Client struct {
	baseURL   string
	http      *http.Client
	collector *perf.Collector
	slowMs    float64
}

// NewClient builds a client. A nil collector disables perf recording.
// PRE: cfg.BaseURL is an absolute URL or empty (DefaultBaseURL)
func NewClient(cfg Config, collector *perf.Collector) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	slow := cfg.SlowUpstreamMs
	if slow <= 0 {
		slow = DefaultSlowUpstreamMs
	}
	return &Client{
		baseURL:   base,
		http:      &http.Client{Timeout: timeout},
		collector: collector,
		slowMs:    float64(slow),
	}
}

// BaseURL returns the API root the client calls.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// call describes one backend operation.
type call struct {
	method     string
	path       string // concrete path, e.g. /menu/42
	route      string // path template for metrics, e.g. /menu/:id
	body       any
	failure    string // message used when the error body carries none
	noAuth     bool   // skip credentials (login, refresh)
	rawMessage bool   // fall back to the raw body text when it is not JSON
}

// do executes c with one refresh-and-retry on 401 and decodes the answer into out.
func (c *Client) do(ctx context.Context, op call, out any) error {
	var creds Credentials
	if !op.noAuth {
		creds = credentialsFrom(ctx)
	}
	token := ""
	if creds != nil {
		token = creds.AccessToken()
	}

	resp, err := c.send(ctx, op, token)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized && creds != nil {
		drain(resp)
		fresh, rerr := creds.Refresh(ctx)
		if rerr != nil {
			slog.Info("auth_event", "event", "refresh_failed", "route", op.route, "error", rerr.Error())
			return ErrSessionExpired
		}
		resp, err = c.send(ctx, op, fresh)
		if err != nil {
			return err
		}
		if resp.StatusCode == http.StatusUnauthorized {
			drain(resp)
			return ErrSessionExpired
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return readAPIError(resp, op)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrMalformedResponse, op.method, op.route, err)
	}
	return nil
}

// send performs one HTTP round trip and records its timing.
func (c *Client) send(ctx context.Context, op call, token string) (*http.Response, error) {
	var body io.Reader
	if op.body != nil {
		buf, err := json.Marshal(op.body)
		if err != nil {
			return nil, fmt.Errorf("encode %s body: %w", op.route, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, op.method, c.baseURL+op.path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-store")
	if op.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if id := perf.RequestID(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	c.record(op, status, start)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op.failure, err)
	}
	return resp, nil
}

func (c *Client) record(op call, status int, start time.Time) {
	durationMs := float64(time.Since(start).Microseconds()) / 1000.0
	label := op.method + " " + op.route

	if durationMs >= c.slowMs {
		slog.Warn("slow_upstream", "call", label, "status", status, "duration_ms", durationMs)
	} else {
		slog.Debug("upstream", "call", label, "status", status, "duration_ms", durationMs)
	}

	if c.collector != nil {
		c.collector.Record(perf.Entry{
			Kind:       perf.KindUpstream,
			Path:       label,
			StatusCode: status,
			DurationMs: durationMs,
			Timestamp:  start,
		})
	}
}

func readAPIError(resp *http.Response, op call) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	apiErr := &APIError{Status: resp.StatusCode, Message: op.failure, login: op.route == "/auth/login"}

	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil {
		switch {
		case payload.Message != "":
			apiErr.Message = payload.Message
		case payload.Error != "":
			apiErr.Message = payload.Error
		}
	} else if op.rawMessage {
		if text := strings.TrimSpace(string(raw)); text != "" {
			apiErr.Message = text
		}
	}

	slog.Info("upstream_error", "call", op.method+" "+op.route, "status", resp.StatusCode, "message", apiErr.Message)
	return apiErr
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	resp.Body.Close()
}
