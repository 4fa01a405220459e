// Package api is the client for the marketplace REST backend. Every
// operation issues exactly one HTTP call bounded by the client timeout.
// Transport failures and unexpected statuses are logged here and surface
// as ErrUnavailable; callers decide what the user sees.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/m3rciful/estatebot/core/logger"
)

var (
	// ErrUnavailable covers timeouts, transport errors, unexpected statuses and undecodable bodies.
	ErrUnavailable = errors.New("api: service unavailable")
	// ErrNotFound is returned when a fetch by id gets 404.
	ErrNotFound = errors.New("api: not found")
)

const (
	DefaultTimeout = 15 * time.Second
	minTimeout     = 10 * time.Second
	maxTimeout     = 30 * time.Second
	maxErrBody     = 512
)

// Error describes a failed call. It unwraps to ErrUnavailable or ErrNotFound.
type Error struct {
	Op     string
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("api %s: status %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("api %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Code names the failure class for handler summaries.
func (e *Error) Code() string {
	if errors.Is(e.Err, ErrNotFound) {
		return "API_NOT_FOUND"
	}
	return "API_UNAVAILABLE"
}

// Options configures a Client.
type Options struct {
	// BaseURL serves customers, properties, tours and favorites.
	BaseURL string
	// LiveURL serves live-agent requests and messages; defaults to BaseURL.
	LiveURL string
	// Timeout is clamped to 10s..30s; zero means DefaultTimeout.
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client talks to the remote backend.
type Client struct {
	base    string
	live    string
	timeout time.Duration
	http    *http.Client
}

// New builds a Client.
func New(opts Options) *Client {
	timeout := opts.Timeout
	switch {
	case timeout == 0:
		timeout = DefaultTimeout
	case timeout < minTimeout:
		timeout = minTimeout
	case timeout > maxTimeout:
		timeout = maxTimeout
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	base := strings.TrimRight(opts.BaseURL, "/")
	live := strings.TrimRight(opts.LiveURL, "/")
	if live == "" {
		live = base
	}
	return &Client{base: base, live: live, timeout: timeout, http: hc}
}

// Timeout returns the per-call timeout in effect.
func (c *Client) Timeout() time.Duration { return c.timeout }

type call struct {
	op       string
	method   string
	url      string
	body     any
	out      any
	want     []int
	notFound bool
}

func (c *Client) do(ctx context.Context, cl call) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	status, err := c.roundTrip(ctx, cl)
	attrs := []slog.Attr{
		slog.String("event", "api.request"),
		slog.String("op", cl.op),
		slog.String("method", cl.method),
		slog.String("path", pathOf(cl.url)),
		slog.Duration("duration", time.Since(start)),
	}
	if status != 0 {
		attrs = append(attrs, slog.Int("http_code", status))
	}
	switch {
	case err == nil:
		logger.API.LogAttrs(ctx, slog.LevelDebug, "", append(attrs, slog.String("status", "ok"))...)
		return nil
	case errors.Is(err, ErrNotFound):
		logger.API.LogAttrs(ctx, slog.LevelInfo, "", append(attrs, slog.String("status", "not_found"))...)
	default:
		logger.API.LogAttrs(ctx, slog.LevelError, "", append(attrs,
			slog.String("status", "fail"),
			slog.String("outcome", "fail"),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)...)
	}
	return &Error{Op: cl.op, Status: status, Err: err}
}

// roundTrip returns ErrNotFound or an error wrapping ErrUnavailable.
func (c *Client) roundTrip(ctx context.Context, cl call) (int, error) {
	var body io.Reader
	if cl.body != nil {
		raw, err := json.Marshal(cl.body)
		if err != nil {
			return 0, fmt.Errorf("%w: encode: %v", ErrUnavailable, err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, cl.method, cl.url, body)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Accept", "application/json")
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if !accepted(resp.StatusCode, cl.want) {
		if resp.StatusCode == http.StatusNotFound && cl.notFound {
			_, _ = io.Copy(io.Discard, resp.Body)
			return resp.StatusCode, ErrNotFound
		}
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrBody))
		return resp.StatusCode, fmt.Errorf("%w: unexpected status: %s", ErrUnavailable, strings.TrimSpace(string(snippet)))
	}
	if cl.out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(cl.out); err != nil {
		return resp.StatusCode, fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}
	return resp.StatusCode, nil
}

func accepted(status int, want []int) bool {
	for _, w := range want {
		if status == w {
			return true
		}
	}
	return false
}

func pathOf(raw string) string {
	if i := strings.Index(raw, "://"); i >= 0 {
		raw = raw[i+3:]
		if j := strings.IndexByte(raw, '/'); j >= 0 {
			return raw[j:]
		}
		return "/"
	}
	return raw
}

var (
	fetchOK  = []int{http.StatusOK}
	createOK = []int{http.StatusOK, http.StatusCreated}
	deleteOK = []int{http.StatusNoContent, http.StatusOK}
)
