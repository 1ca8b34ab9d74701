// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package api is the typed client for the ePress backend REST API. It owns
// bearer-token propagation, request correlation and error normalization;
// resource methods in auth.go, users.go and epapers.go are thin payload
// shims on top of it.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// MaxResponseLen caps how much of an error body is read (64KB).
	MaxResponseLen = 64 * 1024

	userAgent = "ePress/1.0"
)

// TokenSource supplies the bearer token for the current request context.
// The session layer implements it; an empty string means "no credential".
type TokenSource interface {
	Token(ctx context.Context) string
}

// TokenFunc adapts a function to the TokenSource interface.
type TokenFunc func(ctx context.Context) string

// Token implements TokenSource.
func (f TokenFunc) Token(ctx context.Context) string { return f(ctx) }

// Client talks to the backend API. Safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	logger     *slog.Logger
}

// New creates a Client for the given base URL. baseURL must not end with
// a slash (config.Load guarantees this).
func New(baseURL string, timeout time.Duration, tokens TokenSource, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		tokens: tokens,
		logger: logger,
	}
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// newRequest builds an authenticated request for path (relative to the
// base URL) with a correlation ID for backend-side log matching.
func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Request-ID", uuid.New().String())
	if token := c.tokens.Token(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// do executes req and decodes a 2xx JSON body into out (out may be nil).
// Every failure comes back as an *Error.
func (c *Client) do(req *http.Request, out any) error {
	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("backend request failed",
			"method", req.Method,
			"path", req.URL.Path,
			"error", err)
		return newTransportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxResponseLen))
		apiErr := newHTTPError(resp.StatusCode, body)
		c.logger.Debug("backend error response",
			"method", req.Method,
			"path", req.URL.Path,
			"status", resp.StatusCode,
			"message", apiErr.Message,
			"duration", time.Since(start).String())
		return apiErr
	}

	if out == nil {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, MaxResponseLen))
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &Error{
			Kind:    KindBackend,
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("decoding response: %v", err),
		}
	}
	return nil
}

// getJSON issues a GET and decodes the response into out.
func (c *Client) getJSON(ctx context.Context, path string, query url.Values, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return newTransportError(err)
	}
	return c.do(req, out)
}

// sendJSON issues a method with a JSON body and decodes the response.
func (c *Client) sendJSON(ctx context.Context, method, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return newTransportError(err)
	}
	req, err := c.newRequest(ctx, method, path, nil, bytes.NewReader(payload))
	if err != nil {
		return newTransportError(err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

// delete issues a DELETE and discards the response envelope.
func (c *Client) delete(ctx context.Context, path string) error {
	req, err := c.newRequest(ctx, http.MethodDelete, path, nil, nil)
	if err != nil {
		return newTransportError(err)
	}
	return c.do(req, nil)
}

// Download streams a backend-hosted file (a PDF or page image URL from an
// epaper record) with the session credential attached. The caller must
// close the returned body. rawURL may be absolute or relative to the
// backend base URL.
func (c *Client) Download(ctx context.Context, rawURL string) (io.ReadCloser, string, int64, error) {
	target := rawURL
	if strings.HasPrefix(rawURL, "/") {
		target = c.baseURL + rawURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", 0, newTransportError(err)
	}
	req.Header.Set("User-Agent", userAgent)
	if token := c.tokens.Token(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", 0, newTransportError(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxResponseLen))
		_ = resp.Body.Close()
		return nil, "", 0, newHTTPError(resp.StatusCode, body)
	}
	return resp.Body, resp.Header.Get("Content-Type"), resp.ContentLength, nil
}
