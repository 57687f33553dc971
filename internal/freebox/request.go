// Fbxdash - Freebox Dashboard Realtime Backend
// Copyright 2026 The Fbxdash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fbxdash/fbxdash

package freebox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/fbxdash/fbxdash/internal/metrics"
)

// maxResponseBytes caps a single upstream body. EPG pages are the largest.
const maxResponseBytes = 16 << 20

// requestConfig describes one call relative to the versioned API root.
type requestConfig struct {
	method string
	path   string
	body   interface{}
	// auth attaches the session token and enables one re-login on expiry.
	auth bool
}

type rawResponse struct {
	status int
	body   []byte
}

// sessionErrorCodes are envelope codes meaning the token is no longer valid.
var sessionErrorCodes = map[string]bool{
	"auth_required":   true,
	"invalid_session": true,
	"invalid_token":   true,
}

// do executes rc. Authenticated calls log in on demand and re-log in once
// when the box reports the session expired.
func (c *Client) do(ctx context.Context, rc requestConfig) (*Response, error) {
	if rc.auth && !c.IsLoggedIn() {
		if !c.canAutoLogin() {
			return nil, ErrNotLoggedIn
		}
		if err := c.Login(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrNotLoggedIn, err)
		}
	}

	resp, err := c.send(ctx, rc)
	if err != nil || !rc.auth || resp.Success || !sessionErrorCodes[resp.ErrorCode] {
		return resp, err
	}

	if !c.canAutoLogin() {
		c.setSession("")
		return resp, nil
	}
	if lerr := c.Login(ctx); lerr != nil {
		c.setSession("")
		return resp, nil
	}
	return c.send(ctx, rc)
}

// send performs one paced, breaker-guarded call and decodes the envelope.
func (c *Client) send(ctx context.Context, rc requestConfig) (*Response, error) {
	raw, err := c.roundTrip(ctx, rc.method, c.apiBase(ctx)+rc.path, rc.body, rc.auth)
	if err != nil {
		return nil, err
	}

	var resp Response
	if err := json.Unmarshal(raw.body, &resp); err != nil {
		return nil, fmt.Errorf("decode %s %s (status %d): %w", rc.method, rc.path, raw.status, err)
	}

	result := "success"
	if !resp.Success {
		result = "api_error"
	}
	metrics.UpstreamRequests.WithLabelValues(rc.method, result).Inc()
	return &resp, nil
}

// roundTrip executes an HTTP request through the rate limiter and circuit breaker.
func (c *Client) roundTrip(ctx context.Context, method, url string, body interface{}, auth bool) (*rawResponse, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
	}

	start := time.Now()
	raw, err := c.breaker.Execute(func() (*rawResponse, error) {
		var reader io.Reader = http.NoBody
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, reader)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if auth {
			if token := c.SessionToken(); token != "" {
				req.Header.Set(AuthHeader, token)
			}
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", method, url, err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, fmt.Errorf("%s %s: unexpected status %d", method, url, resp.StatusCode)
		}
		return &rawResponse{status: resp.StatusCode, body: data}, nil
	})
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.RecordUpstreamRequest(method, "rejected", elapsed)
			return nil, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
		}
		metrics.RecordUpstreamRequest(method, "failure", elapsed)
		return nil, err
	}

	metrics.UpstreamDuration.Observe(elapsed.Seconds())
	return raw, nil
}
