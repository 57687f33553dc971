// Fbxdash - Freebox Dashboard Realtime Backend
// Copyright 2026 The Fbxdash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fbxdash/fbxdash

package freebox

import (
	"context"
	"crypto/hmac"
	"crypto/sha1" //nolint:gosec // the box login protocol mandates HMAC-SHA1
	"encoding/hex"
	"fmt"
	"net/http"
)

// Login opens a session: it fetches a challenge and answers it with
// HMAC-SHA1(app_token, challenge). Concurrent callers share one attempt.
func (c *Client) Login(ctx context.Context) error {
	if !c.HasAppToken() {
		return ErrNoAppToken
	}

	_, err, _ := c.logins.Do("login", func() (interface{}, error) {
		return nil, c.login(ctx)
	})
	return err
}

func (c *Client) login(ctx context.Context) error {
	resp, err := c.send(ctx, requestConfig{method: http.MethodGet, path: "/login/"})
	if err != nil {
		return fmt.Errorf("fetch login challenge: %w", err)
	}
	var challenge loginChallenge
	if err := resp.Decode(&challenge); err != nil {
		return fmt.Errorf("fetch login challenge: %w", err)
	}

	resp, err = c.send(ctx, requestConfig{
		method: http.MethodPost,
		path:   "/login/session/",
		body: map[string]string{
			"app_id":   c.appID,
			"password": computePassword(c.appToken, challenge.Challenge),
		},
	})
	if err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	var session sessionResult
	if err := resp.Decode(&session); err != nil {
		return fmt.Errorf("open session: %w", err)
	}
	if session.SessionToken == "" {
		return fmt.Errorf("open session: %w", ErrEmptyResult)
	}

	c.mu.Lock()
	c.loggedOut = false
	c.mu.Unlock()
	c.setSession(session.SessionToken)
	return nil
}

// Logout closes the session on the box and disables on-demand login until
// the next explicit Login. The local session is cleared even if the box call fails.
func (c *Client) Logout(ctx context.Context) error {
	c.mu.Lock()
	c.loggedOut = true
	c.mu.Unlock()

	if !c.IsLoggedIn() {
		return nil
	}

	_, err := c.send(ctx, requestConfig{method: http.MethodPost, path: "/login/logout/", auth: true})
	c.setSession("")
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	return nil
}

// canAutoLogin reports whether a missing or expired session may be renewed
// without an explicit Login call.
func (c *Client) canAutoLogin() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.appToken != "" && !c.loggedOut
}

func computePassword(appToken, challenge string) string {
	mac := hmac.New(sha1.New, []byte(appToken))
	mac.Write([]byte(challenge))
	return hex.EncodeToString(mac.Sum(nil))
}
