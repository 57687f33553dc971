// Fbxdash - Freebox Dashboard Realtime Backend
// Copyright 2026 The Fbxdash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fbxdash/fbxdash

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/fbxdash/fbxdash/internal/config"
)

// Limit is a per-IP request budget over a sliding window.
type Limit struct {
	Requests int
	Window   time.Duration
}

var (
	// loginLimit bounds login attempts against the box.
	loginLimit = Limit{Requests: 10, Window: time.Minute}

	// upgradeLimit bounds dashboard reconnect storms.
	upgradeLimit = Limit{Requests: 30, Window: time.Minute}

	defaultLimit = Limit{Requests: 300, Window: time.Minute}
)

// ChiMiddleware builds the CORS and rate limiting middleware for the router.
type ChiMiddleware struct {
	cors         func(http.Handler) http.Handler
	general      Limit
	rateDisabled bool
}

// NewChiMiddleware configures middleware from the security settings.
// A nil config allows every origin with the default request budget.
func NewChiMiddleware(sec *config.SecurityConfig) *ChiMiddleware {
	origins := []string{"*"}
	general := defaultLimit
	disabled := false
	if sec != nil {
		if len(sec.CORSOrigins) > 0 {
			origins = sec.CORSOrigins
		}
		if sec.RateLimitReqs > 0 && sec.RateLimitWindow > 0 {
			general = Limit{Requests: sec.RateLimitReqs, Window: sec.RateLimitWindow}
		}
		disabled = sec.RateLimitDisabled
	}

	return &ChiMiddleware{
		cors: cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID"},
			MaxAge:         86400,
		}),
		general:      general,
		rateDisabled: disabled,
	}
}

// CORS returns the go-chi/cors handler.
func (m *ChiMiddleware) CORS() func(http.Handler) http.Handler {
	return m.cors
}

// RateLimit applies the configured budget to the box proxy routes.
func (m *ChiMiddleware) RateLimit() func(http.Handler) http.Handler {
	return m.limit(m.general)
}

// RateLimitAuth applies the login budget.
func (m *ChiMiddleware) RateLimitAuth() func(http.Handler) http.Handler {
	return m.limit(loginLimit)
}

// RateLimitWebSocket applies the upgrade budget.
func (m *ChiMiddleware) RateLimitWebSocket() func(http.Handler) http.Handler {
	return m.limit(upgradeLimit)
}

func (m *ChiMiddleware) limit(l Limit) func(http.Handler) http.Handler {
	if m.rateDisabled {
		return func(next http.Handler) http.Handler { return next }
	}
	return httprate.Limit(
		l.Requests,
		l.Window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			respondError(w, http.StatusTooManyRequests, ErrCodeRateLimited, "Too many requests", nil)
		}),
	)
}

// APISecurityHeaders sets browser hardening headers on API responses.
func APISecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}
