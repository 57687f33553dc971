// Fbxdash - Freebox Dashboard Realtime Backend
// Copyright 2026 The Fbxdash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fbxdash/fbxdash

package freebox

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/maypok86/otter"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/fbxdash/fbxdash/internal/logging"
	"github.com/fbxdash/fbxdash/internal/metrics"
)

// AuthHeader carries the session token on every authenticated call,
// including the native event WebSocket handshake.
const AuthHeader = "X-Fbx-App-Auth"

// Config configures a Client.
type Config struct {
	// BaseURL is the box HTTP root, e.g. http://mafreebox.freebox.fr.
	BaseURL string

	AppID    string
	AppToken string

	// Timeout bounds each HTTP round trip. Default: 30s
	Timeout time.Duration

	// APIVersion forces the API major version. Zero detects it via /api_version.
	APIVersion int

	// RequestsPerSecond and Burst pace upstream calls. Zero disables pacing.
	RequestsPerSecond float64
	Burst             int

	// CatalogCacheTTL caches channel and bouquet lists. Zero disables it.
	CatalogCacheTTL time.Duration

	// HTTPClient overrides the default client (tests).
	HTTPClient *http.Client
}

// Client talks to the box REST API and owns the login session.
// It is safe for concurrent use.
type Client struct {
	baseURL    string
	appID      string
	appToken   string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[*rawResponse]
	limiter    *rate.Limiter
	catalog    *otter.Cache[string, *Response]
	logins     singleflight.Group

	forcedMajor int

	mu           sync.RWMutex
	sessionToken string
	loggedOut    bool
	version      *APIVersion
	listeners    []func(loggedIn bool)
}

// NewClient creates a Client. No network call is made until first use.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	c := &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		appID:       cfg.AppID,
		appToken:    cfg.AppToken,
		httpClient:  httpClient,
		breaker:     newCircuitBreaker("freebox-api"),
		limiter:     limiter,
		forcedMajor: cfg.APIVersion,
	}

	if cfg.CatalogCacheTTL > 0 {
		cache, err := otter.MustBuilder[string, *Response](64).
			WithTTL(cfg.CatalogCacheTTL).
			Build()
		if err != nil {
			return nil, err
		}
		c.catalog = &cache
	}

	return c, nil
}

// Close releases background resources held by the catalog cache.
func (c *Client) Close() {
	if c.catalog != nil {
		c.catalog.Close()
	}
}

// HasAppToken reports whether Login can be attempted.
func (c *Client) HasAppToken() bool {
	return c.appToken != ""
}

// IsLoggedIn reports whether a session token is held.
func (c *Client) IsLoggedIn() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionToken != ""
}

// SessionToken returns the current session token, or "" when logged out.
func (c *Client) SessionToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionToken
}

// OnSessionChange registers fn to be called after every login/logout
// transition. Callbacks run synchronously on the goroutine that changed the
// session and must not block.
func (c *Client) OnSessionChange(fn func(loggedIn bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// setSession stores token and notifies listeners when the logged-in state flips.
func (c *Client) setSession(token string) {
	c.mu.Lock()
	was := c.sessionToken != ""
	c.sessionToken = token
	now := token != ""
	listeners := append([]func(bool){}, c.listeners...)
	c.mu.Unlock()

	metrics.SessionLoggedIn.Set(metrics.BoolToFloat(now))
	if was == now {
		return
	}

	logging.Info().Bool("logged_in", now).Msg("Freebox session changed")
	for _, fn := range listeners {
		fn(now)
	}
}

// APIMajorVersion returns the forced, cached or freshly detected API major version.
func (c *Client) APIMajorVersion(ctx context.Context) (int, error) {
	if c.forcedMajor > 0 {
		return c.forcedMajor, nil
	}
	v, err := c.GetAPIVersion(ctx)
	if err != nil {
		return 0, err
	}
	return v.Major(), nil
}

// apiBase returns the versioned API root, e.g. http://box/api/v8.
// Detection failures fall back to DefaultAPIMajor without caching.
func (c *Client) apiBase(ctx context.Context) string {
	basePath := "/api/"
	major := c.forcedMajor

	if major == 0 {
		v, err := c.GetAPIVersion(ctx)
		if err != nil {
			logging.Debug().Err(err).Msg("API version detection failed, assuming default")
			major = DefaultAPIMajor
		} else {
			major = v.Major()
			if v.APIBaseURL != "" {
				basePath = v.APIBaseURL
			}
		}
	}

	if !strings.HasSuffix(basePath, "/") {
		basePath += "/"
	}
	return c.baseURL + basePath + "v" + strconv.Itoa(major)
}
