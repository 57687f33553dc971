// Fbxdash - Freebox Dashboard Realtime Backend
// Copyright 2026 The Fbxdash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fbxdash/fbxdash

package config

import "time"

// Config is the complete runtime configuration of the dashboard backend.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Freebox   FreeboxConfig   `koanf:"freebox"`
	Relay     RelayConfig     `koanf:"relay"`
	Bridge    BridgeConfig    `koanf:"bridge"`
	WebSocket WebSocketConfig `koanf:"websocket"`
	EPG       EPGConfig       `koanf:"epg"`
	Security  SecurityConfig  `koanf:"security"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port            int           `koanf:"port" validate:"min=1,max=65535"`
	Host            string        `koanf:"host"`
	Timeout         time.Duration `koanf:"timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// FreeboxConfig describes how to reach and authenticate against the box.
type FreeboxConfig struct {
	// Host is the box hostname used for the native event WebSocket.
	Host string `koanf:"host" validate:"required"`

	// URL is the HTTP base URL of the box API. Derived from Host when empty.
	URL string `koanf:"url"`

	// AppID and AppToken identify this application to the box.
	// AppToken is obtained once through the box pairing flow.
	AppID    string `koanf:"app_id" validate:"required"`
	AppToken string `koanf:"app_token"`

	// Timeout bounds every upstream HTTP call.
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`

	// APIVersion forces the API major version. Zero means detect it from /api_version.
	APIVersion int `koanf:"api_version" validate:"gte=0"`

	// RequestsPerSecond and Burst pace upstream calls.
	RequestsPerSecond float64 `koanf:"requests_per_second" validate:"gt=0"`
	Burst             int     `koanf:"burst" validate:"gte=1"`

	// CatalogCacheTTL is how long TV channel and bouquet lists are reused.
	CatalogCacheTTL time.Duration `koanf:"catalog_cache_ttl" validate:"gte=0"`
}

// RelayConfig holds the polling relay intervals.
type RelayConfig struct {
	FastInterval time.Duration `koanf:"fast_interval" validate:"gt=0"`
	SlowInterval time.Duration `koanf:"slow_interval" validate:"gt=0"`
}

// BridgeConfig holds native event bridge settings.
type BridgeConfig struct {
	Enabled        bool          `koanf:"enabled"`
	ReconnectDelay time.Duration `koanf:"reconnect_delay" validate:"gt=0"`
}

// WebSocketConfig holds the downstream WebSocket server settings.
type WebSocketConfig struct {
	Path         string        `koanf:"path" validate:"required,startswith=/"`
	PingInterval time.Duration `koanf:"ping_interval" validate:"gt=0"`
}

// EPGConfig holds program guide cache settings.
type EPGConfig struct {
	TTL            time.Duration `koanf:"ttl" validate:"gt=0"`
	SweepThreshold int           `koanf:"sweep_threshold" validate:"gte=1"`
}

// SecurityConfig holds request rate limiting and CORS settings.
type SecurityConfig struct {
	RateLimitReqs     int           `koanf:"rate_limit_reqs" validate:"gte=1"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	Level string `koanf:"level" validate:"oneof=trace debug info warn error"`

	// Format is the output format: json or console.
	Format string `koanf:"format" validate:"omitempty,oneof=json console"`

	// Caller includes caller file and line number in logs.
	Caller bool `koanf:"caller"`
}
