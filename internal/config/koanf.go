// Fbxdash - Freebox Dashboard Realtime Backend
// Copyright 2026 The Fbxdash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fbxdash/fbxdash

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/fbxdash/config.yaml",
	"/etc/fbxdash/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultFreeboxHost is the name the box answers to on its own LAN.
const DefaultFreeboxHost = "mafreebox.freebox.fr"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            3001,
			Host:            "0.0.0.0",
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Freebox: FreeboxConfig{
			Host:              DefaultFreeboxHost,
			URL:               "",
			AppID:             "fr.freebox.dashboard",
			AppToken:          "",
			Timeout:           30 * time.Second,
			APIVersion:        0,
			RequestsPerSecond: 10,
			Burst:             5,
			CatalogCacheTTL:   10 * time.Minute,
		},
		Relay: RelayConfig{
			FastInterval: 1 * time.Second,
			SlowInterval: 5 * time.Second,
		},
		Bridge: BridgeConfig{
			Enabled:        true,
			ReconnectDelay: 5 * time.Second,
		},
		WebSocket: WebSocketConfig{
			Path:         "/ws/connection",
			PingInterval: 30 * time.Second,
		},
		EPG: EPGConfig{
			TTL:            2 * time.Hour,
			SweepThreshold: 20,
		},
		Security: SecurityConfig{
			RateLimitReqs:     300,
			RateLimitWindow:   1 * time.Minute,
			RateLimitDisabled: false,
			CORSOrigins:       []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration with layered sources:
//  1. Defaults: built-in values from defaultConfig
//  2. Config File: optional YAML file (CONFIG_PATH or DefaultConfigPaths)
//  3. Environment Variables: override any mapped setting
//
// Precedence is ENV > File > Defaults.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	cfg.applyDerived()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// applyDerived fills values computed from other settings.
func (c *Config) applyDerived() {
	if c.Freebox.URL == "" {
		c.Freebox.URL = "http://" + c.Freebox.Host
	}
	c.Freebox.URL = strings.TrimRight(c.Freebox.URL, "/")
}

// findConfigFile returns the first existing config file, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths are parsed from comma-separated strings when set via env.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
// Unmapped variables are ignored.
var envMappings = map[string]string{
	// Server
	"port":                    "server.port",
	"host":                    "server.host",
	"server_timeout":          "server.timeout",
	"server_shutdown_timeout": "server.shutdown_timeout",

	// Freebox
	"freebox_host":                "freebox.host",
	"freebox_url":                 "freebox.url",
	"freebox_app_id":              "freebox.app_id",
	"freebox_app_token":           "freebox.app_token",
	"freebox_timeout":             "freebox.timeout",
	"freebox_api_version":         "freebox.api_version",
	"freebox_requests_per_second": "freebox.requests_per_second",
	"freebox_burst":               "freebox.burst",
	"freebox_catalog_cache_ttl":   "freebox.catalog_cache_ttl",

	// Relay and bridge
	"relay_fast_interval":    "relay.fast_interval",
	"relay_slow_interval":    "relay.slow_interval",
	"bridge_enabled":         "bridge.enabled",
	"bridge_reconnect_delay": "bridge.reconnect_delay",

	// WebSocket
	"ws_path":          "websocket.path",
	"ws_ping_interval": "websocket.ping_interval",

	// EPG
	"epg_ttl":             "epg.ttl",
	"epg_sweep_threshold": "epg.sweep_threshold",

	// Security
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"rate_limit_disabled": "security.rate_limit_disabled",
	"cors_origins":        "security.cors_origins",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - FREEBOX_HOST -> freebox.host
//   - PORT -> server.port
//   - LOG_LEVEL -> logging.level
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
