// Fbxdash - Freebox Dashboard Realtime Backend
// Copyright 2026 The Fbxdash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fbxdash/fbxdash

// Package config loads the dashboard backend configuration.
//
// Values are layered with Koanf v2: struct defaults, then an optional YAML
// file, then environment variables. Environment variables only apply when
// they appear in the envMappings table, so unrelated process variables never
// leak into the configuration.
//
// # Example YAML
//
//	server:
//	  port: 3001
//	freebox:
//	  host: mafreebox.freebox.fr
//	  app_id: fr.freebox.dashboard
//	  app_token: "..."
//	relay:
//	  fast_interval: 1s
//	  slow_interval: 5s
//	epg:
//	  ttl: 2h
//
// # Environment Variables
//
//	PORT, HOST                       HTTP listener
//	FREEBOX_HOST, FREEBOX_URL        box address (URL defaults to http://HOST)
//	FREEBOX_APP_ID, FREEBOX_APP_TOKEN
//	FREEBOX_TIMEOUT, FREEBOX_API_VERSION
//	RELAY_FAST_INTERVAL, RELAY_SLOW_INTERVAL
//	BRIDGE_ENABLED, BRIDGE_RECONNECT_DELAY
//	WS_PATH, WS_PING_INTERVAL
//	EPG_TTL, EPG_SWEEP_THRESHOLD
//	RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW, RATE_LIMIT_DISABLED, CORS_ORIGINS
//	LOG_LEVEL, LOG_FORMAT, LOG_CALLER
package config
