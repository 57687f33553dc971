// Fbxdash - Freebox Dashboard Realtime Backend
// Copyright 2026 The Fbxdash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fbxdash/fbxdash

/*
Package main is the entry point for the fbxdash realtime backend.

fbxdash sits between a Freebox and its browser dashboards. It relays the
box REST API, pushes live connection and system snapshots to dashboards
over a WebSocket, and forwards the box's own LAN host and VM events.

# Application Architecture

	fbxdash (root supervisor)
	├── upstream-layer
	│   ├── polling-relay   (1s connection_status, 5s system_status)
	│   └── event-bridge    (wss://{host}/api/v{N}/ws/event, API v8+)
	├── messaging-layer
	│   └── websocket-hub   (/ws/connection, 30s ping sweep)
	└── api-layer
	    └── http-server     (chi router, /api/*, /metrics)

The relay polls only while a session exists and at least one dashboard is
connected. The bridge runs only while a session exists.

# Configuration

Koanf v2 layers defaults, an optional YAML file (CONFIG_PATH) and
environment variables, highest priority last:

	PORT=3001
	FREEBOX_HOST=mafreebox.freebox.fr
	FREEBOX_APP_ID=fr.freebox.dashboard
	FREEBOX_APP_TOKEN=<token from the pairing flow>
	BRIDGE_ENABLED=true
	CORS_ORIGINS=*
	LOG_LEVEL=info
	LOG_FORMAT=json

With FREEBOX_APP_TOKEN set the server logs in at startup. Otherwise the
dashboard triggers POST /api/auth/login once a token is configured.

# Signal Handling

SIGINT and SIGTERM cancel the supervisor context: the HTTP server drains,
the hub closes every dashboard socket, polling stops and the event socket
closes.
*/
package main
