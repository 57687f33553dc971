// Fbxdash - Freebox Dashboard Realtime Backend
// Copyright 2026 The Fbxdash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fbxdash/fbxdash

/*
Package api exposes the dashboard's REST routes and the WebSocket upgrade.

Most routes relay the box's {success, result, msg, error_code} envelope
unchanged, failures included, so the dashboard sees exactly what the box
said. Errors raised by this server use:

	{"success": false, "error": {"code": "...", "message": "..."}}

with codes VALIDATION_ERROR (400), NOT_LOGGED_IN (401), RATE_LIMITED (429),
UPSTREAM_ERROR (502, or 503 while the circuit breaker is open),
INTERNAL_ERROR and NOT_FOUND.

Routes:

	GET    /api/health
	GET    /api/auth/status
	POST   /api/auth/login
	POST   /api/auth/logout
	GET    /api/connection[/config|/ipv6|/logs]
	GET    /api/connection/history?start=&end=
	GET    /api/connection/temp-history?start=&end=
	GET    /api/system
	GET    /api/lan/config|interfaces|devices|devices/{interface}
	POST   /api/lan/wol
	GET    /api/tv/channels|bouquets
	GET    /api/tv/epg/by_time/{timestamp}
	GET    /api/tv/recordings       DELETE /api/tv/recordings/{id}
	GET    /api/tv/programmed       POST   /api/tv/programmed
	DELETE /api/tv/programmed/{id}
	GET    /api/tv/pvr/config       PUT    /api/tv/pvr/config
	GET    /ws/connection
	GET    /metrics

The EPG route hands the raw timestamp to the EPG cache, which buckets it.
*/
package api
