// Fbxdash - Freebox Dashboard Realtime Backend
// Copyright 2026 The Fbxdash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fbxdash/fbxdash

// Package freebox is the client for the box's local REST API.
//
// The Client owns the single upstream session of the process. Every call goes
// through an x/time/rate limiter and a gobreaker circuit breaker, and returns
// the box envelope:
//
//	{"success": true, "result": {...}}
//	{"success": false, "msg": "...", "error_code": "auth_required"}
//
// REST handlers forward *Response values unchanged. The relay and bridge use
// the typed getters (GetConnectionStatus, GetSystemStatus, APIMajorVersion),
// which turn failed envelopes into *APIError.
//
// # Session
//
// Login answers the box challenge with HMAC-SHA1(app_token, challenge) and
// stores the session token sent as X-Fbx-App-Auth. Authenticated calls log in
// on demand and retry once when the box reports auth_required. An explicit
// Logout disables on-demand login until Login is called again. Components
// follow the session with OnSessionChange.
//
// # Normalization
//
// NormalizeSystemInfo maps the per-model sensor layouts of /system/ onto the
// fixed system_status shape consumed by the dashboard.
package freebox
