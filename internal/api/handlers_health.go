// Fbxdash - Freebox Dashboard Realtime Backend
// Copyright 2026 The Fbxdash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fbxdash/fbxdash

package api

import (
	"net/http"
	"time"
)

// HealthStatus is the result of GET /api/health.
type HealthStatus struct {
	Status                string `json:"status"`
	UptimeSeconds         int64  `json:"uptime_seconds"`
	LoggedIn              bool   `json:"logged_in"`
	WebSocketClients      int    `json:"websocket_clients"`
	NativeEventsConnected bool   `json:"native_events_connected"`
}

// Health reports process liveness and the state of the realtime components.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	status := HealthStatus{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		LoggedIn:      h.box.IsLoggedIn(),
	}
	if h.wsHub != nil {
		status.WebSocketClients = h.wsHub.GetClientCount()
	}
	if h.bridge != nil {
		status.NativeEventsConnected = h.bridge.IsConnected()
	}
	respondSuccess(w, status)
}
