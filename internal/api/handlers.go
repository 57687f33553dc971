// Fbxdash - Freebox Dashboard Realtime Backend
// Copyright 2026 The Fbxdash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fbxdash/fbxdash

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/fbxdash/fbxdash/internal/config"
	"github.com/fbxdash/fbxdash/internal/freebox"
	"github.com/fbxdash/fbxdash/internal/logging"
	"github.com/fbxdash/fbxdash/internal/validation"
	ws "github.com/fbxdash/fbxdash/internal/websocket"
)

// maxBodyBytes bounds JSON request bodies forwarded to the box.
const maxBodyBytes = 1 << 20

// Box is the box API surface used by the REST routes.
// Satisfied by *freebox.Client.
type Box interface {
	IsLoggedIn() bool
	HasAppToken() bool
	Login(ctx context.Context) error
	Logout(ctx context.Context) error

	ConnectionStatus(ctx context.Context) (*freebox.Response, error)
	ConnectionConfig(ctx context.Context) (*freebox.Response, error)
	IPv6Config(ctx context.Context) (*freebox.Response, error)
	ConnectionLogs(ctx context.Context) (*freebox.Response, error)
	RRD(ctx context.Context, db string, dateStart, dateEnd int64) (*freebox.Response, error)

	GetSystemStatus(ctx context.Context) (*freebox.SystemStatus, error)

	LANConfig(ctx context.Context) (*freebox.Response, error)
	LANInterfaces(ctx context.Context) (*freebox.Response, error)
	LANHosts(ctx context.Context, iface string) (*freebox.Response, error)
	LANDevices(ctx context.Context) (*freebox.Response, error)
	WakeOnLAN(ctx context.Context, iface, mac, password string) (*freebox.Response, error)

	TVChannels(ctx context.Context) (*freebox.Response, error)
	TVBouquets(ctx context.Context) (*freebox.Response, error)
	PVRFinished(ctx context.Context) (*freebox.Response, error)
	DeletePVRFinished(ctx context.Context, id int64) (*freebox.Response, error)
	PVRProgrammed(ctx context.Context) (*freebox.Response, error)
	CreatePVRProgrammed(ctx context.Context, body json.RawMessage) (*freebox.Response, error)
	DeletePVRProgrammed(ctx context.Context, id int64) (*freebox.Response, error)
	PVRConfig(ctx context.Context) (*freebox.Response, error)
	UpdatePVRConfig(ctx context.Context, body json.RawMessage) (*freebox.Response, error)
}

// EPGFetcher serves program guide lookups. Satisfied by *epg.Cache.
type EPGFetcher interface {
	Fetch(ctx context.Context, ts int64) (*freebox.Response, error)
}

// BridgeStatus reports the native event socket state. Satisfied by *bridge.Bridge.
type BridgeStatus interface {
	IsConnected() bool
}

// Handler holds the dependencies of every HTTP endpoint.
type Handler struct {
	box         Box
	epg         EPGFetcher
	wsHub       *ws.Hub
	bridge      BridgeStatus
	corsOrigins []string
	startTime   time.Time
	now         func() time.Time
}

// NewHandler creates a Handler. bridge may be nil when native events are disabled.
func NewHandler(box Box, epgCache EPGFetcher, hub *ws.Hub, bridge BridgeStatus, cfg *config.Config) *Handler {
	var origins []string
	if cfg != nil {
		origins = cfg.Security.CORSOrigins
	}
	return &Handler{
		box:         box,
		epg:         epgCache,
		wsHub:       hub,
		bridge:      bridge,
		corsOrigins: origins,
		startTime:   time.Now(),
		now:         time.Now,
	}
}

// getUpgrader creates a WebSocket upgrader with origin checking and a handshake timeout.
func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin validates WebSocket connection origins.
// A missing Origin is accepted only when every origin is allowed.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	for _, allowed := range h.corsOrigins {
		if allowed == "*" {
			return true
		}
		if origin != "" && allowed == origin {
			return true
		}
	}

	if origin == "" {
		logging.Warn().Msg("WebSocket connection rejected: missing Origin header")
	} else {
		logging.Warn().Str("origin", origin).Msg("WebSocket connection rejected from unauthorized origin")
	}
	return false
}

// WebSocket upgrades a dashboard client onto the fan-out hub.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.wsHub == nil {
		respondError(w, http.StatusServiceUnavailable, ErrCodeInternalError, "WebSocket service unavailable", nil)
		return
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error().Err(err).Msg("WebSocket upgrade error")
		return
	}
	h.wsHub.Attach(conn)
}

// decodeAndValidate reads a JSON body into v and runs struct validation.
// It writes the error response and returns false on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeValidation, "Invalid JSON body", nil)
		return false
	}
	if verr := validation.ValidateStruct(v); verr != nil {
		respondJSON(w, http.StatusBadRequest, APIResponse{
			Success: false,
			Error:   &APIError{Code: ErrCodeValidation, Message: verr.Error(), Details: verr.Fields},
		})
		return false
	}
	return true
}

// readRawJSON reads a body that is forwarded to the box as-is.
func readRawJSON(w http.ResponseWriter, r *http.Request) (json.RawMessage, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var raw json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeValidation, "Invalid JSON body", nil)
		return nil, false
	}
	return raw, true
}
