// Fbxdash - Freebox Dashboard Realtime Backend
// Copyright 2026 The Fbxdash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fbxdash/fbxdash

package api

import (
	"net/http"
	"strconv"
)

// RRD databases served by the history endpoints.
const (
	rrdNet  = "net"
	rrdTemp = "temp"
)

// Connection returns the WAN link status envelope.
func (h *Handler) Connection(w http.ResponseWriter, r *http.Request) {
	resp, err := h.box.ConnectionStatus(r.Context())
	relay(w, resp, err)
}

// ConnectionConfig returns the WAN configuration envelope.
func (h *Handler) ConnectionConfig(w http.ResponseWriter, r *http.Request) {
	resp, err := h.box.ConnectionConfig(r.Context())
	relay(w, resp, err)
}

// ConnectionIPv6 returns the IPv6 configuration envelope.
func (h *Handler) ConnectionIPv6(w http.ResponseWriter, r *http.Request) {
	resp, err := h.box.IPv6Config(r.Context())
	relay(w, resp, err)
}

// ConnectionLogs returns the WAN connection log envelope.
func (h *Handler) ConnectionLogs(w http.ResponseWriter, r *http.Request) {
	resp, err := h.box.ConnectionLogs(r.Context())
	relay(w, resp, err)
}

// ConnectionHistory returns bandwidth history between ?start and ?end.
func (h *Handler) ConnectionHistory(w http.ResponseWriter, r *http.Request) {
	h.history(w, r, rrdNet)
}

// ConnectionTempHistory returns temperature history between ?start and ?end.
func (h *Handler) ConnectionTempHistory(w http.ResponseWriter, r *http.Request) {
	h.history(w, r, rrdTemp)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request, db string) {
	start, ok := optionalUnix(w, r, "start")
	if !ok {
		return
	}
	end, ok := optionalUnix(w, r, "end")
	if !ok {
		return
	}
	if start > 0 && end > 0 && end < start {
		respondError(w, http.StatusBadRequest, ErrCodeValidation, "end must not be before start", nil)
		return
	}

	resp, err := h.box.RRD(r.Context(), db, start, end)
	relay(w, resp, err)
}

// optionalUnix parses an optional non-negative Unix timestamp query parameter.
// Absent parameters yield 0.
func optionalUnix(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		respondError(w, http.StatusBadRequest, ErrCodeValidation, "Invalid "+name+" timestamp", nil)
		return 0, false
	}
	return v, true
}
