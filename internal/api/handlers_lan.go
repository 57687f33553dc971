// Fbxdash - Freebox Dashboard Realtime Backend
// Copyright 2026 The Fbxdash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fbxdash/fbxdash

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// defaultWOLInterface is the box's main LAN interface.
const defaultWOLInterface = "pub"

// WakeOnLANRequest is the body of POST /api/lan/wol.
type WakeOnLANRequest struct {
	MAC       string `json:"mac" validate:"required,mac"`
	Interface string `json:"interface" validate:"omitempty,max=64"`
	Password  string `json:"password" validate:"omitempty,max=64"`
}

// LANConfig returns the LAN configuration envelope.
func (h *Handler) LANConfig(w http.ResponseWriter, r *http.Request) {
	resp, err := h.box.LANConfig(r.Context())
	relay(w, resp, err)
}

// LANInterfaces lists the LAN browser interfaces.
func (h *Handler) LANInterfaces(w http.ResponseWriter, r *http.Request) {
	resp, err := h.box.LANInterfaces(r.Context())
	relay(w, resp, err)
}

// LANDevices lists hosts across every interface.
func (h *Handler) LANDevices(w http.ResponseWriter, r *http.Request) {
	resp, err := h.box.LANDevices(r.Context())
	relay(w, resp, err)
}

// LANDevicesByInterface lists hosts on one interface.
func (h *Handler) LANDevicesByInterface(w http.ResponseWriter, r *http.Request) {
	iface := chi.URLParam(r, "interface")
	if iface == "" {
		respondError(w, http.StatusBadRequest, ErrCodeValidation, "interface is required", nil)
		return
	}
	resp, err := h.box.LANHosts(r.Context(), iface)
	relay(w, resp, err)
}

// WakeOnLAN sends a magic packet through the box.
func (h *Handler) WakeOnLAN(w http.ResponseWriter, r *http.Request) {
	var req WakeOnLANRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	iface := req.Interface
	if iface == "" {
		iface = defaultWOLInterface
	}
	resp, err := h.box.WakeOnLAN(r.Context(), iface, req.MAC, req.Password)
	relay(w, resp, err)
}
