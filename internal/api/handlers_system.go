// Fbxdash - Freebox Dashboard Realtime Backend
// Copyright 2026 The Fbxdash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fbxdash/fbxdash

package api

import "net/http"

// System returns the normalized thermal snapshot, the same shape the relay
// pushes as system_status.
func (h *Handler) System(w http.ResponseWriter, r *http.Request) {
	status, err := h.box.GetSystemStatus(r.Context())
	if err != nil {
		respondUpstreamError(w, err)
		return
	}
	respondSuccess(w, status)
}
