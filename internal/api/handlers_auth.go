// Fbxdash - Freebox Dashboard Realtime Backend
// Copyright 2026 The Fbxdash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fbxdash/fbxdash

package api

import (
	"errors"
	"net/http"

	"github.com/fbxdash/fbxdash/internal/freebox"
	"github.com/fbxdash/fbxdash/internal/logging"
)

// AuthStatus is the result of the auth endpoints.
type AuthStatus struct {
	LoggedIn    bool `json:"logged_in"`
	HasAppToken bool `json:"has_app_token"`
}

func (h *Handler) authStatus() AuthStatus {
	return AuthStatus{LoggedIn: h.box.IsLoggedIn(), HasAppToken: h.box.HasAppToken()}
}

// AuthStatusHandler reports whether the backend holds a box session.
func (h *Handler) AuthStatusHandler(w http.ResponseWriter, _ *http.Request) {
	respondSuccess(w, h.authStatus())
}

// Login opens a box session with the configured app token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	err := h.box.Login(r.Context())
	var apiErr *freebox.APIError
	switch {
	case err == nil:
		respondSuccess(w, h.authStatus())
	case errors.Is(err, freebox.ErrNoAppToken):
		respondError(w, http.StatusUnauthorized, ErrCodeNotLoggedIn, "No app token configured", nil)
	case errors.As(err, &apiErr):
		respondError(w, http.StatusUnauthorized, ErrCodeNotLoggedIn, apiErr.Error(), nil)
	default:
		respondUpstreamError(w, err)
	}
}

// Logout closes the box session. Relay polling and native events stop with it.
// The local session is dropped even when the box cannot be reached.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.box.Logout(r.Context()); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("box logout failed, local session cleared")
	}
	respondSuccess(w, h.authStatus())
}
