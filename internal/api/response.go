// Fbxdash - Freebox Dashboard Realtime Backend
// Copyright 2026 The Fbxdash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fbxdash/fbxdash

package api

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/fbxdash/fbxdash/internal/freebox"
	"github.com/fbxdash/fbxdash/internal/logging"
)

// APIResponse is the body of every response produced by this server rather
// than relayed from the box.
type APIResponse struct {
	Success bool        `json:"success"`
	Result  interface{} `json:"result,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
}

// APIError describes a failed request.
type APIError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// Error codes
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotLoggedIn   = "NOT_LOGGED_IN"
	ErrCodeUpstream      = "UPSTREAM_ERROR"
	ErrCodeInternalError = "INTERNAL_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeRateLimited   = "RATE_LIMITED"
)

// respondJSON writes v as JSON with the given status.
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// respondSuccess wraps result in a success envelope.
func respondSuccess(w http.ResponseWriter, result interface{}) {
	respondJSON(w, http.StatusOK, APIResponse{Success: true, Result: result})
}

// respondEnvelope relays a box envelope unchanged, failures included.
func respondEnvelope(w http.ResponseWriter, resp *freebox.Response) {
	respondJSON(w, http.StatusOK, resp)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, status int, code, message string, err error) {
	if err != nil {
		logging.Error().Str("code", code).Err(err).Msg("API Error")
	}
	respondJSON(w, status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: message},
	})
}

// respondUpstreamError maps a box client error onto an HTTP status and code.
func respondUpstreamError(w http.ResponseWriter, err error) {
	var apiErr *freebox.APIError
	switch {
	case errors.Is(err, freebox.ErrNotLoggedIn), errors.Is(err, freebox.ErrNoAppToken):
		respondError(w, http.StatusUnauthorized, ErrCodeNotLoggedIn, "Not logged in to Freebox", nil)
	case errors.Is(err, freebox.ErrCircuitOpen):
		respondError(w, http.StatusServiceUnavailable, ErrCodeUpstream, "Freebox temporarily unavailable", err)
	case errors.As(err, &apiErr):
		respondError(w, http.StatusBadGateway, ErrCodeUpstream, apiErr.Error(), err)
	default:
		respondError(w, http.StatusBadGateway, ErrCodeUpstream, "Freebox request failed", err)
	}
}

// relay writes resp, or maps err when the upstream call failed.
func relay(w http.ResponseWriter, resp *freebox.Response, err error) {
	if err != nil {
		respondUpstreamError(w, err)
		return
	}
	respondEnvelope(w, resp)
}
