// Fbxdash - Freebox Dashboard Realtime Backend
// Copyright 2026 The Fbxdash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fbxdash/fbxdash

package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

// TVChannels returns the channel catalog.
func (h *Handler) TVChannels(w http.ResponseWriter, r *http.Request) {
	resp, err := h.box.TVChannels(r.Context())
	relay(w, resp, err)
}

// TVBouquets returns the bouquet catalog.
func (h *Handler) TVBouquets(w http.ResponseWriter, r *http.Request) {
	resp, err := h.box.TVBouquets(r.Context())
	relay(w, resp, err)
}

// EPGByTime returns the program guide around a Unix timestamp. The timestamp
// is bucketed by the EPG cache. Only its leading integer is read, so
// "1700000000abc" is 1700000000; no digits or zero means now.
func (h *Handler) EPGByTime(w http.ResponseWriter, r *http.Request) {
	ts, ok := leadingInt(chi.URLParam(r, "timestamp"))
	if !ok || ts == 0 {
		ts = h.now().Unix()
	}
	resp, err := h.epg.Fetch(r.Context(), ts)
	relay(w, resp, err)
}

// Recordings lists finished recordings.
func (h *Handler) Recordings(w http.ResponseWriter, r *http.Request) {
	resp, err := h.box.PVRFinished(r.Context())
	relay(w, resp, err)
}

// DeleteRecording deletes a finished recording.
func (h *Handler) DeleteRecording(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	resp, err := h.box.DeletePVRFinished(r.Context(), id)
	relay(w, resp, err)
}

// Programmed lists programmed recordings.
func (h *Handler) Programmed(w http.ResponseWriter, r *http.Request) {
	resp, err := h.box.PVRProgrammed(r.Context())
	relay(w, resp, err)
}

// CreateProgrammed forwards a new programmed recording to the box.
func (h *Handler) CreateProgrammed(w http.ResponseWriter, r *http.Request) {
	body, ok := readRawJSON(w, r)
	if !ok {
		return
	}
	resp, err := h.box.CreatePVRProgrammed(r.Context(), body)
	relay(w, resp, err)
}

// DeleteProgrammed cancels a programmed recording.
func (h *Handler) DeleteProgrammed(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	resp, err := h.box.DeletePVRProgrammed(r.Context(), id)
	relay(w, resp, err)
}

// PVRConfig returns the recorder configuration.
func (h *Handler) PVRConfig(w http.ResponseWriter, r *http.Request) {
	resp, err := h.box.PVRConfig(r.Context())
	relay(w, resp, err)
}

// UpdatePVRConfig forwards a recorder configuration update.
func (h *Handler) UpdatePVRConfig(w http.ResponseWriter, r *http.Request) {
	body, ok := readRawJSON(w, r)
	if !ok {
		return
	}
	resp, err := h.box.UpdatePVRConfig(r.Context(), body)
	relay(w, resp, err)
}

// pathID parses the positive {id} route parameter.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, ErrCodeValidation, "Invalid id", nil)
		return 0, false
	}
	return id, true
}

// leadingInt parses the optionally signed decimal prefix of s after leading
// spaces. It reports false when there are no digits or the value overflows.
func leadingInt(s string) (int64, bool) {
	s = strings.TrimLeft(s, " \t")
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	v, err := strconv.ParseInt(s[:end], 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
