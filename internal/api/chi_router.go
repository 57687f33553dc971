// Fbxdash - Freebox Dashboard Realtime Backend
// Copyright 2026 The Fbxdash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fbxdash/fbxdash

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fbxdash/fbxdash/internal/config"
	"github.com/fbxdash/fbxdash/internal/middleware"
)

// DefaultWebSocketPath is where dashboard clients connect.
const DefaultWebSocketPath = "/ws/connection"

// Router wires handlers and middleware into a chi router.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
	wsPath        string
}

// NewRouter creates a Router. cfg may be nil in tests.
func NewRouter(handler *Handler, cfg *config.Config) *Router {
	var sec *config.SecurityConfig
	wsPath := DefaultWebSocketPath
	if cfg != nil {
		sec = &cfg.Security
		if cfg.WebSocket.Path != "" {
			wsPath = cfg.WebSocket.Path
		}
	}
	return &Router{
		handler:       handler,
		chiMiddleware: NewChiMiddleware(sec),
		wsPath:        wsPath,
	}
}

// SetupChi builds the HTTP handler tree.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "Route not found", nil)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.With(router.chiMiddleware.RateLimitWebSocket()).Get(router.wsPath, router.handler.WebSocket)

	r.Route("/api", func(r chi.Router) {
		r.Use(APISecurityHeaders)
		r.Use(middleware.PrometheusMetrics)
		r.Use(chimiddleware.Compress(5, "application/json"))

		r.Get("/health", router.handler.Health)

		r.Route("/auth", func(r chi.Router) {
			r.Get("/status", router.handler.AuthStatusHandler)
			r.With(router.chiMiddleware.RateLimitAuth()).Post("/login", router.handler.Login)
			r.Post("/logout", router.handler.Logout)
		})

		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimit())

			r.Route("/connection", func(r chi.Router) {
				r.Get("/", router.handler.Connection)
				r.Get("/config", router.handler.ConnectionConfig)
				r.Get("/ipv6", router.handler.ConnectionIPv6)
				r.Get("/history", router.handler.ConnectionHistory)
				r.Get("/temp-history", router.handler.ConnectionTempHistory)
				r.Get("/logs", router.handler.ConnectionLogs)
			})

			r.Get("/system", router.handler.System)

			r.Route("/lan", func(r chi.Router) {
				r.Get("/config", router.handler.LANConfig)
				r.Get("/interfaces", router.handler.LANInterfaces)
				r.Get("/devices", router.handler.LANDevices)
				r.Get("/devices/{interface}", router.handler.LANDevicesByInterface)
				r.Post("/wol", router.handler.WakeOnLAN)
			})

			r.Route("/tv", func(r chi.Router) {
				r.Get("/channels", router.handler.TVChannels)
				r.Get("/bouquets", router.handler.TVBouquets)
				r.Get("/epg/by_time/{timestamp}", router.handler.EPGByTime)
				r.Get("/recordings", router.handler.Recordings)
				r.Delete("/recordings/{id}", router.handler.DeleteRecording)
				r.Get("/programmed", router.handler.Programmed)
				r.Post("/programmed", router.handler.CreateProgrammed)
				r.Delete("/programmed/{id}", router.handler.DeleteProgrammed)
				r.Get("/pvr/config", router.handler.PVRConfig)
				r.Put("/pvr/config", router.handler.UpdatePVRConfig)
			})
		})
	})

	return r
}
