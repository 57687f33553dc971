// Fbxdash - Freebox Dashboard Realtime Backend
// Copyright 2026 The Fbxdash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fbxdash/fbxdash

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fbxdash/fbxdash/internal/api"
	"github.com/fbxdash/fbxdash/internal/bridge"
	"github.com/fbxdash/fbxdash/internal/config"
	"github.com/fbxdash/fbxdash/internal/epg"
	"github.com/fbxdash/fbxdash/internal/freebox"
	"github.com/fbxdash/fbxdash/internal/logging"
	"github.com/fbxdash/fbxdash/internal/relay"
	"github.com/fbxdash/fbxdash/internal/supervisor"
	"github.com/fbxdash/fbxdash/internal/supervisor/services"
	ws "github.com/fbxdash/fbxdash/internal/websocket"
)

// startupLoginTimeout bounds the login attempted when the server starts.
const startupLoginTimeout = 15 * time.Second

func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})

	logging.Info().
		Str("freebox_url", cfg.Freebox.URL).
		Bool("app_token", cfg.Freebox.AppToken != "").
		Bool("bridge_enabled", cfg.Bridge.Enabled).
		Msg("Starting fbxdash")

	box, err := freebox.NewClient(freebox.Config{
		BaseURL:           cfg.Freebox.URL,
		AppID:             cfg.Freebox.AppID,
		AppToken:          cfg.Freebox.AppToken,
		Timeout:           cfg.Freebox.Timeout,
		APIVersion:        cfg.Freebox.APIVersion,
		RequestsPerSecond: cfg.Freebox.RequestsPerSecond,
		Burst:             cfg.Freebox.Burst,
		CatalogCacheTTL:   cfg.Freebox.CatalogCacheTTL,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create Freebox client")
	}
	defer box.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	hub := ws.NewHub(cfg.WebSocket.PingInterval)

	poller := relay.New(box, hub, relay.Config{
		FastInterval: cfg.Relay.FastInterval,
		SlowInterval: cfg.Relay.SlowInterval,
	})
	hub.SetClientListener(poller)

	// bridgeStatus stays an untyped nil when the bridge is disabled.
	var bridgeStatus api.BridgeStatus
	var events *bridge.Bridge
	if cfg.Bridge.Enabled {
		events = bridge.New(box, hub, bridge.Config{
			Host:           cfg.Freebox.Host,
			ReconnectDelay: cfg.Bridge.ReconnectDelay,
		})
		bridgeStatus = events
	} else {
		logging.Info().Msg("Native event bridge disabled (BRIDGE_ENABLED=false)")
	}

	box.OnSessionChange(func(loggedIn bool) {
		if loggedIn {
			poller.OnLogin()
			if events != nil {
				events.OnLogin()
			}
			return
		}
		poller.OnLogout()
		if events != nil {
			events.OnLogout()
		}
	})

	guide := epg.New(box, epg.Config{
		TTL:            cfg.EPG.TTL,
		SweepThreshold: cfg.EPG.SweepThreshold,
	})

	handler := api.NewHandler(box, guide, hub, bridgeStatus, cfg)
	router := api.NewRouter(handler, cfg)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	tree.AddUpstreamService(services.NewRelayService(poller))
	if events != nil {
		tree.AddUpstreamService(services.NewBridgeService(events))
	}
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Str("ws_path", cfg.WebSocket.Path).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	if box.HasAppToken() {
		go startupLogin(ctx, box)
	} else {
		logging.Warn().Msg("No app token configured (FREEBOX_APP_TOKEN); waiting for pairing")
	}

	// errCh yields exactly one value and is never closed.
	var treeErr error
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
		treeErr = <-errCh
	case treeErr = <-errCh:
		cancel()
	}
	if treeErr != nil && !errors.Is(treeErr, context.Canceled) {
		logging.Error().Err(treeErr).Msg("Supervisor tree error")
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("fbxdash stopped")
}

// startupLogin opens a session so polling and native events can start as
// soon as a dashboard connects. Failure is not fatal.
func startupLogin(ctx context.Context, box *freebox.Client) {
	loginCtx, cancel := context.WithTimeout(ctx, startupLoginTimeout)
	defer cancel()

	if err := box.Login(loginCtx); err != nil {
		logging.Warn().Err(err).Msg("Startup login failed; retry via POST /api/auth/login")
		return
	}
	logging.Info().Msg("Logged in to Freebox")
}
