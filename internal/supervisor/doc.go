// Fbxdash - Freebox Dashboard Realtime Backend
// Copyright 2026 The Fbxdash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fbxdash/fbxdash

/*
Package supervisor runs the long-lived services under a suture v4 tree.

	fbxdash (root)
	├── upstream-layer
	│   ├── polling-relay
	│   └── event-bridge (if bridge.enabled)
	├── messaging-layer
	│   └── websocket-hub
	└── api-layer
	    └── http-server

Each layer counts failures independently, so a relay or bridge crash while
the box is unreachable restarts only the upstream layer. Supervisor events
are logged through sutureslog onto the zerolog-backed slog logger from
internal/logging.

Usage:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddUpstreamService(services.NewRelayService(relay))
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	err = tree.Serve(ctx)

Cancel ctx to stop every service. UnstoppedServiceReport lists services that
exceeded the shutdown timeout.
*/
package supervisor
