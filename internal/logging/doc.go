// Fbxdash - Freebox Dashboard Realtime Backend
// Copyright 2026 The Fbxdash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fbxdash/fbxdash

// Package logging provides the process-wide zerolog logger for fbxdash.
//
// All packages log through the package-level helpers rather than holding
// their own logger instances:
//
//	logging.Info().Str("path", "/ws/connection").Msg("WebSocket server ready")
//	logging.Warn().Err(err).Msg("Native event bridge disconnected")
//
// # Configuration
//
// Init is called once from main with values loaded by internal/config:
//
//	LOG_LEVEL   - trace, debug, info, warn, error (default: info)
//	LOG_FORMAT  - json, console (default: json)
//	LOG_CALLER  - include caller file:line (default: false)
//
// # Request Correlation
//
// The request ID middleware stores an ID in the request context; Ctx(ctx)
// returns a logger that carries it as the request_id field.
//
// # Supervisor Integration
//
// NewSlogLogger adapts zerolog to log/slog for sutureslog, so supervisor
// restart events share the same output and format as the rest of the process.
//
// # Tests
//
// Test files silence output in an init function:
//
//	logging.Init(logging.Config{Level: "info", Format: "console", Output: io.Discard})
package logging
