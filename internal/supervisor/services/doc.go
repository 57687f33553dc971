// Fbxdash - Freebox Dashboard Realtime Backend
// Copyright 2026 The Fbxdash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fbxdash/fbxdash

// Package services adapts fbxdash components to suture.Service.
//
// The hub, relay and bridge already expose RunWithContext, so their wrappers
// only delegate and provide a name for supervisor logs. HTTPServerService
// turns ListenAndServe into a context-aware Serve with bounded Shutdown.
package services
