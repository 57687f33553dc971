// Fbxdash - Freebox Dashboard Realtime Backend
// Copyright 2026 The Fbxdash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fbxdash/fbxdash

package services

import "context"

// ContextRunner is satisfied by *websocket.Hub, *relay.Relay and *bridge.Bridge.
type ContextRunner interface {
	RunWithContext(ctx context.Context) error
}

// RunnerService adapts a RunWithContext component to suture.Service.
//
// The runner records the supervisor context so that work started later
// (polling on the first client, the event socket on login) ends with the
// tree, and tears that work down when the context ends. The hub closes
// every dashboard client on the way out.
type RunnerService struct {
	runner ContextRunner
	name   string
}

// NewWebSocketHubService wraps the fan-out hub's liveness sweep.
func NewWebSocketHubService(hub ContextRunner) *RunnerService {
	return &RunnerService{runner: hub, name: "websocket-hub"}
}

// NewRelayService wraps the polling relay.
func NewRelayService(r ContextRunner) *RunnerService {
	return &RunnerService{runner: r, name: "polling-relay"}
}

// NewBridgeService wraps the native event bridge.
func NewBridgeService(b ContextRunner) *RunnerService {
	return &RunnerService{runner: b, name: "event-bridge"}
}

func (s *RunnerService) Serve(ctx context.Context) error {
	return s.runner.RunWithContext(ctx)
}

func (s *RunnerService) String() string {
	return s.name
}
