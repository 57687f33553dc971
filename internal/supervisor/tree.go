// Fbxdash - Freebox Dashboard Realtime Backend
// Copyright 2026 The Fbxdash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fbxdash/fbxdash

package supervisor

import (
	"context"
	"log/slog"
	"time"

	"github.com/thejerf/suture/v4"
	"github.com/thejerf/sutureslog"
)

// TreeConfig tunes restart behavior. Zero fields take DefaultTreeConfig values.
type TreeConfig struct {
	FailureThreshold float64       // failures tolerated before backoff
	FailureDecay     float64       // seconds for the failure count to decay
	FailureBackoff   time.Duration // pause once the threshold is crossed
	ShutdownTimeout  time.Duration // per-service stop deadline
}

// DefaultTreeConfig returns suture's built-in defaults.
func DefaultTreeConfig() TreeConfig {
	return TreeConfig{
		FailureThreshold: 5.0,
		FailureDecay:     30.0,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	}
}

func (c TreeConfig) withDefaults() TreeConfig {
	d := DefaultTreeConfig()
	if c.FailureThreshold == 0 {
		c.FailureThreshold = d.FailureThreshold
	}
	if c.FailureDecay == 0 {
		c.FailureDecay = d.FailureDecay
	}
	if c.FailureBackoff == 0 {
		c.FailureBackoff = d.FailureBackoff
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = d.ShutdownTimeout
	}
	return c
}

func (c TreeConfig) spec(hook suture.EventHook) suture.Spec {
	return suture.Spec{
		EventHook:        hook,
		FailureThreshold: c.FailureThreshold,
		FailureDecay:     c.FailureDecay,
		FailureBackoff:   c.FailureBackoff,
		Timeout:          c.ShutdownTimeout,
	}
}

// SupervisorTree manages the hierarchical supervisor structure.
//
// The tree is organized into three layers:
//   - upstream: polling relay and native event bridge
//   - messaging: WebSocket fan-out hub
//   - api: HTTP server
//
// A box outage that crashes the upstream layer leaves connected dashboards
// and the REST routes up.
type SupervisorTree struct {
	root      *suture.Supervisor
	upstream  *suture.Supervisor
	messaging *suture.Supervisor
	api       *suture.Supervisor
	logger    *slog.Logger
	config    TreeConfig
}

// NewSupervisorTree creates the root supervisor and its three layers.
func NewSupervisorTree(logger *slog.Logger, config TreeConfig) (*SupervisorTree, error) {
	config = config.withDefaults()

	// MustHook has a pointer receiver.
	hook := (&sutureslog.Handler{Logger: logger}).MustHook()

	// Layers get no hook of their own; events bubble up to the root's.
	root := suture.New("fbxdash", config.spec(hook))
	t := &SupervisorTree{
		root:      root,
		upstream:  suture.New("upstream-layer", config.spec(nil)),
		messaging: suture.New("messaging-layer", config.spec(nil)),
		api:       suture.New("api-layer", config.spec(nil)),
		logger:    logger,
		config:    config,
	}
	root.Add(t.upstream)
	root.Add(t.messaging)
	root.Add(t.api)
	return t, nil
}

// Root returns the root supervisor.
func (t *SupervisorTree) Root() *suture.Supervisor {
	return t.root
}

// AddUpstreamService adds a service talking to the box (relay, bridge).
func (t *SupervisorTree) AddUpstreamService(svc suture.Service) suture.ServiceToken {
	return t.upstream.Add(svc)
}

// AddMessagingService adds a service to the messaging layer (WebSocket hub).
func (t *SupervisorTree) AddMessagingService(svc suture.Service) suture.ServiceToken {
	return t.messaging.Add(svc)
}

// AddAPIService adds a service to the API layer (HTTP server).
func (t *SupervisorTree) AddAPIService(svc suture.Service) suture.ServiceToken {
	return t.api.Add(svc)
}

// Serve starts the supervisor tree and blocks until the context is canceled.
func (t *SupervisorTree) Serve(ctx context.Context) error {
	return t.root.Serve(ctx)
}

// ServeBackground starts the tree in a goroutine.
// The returned channel receives the error (or nil) when the supervisor stops.
func (t *SupervisorTree) ServeBackground(ctx context.Context) <-chan error {
	return t.root.ServeBackground(ctx)
}

// UnstoppedServiceReport lists services that did not stop within the
// shutdown timeout.
func (t *SupervisorTree) UnstoppedServiceReport() ([]suture.UnstoppedService, error) {
	return t.root.UnstoppedServiceReport()
}
