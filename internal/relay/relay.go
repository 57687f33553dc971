// Fbxdash - Freebox Dashboard Realtime Backend
// Copyright 2026 The Fbxdash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fbxdash/fbxdash

package relay

import (
	"context"
	"sync"
	"time"

	"github.com/fbxdash/fbxdash/internal/freebox"
	"github.com/fbxdash/fbxdash/internal/logging"
	"github.com/fbxdash/fbxdash/internal/metrics"
	"github.com/fbxdash/fbxdash/internal/websocket"
)

const (
	// DefaultFastInterval paces connection_status snapshots.
	DefaultFastInterval = time.Second
	// DefaultSlowInterval paces system_status snapshots.
	DefaultSlowInterval = 5 * time.Second

	kindConnection = "connection"
	kindSystem     = "system"
)

// Gate is the session-aware source of box snapshots.
// Satisfied by *freebox.Client.
type Gate interface {
	IsLoggedIn() bool
	GetConnectionStatus(ctx context.Context) (*freebox.ConnectionStatus, error)
	GetSystemStatus(ctx context.Context) (*freebox.SystemStatus, error)
}

// Broadcaster fans snapshots out to dashboard clients.
// Satisfied by *websocket.Hub.
type Broadcaster interface {
	Broadcast(messageType string, data interface{})
	GetClientCount() int
}

// Ticker is the subset of *time.Ticker the relay uses.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

func newTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

// Config holds the two polling intervals.
type Config struct {
	FastInterval time.Duration
	SlowInterval time.Duration
}

// Relay polls the box while dashboard clients are connected and a session exists.
type Relay struct {
	gate Gate
	out  Broadcaster
	cfg  Config

	newTicker func(time.Duration) Ticker

	mu       sync.Mutex
	baseCtx  context.Context
	running  bool
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New creates a stopped Relay.
func New(gate Gate, out Broadcaster, cfg Config) *Relay {
	if cfg.FastInterval <= 0 {
		cfg.FastInterval = DefaultFastInterval
	}
	if cfg.SlowInterval <= 0 {
		cfg.SlowInterval = DefaultSlowInterval
	}
	return &Relay{
		gate:      gate,
		out:       out,
		cfg:       cfg,
		newTicker: newTimeTicker,
		baseCtx:   context.Background(),
	}
}

// StartPolling starts both polling loops and fetches each snapshot once
// right away. It does nothing when already running.
func (r *Relay) StartPolling() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	r.running = true
	r.stopChan = make(chan struct{})
	metrics.RelayPolling.Set(1)

	logging.Info().
		Dur("fast_interval", r.cfg.FastInterval).
		Dur("slow_interval", r.cfg.SlowInterval).
		Msg("relay polling started")

	r.wg.Add(2)
	go r.pollLoop(r.baseCtx, r.stopChan, r.cfg.FastInterval, r.pollConnection)
	go r.pollLoop(r.baseCtx, r.stopChan, r.cfg.SlowInterval, r.pollSystem)
}

// StopPolling stops both loops. In-flight fetches finish but are not broadcast.
// Safe to call when not running.
func (r *Relay) StopPolling() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return
	}
	r.running = false
	close(r.stopChan)
	metrics.RelayPolling.Set(0)
	logging.Info().Msg("relay polling stopped")
}

// IsPolling reports whether the loops are running.
func (r *Relay) IsPolling() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// OnLogin restarts polling when someone is already watching.
func (r *Relay) OnLogin() {
	if r.out.GetClientCount() > 0 {
		r.StartPolling()
	}
}

// OnLogout stops polling.
func (r *Relay) OnLogout() {
	r.StopPolling()
}

// OnFirstClient implements websocket.ClientListener.
func (r *Relay) OnFirstClient() {
	r.StartPolling()
}

// OnLastClient implements websocket.ClientListener.
func (r *Relay) OnLastClient() {
	r.StopPolling()
}

// RunWithContext binds fetches to ctx and blocks until it is canceled,
// then stops polling and waits for the loops to exit.
func (r *Relay) RunWithContext(ctx context.Context) error {
	r.mu.Lock()
	r.baseCtx = ctx
	r.mu.Unlock()

	<-ctx.Done()
	r.StopPolling()
	r.wg.Wait()
	return ctx.Err()
}

func (r *Relay) pollLoop(ctx context.Context, stop <-chan struct{}, interval time.Duration, poll func(context.Context, <-chan struct{})) {
	defer r.wg.Done()

	poll(ctx, stop)

	ticker := r.newTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C():
			poll(ctx, stop)
		}
	}
}

// ready reports whether a tick should fetch. Skipped ticks are the normal
// state between sessions and are not errors.
func (r *Relay) ready(kind string) bool {
	if !r.gate.IsLoggedIn() || r.out.GetClientCount() == 0 {
		metrics.RelayFetches.WithLabelValues(kind, "skipped").Inc()
		return false
	}
	return true
}

func stopped(stop <-chan struct{}) bool {
	select {
	case <-stop:
		return true
	default:
		return false
	}
}

func (r *Relay) pollConnection(ctx context.Context, stop <-chan struct{}) {
	if !r.ready(kindConnection) {
		return
	}
	status, err := r.gate.GetConnectionStatus(ctx)
	if err != nil {
		metrics.RelayFetches.WithLabelValues(kindConnection, "failure").Inc()
		logging.Debug().Err(err).Msg("connection status fetch failed")
		return
	}
	metrics.RelayFetches.WithLabelValues(kindConnection, "success").Inc()
	if stopped(stop) {
		return
	}
	r.out.Broadcast(websocket.MessageTypeConnectionStatus, status)
}

func (r *Relay) pollSystem(ctx context.Context, stop <-chan struct{}) {
	if !r.ready(kindSystem) {
		return
	}
	status, err := r.gate.GetSystemStatus(ctx)
	if err != nil {
		metrics.RelayFetches.WithLabelValues(kindSystem, "failure").Inc()
		logging.Debug().Err(err).Msg("system status fetch failed")
		return
	}
	metrics.RelayFetches.WithLabelValues(kindSystem, "success").Inc()
	if stopped(stop) {
		return
	}
	r.out.Broadcast(websocket.MessageTypeSystemStatus, status)
}
