// Fbxdash - Freebox Dashboard Realtime Backend
// Copyright 2026 The Fbxdash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fbxdash/fbxdash

package services

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

var (
	_ suture.Service = (*RunnerService)(nil)
	_ suture.Service = (*HTTPServerService)(nil)
)

// mockRunner stands in for the hub, relay and bridge.
type mockRunner struct {
	runErr   error
	runCount atomic.Int32
	started  chan struct{}
}

func newMockRunner() *mockRunner {
	return &mockRunner{started: make(chan struct{}, 8)}
}

func (m *mockRunner) RunWithContext(ctx context.Context) error {
	m.runCount.Add(1)
	select {
	case m.started <- struct{}{}:
	default:
	}
	if m.runErr != nil {
		return m.runErr
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestRunnerServices(t *testing.T) {
	tests := []struct {
		name string
		wrap func(r *mockRunner) suture.Service
	}{
		{"websocket-hub", func(r *mockRunner) suture.Service { return NewWebSocketHubService(r) }},
		{"polling-relay", func(r *mockRunner) suture.Service { return NewRelayService(r) }},
		{"event-bridge", func(r *mockRunner) suture.Service { return NewBridgeService(r) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := newMockRunner()
			svc := tt.wrap(runner)

			if got := svc.(interface{ String() string }).String(); got != tt.name {
				t.Errorf("String() = %q, want %q", got, tt.name)
			}

			ctx, cancel := context.WithCancel(context.Background())
			errCh := make(chan error, 1)
			go func() { errCh <- svc.Serve(ctx) }()

			<-runner.started
			cancel()

			select {
			case err := <-errCh:
				if !errors.Is(err, context.Canceled) {
					t.Errorf("expected context.Canceled, got %v", err)
				}
			case <-time.After(time.Second):
				t.Fatal("Serve did not return after cancellation")
			}
		})
	}
}

func TestRunnerService_PropagatesError(t *testing.T) {
	runner := newMockRunner()
	runner.runErr = errors.New("dial failed")

	if err := NewBridgeService(runner).Serve(context.Background()); !errors.Is(err, runner.runErr) {
		t.Errorf("expected %v, got %v", runner.runErr, err)
	}
}

func TestRunnerService_RestartedBySupervisor(t *testing.T) {
	runner := newMockRunner()
	runner.runErr = errors.New("crash")

	sup := suture.New("test-sup", suture.Spec{
		FailureThreshold: 10,
		FailureBackoff:   10 * time.Millisecond,
		Timeout:          time.Second,
	})
	sup.Add(NewRelayService(runner))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := sup.ServeBackground(ctx)

	for i := 0; i < 3; i++ {
		select {
		case <-runner.started:
		case <-time.After(2 * time.Second):
			t.Fatalf("expected restart %d", i)
		}
	}

	cancel()
	<-errCh
}

type failingServer struct {
	listenErr   error
	shutdownErr error
	stop        chan struct{}
	started     chan struct{}
}

func (s *failingServer) ListenAndServe() error {
	close(s.started)
	if s.listenErr != nil {
		return s.listenErr
	}
	<-s.stop
	return http.ErrServerClosed
}

func (s *failingServer) Shutdown(context.Context) error {
	close(s.stop)
	return s.shutdownErr
}

func TestHTTPServerService_RealServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	server := &http.Server{
		Addr:              addr,
		ReadHeaderTimeout: time.Second,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}),
	}
	svc := NewHTTPServerService(server, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Get("http://" + addr + "/")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode != http.StatusNoContent {
				t.Errorf("expected 204, got %d", resp.StatusCode)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server never answered: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return")
	}
}

func TestHTTPServerService_Errors(t *testing.T) {
	t.Run("startup failure", func(t *testing.T) {
		bindErr := errors.New("bind: address already in use")
		server := &failingServer{listenErr: bindErr, stop: make(chan struct{}), started: make(chan struct{})}

		err := NewHTTPServerService(server, time.Second).Serve(context.Background())
		if !errors.Is(err, bindErr) {
			t.Errorf("expected %v, got %v", bindErr, err)
		}
	})

	t.Run("shutdown failure", func(t *testing.T) {
		shutdownErr := errors.New("shutdown timeout")
		server := &failingServer{shutdownErr: shutdownErr, stop: make(chan struct{}), started: make(chan struct{})}
		svc := NewHTTPServerService(server, time.Second)

		ctx, cancel := context.WithCancel(context.Background())
		errCh := make(chan error, 1)
		go func() { errCh <- svc.Serve(ctx) }()

		<-server.started
		cancel()

		if err := <-errCh; !errors.Is(err, shutdownErr) {
			t.Errorf("expected %v, got %v", shutdownErr, err)
		}
	})
}

func TestNewHTTPServerService_DefaultTimeout(t *testing.T) {
	for _, d := range []time.Duration{0, -5 * time.Second} {
		if svc := NewHTTPServerService(&http.Server{}, d); svc.shutdownTimeout != 10*time.Second {
			t.Errorf("timeout %v: expected default 10s, got %v", d, svc.shutdownTimeout)
		}
	}
}
