// Fbxdash - Freebox Dashboard Realtime Backend
// Copyright 2026 The Fbxdash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fbxdash/fbxdash

package supervisor

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestSupervisorTreeConstruction(t *testing.T) {
	t.Run("creates hierarchical supervisor tree", func(t *testing.T) {
		tree, err := NewSupervisorTree(quietLogger(), TreeConfig{
			FailureThreshold: 5,
			FailureBackoff:   time.Second,
			ShutdownTimeout:  10 * time.Second,
		})
		if err != nil {
			t.Fatalf("failed to create tree: %v", err)
		}
		if tree.Root() == nil {
			t.Error("root supervisor should not be nil")
		}
	})

	t.Run("applies default values for zero config", func(t *testing.T) {
		tree, err := NewSupervisorTree(quietLogger(), TreeConfig{})
		if err != nil {
			t.Fatalf("failed to create tree: %v", err)
		}
		if tree.config != DefaultTreeConfig() {
			t.Errorf("expected defaults %+v, got %+v", DefaultTreeConfig(), tree.config)
		}
	})
}

func TestSupervisorTreeLifecycle(t *testing.T) {
	tree, err := NewSupervisorTree(quietLogger(), TreeConfig{
		FailureBackoff:  100 * time.Millisecond,
		ShutdownTimeout: time.Second,
	})
	if err != nil {
		t.Fatalf("failed to create tree: %v", err)
	}

	services := []*mockService{
		newMockService("mock-upstream"),
		newMockService("mock-messaging"),
		newMockService("mock-api"),
	}
	tree.AddUpstreamService(services[0])
	tree.AddMessagingService(services[1])
	tree.AddAPIService(services[2])

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)

	deadline := time.Now().Add(2 * time.Second)
	for _, svc := range services {
		for svc.startCount.Load() == 0 {
			if time.Now().After(deadline) {
				t.Fatalf("%s never started", svc.name)
			}
			time.Sleep(10 * time.Millisecond)
		}
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("tree did not stop")
	}

	for _, svc := range services {
		if svc.stopCount.Load() != svc.startCount.Load() {
			t.Errorf("%s: %d starts, %d stops", svc.name, svc.startCount.Load(), svc.stopCount.Load())
		}
	}

	report, err := tree.UnstoppedServiceReport()
	if err != nil {
		t.Fatalf("UnstoppedServiceReport: %v", err)
	}
	if len(report) != 0 {
		t.Errorf("expected every service stopped, got %v", report)
	}
}

func TestSupervisorTreeRestartsFailedService(t *testing.T) {
	tree, err := NewSupervisorTree(quietLogger(), TreeConfig{
		FailureThreshold: 10,
		FailureBackoff:   10 * time.Millisecond,
		ShutdownTimeout:  time.Second,
	})
	if err != nil {
		t.Fatalf("failed to create tree: %v", err)
	}

	flaky := newMockService("flaky-bridge")
	flaky.setFailCount(2)
	steady := newMockService("steady-hub")
	tree.AddUpstreamService(flaky)
	tree.AddMessagingService(steady)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := tree.ServeBackground(ctx)

	deadline := time.Now().Add(3 * time.Second)
	for flaky.startCount.Load() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("expected 3 starts of flaky service, got %d", flaky.startCount.Load())
		}
		time.Sleep(10 * time.Millisecond)
	}

	if got := steady.startCount.Load(); got != 1 {
		t.Errorf("sibling layer restarted: %d starts", got)
	}

	cancel()
	<-errCh
}
