// Fbxdash - Freebox Dashboard Realtime Backend
// Copyright 2026 The Fbxdash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fbxdash/fbxdash

package websocket

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fbxdash/fbxdash/internal/logging"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{
		Level:  "info",
		Format: "console",
		Output: io.Discard,
	})
}

type countingListener struct {
	first atomic.Int32
	last  atomic.Int32
}

func (l *countingListener) OnFirstClient() { l.first.Add(1) }
func (l *countingListener) OnLastClient()  { l.last.Add(1) }

// testServer upgrades every request and hands server-side clients to attached.
func testServer(t *testing.T, hub *Hub) (*httptest.Server, chan *Client) {
	t.Helper()
	attached := make(chan *Client, 16)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		attached <- hub.Attach(conn)
	}))
	t.Cleanup(srv.Close)
	return srv, attached
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func readFrame(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return string(data)
}

func TestNewHub(t *testing.T) {
	hub := NewHub(0)
	if hub.pingInterval != DefaultPingInterval {
		t.Errorf("Expected default ping interval %v, got %v", DefaultPingInterval, hub.pingInterval)
	}
	if hub.GetClientCount() != 0 {
		t.Errorf("Expected 0 clients, got %d", hub.GetClientCount())
	}
}

func TestBroadcast_FanOutToAllOpenClients(t *testing.T) {
	hub := NewHub(time.Minute)
	srv, _ := testServer(t, hub)

	conns := []*websocket.Conn{dial(t, srv), dial(t, srv), dial(t, srv)}
	waitFor(t, "3 clients", func() bool { return hub.GetClientCount() == 3 })

	hub.Broadcast("x", map[string]int{"a": 1})

	want := `{"type":"x","data":{"a":1}}`
	for i, conn := range conns {
		if got := readFrame(t, conn); got != want {
			t.Errorf("client %d got %s, want %s", i, got, want)
		}
	}
}

func TestBroadcast_SkipsClientsNotOpen(t *testing.T) {
	hub := NewHub(time.Minute)
	clients := []*Client{NewClient(hub, nil), NewClient(hub, nil), NewClient(hub, nil)}
	for _, c := range clients {
		hub.Register(c)
	}
	clients[1].terminate()

	hub.Broadcast("x", map[string]int{"a": 1})

	wantQueued := []int{1, 0, 1}
	for i, c := range clients {
		if got := len(c.send); got != wantQueued[i] {
			t.Errorf("client %d queued %d frames, want %d", i, got, wantQueued[i])
		}
	}
	if string(<-clients[0].send) != string(<-clients[2].send) {
		t.Error("Expected identical frames for every client")
	}
}

func TestBroadcast_NoClients(t *testing.T) {
	hub := NewHub(time.Minute)
	hub.Broadcast("x", nil)
	hub.BroadcastFreeboxEvent("vm_state_changed", nil)
}

func TestBroadcast_DropsClientWithFullBuffer(t *testing.T) {
	hub := NewHub(time.Minute)
	slow := NewClient(hub, nil)
	hub.Register(slow)

	for i := 0; i < sendBufferSize+1; i++ {
		hub.Broadcast("x", i)
	}

	if hub.GetClientCount() != 0 {
		t.Errorf("Expected slow client to be dropped, got %d clients", hub.GetClientCount())
	}
	if slow.IsOpen() {
		t.Error("Expected slow client to be terminated")
	}
}

func TestBroadcastFreeboxEvent_Envelope(t *testing.T) {
	hub := NewHub(time.Minute)
	srv, _ := testServer(t, hub)
	conn := dial(t, srv)
	waitFor(t, "client", func() bool { return hub.GetClientCount() == 1 })

	hub.BroadcastFreeboxEvent("vm_state_changed", map[string]interface{}{"id": 3, "status": "running"})

	want := `{"type":"freebox_event","eventType":"vm_state_changed","data":{"id":3,"status":"running"}}`
	if got := readFrame(t, conn); got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestClientListener_Transitions(t *testing.T) {
	hub := NewHub(time.Minute)
	l := &countingListener{}
	hub.SetClientListener(l)

	a, b := NewClient(hub, nil), NewClient(hub, nil)
	hub.Register(a)
	hub.Register(b)
	if l.first.Load() != 1 {
		t.Errorf("Expected 1 first-client signal, got %d", l.first.Load())
	}

	hub.Unregister(a)
	if l.last.Load() != 0 {
		t.Error("Expected no last-client signal while a client remains")
	}
	hub.Unregister(b)
	hub.Unregister(b)
	if l.last.Load() != 1 {
		t.Errorf("Expected 1 last-client signal, got %d", l.last.Load())
	}

	hub.Register(NewClient(hub, nil))
	if l.first.Load() != 2 {
		t.Errorf("Expected a new first-client signal after emptying, got %d", l.first.Load())
	}
}

func TestClientListener_RealDisconnect(t *testing.T) {
	hub := NewHub(time.Minute)
	l := &countingListener{}
	hub.SetClientListener(l)
	srv, _ := testServer(t, hub)

	conn := dial(t, srv)
	waitFor(t, "first client", func() bool { return l.first.Load() == 1 })

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = conn.Close()

	waitFor(t, "last client", func() bool { return l.last.Load() == 1 })
	if hub.GetClientCount() != 0 {
		t.Errorf("Expected 0 clients, got %d", hub.GetClientCount())
	}
}

func TestSweep_TerminatesSilentPeer(t *testing.T) {
	hub := NewHub(time.Minute)
	srv, attached := testServer(t, hub)

	// Never reading means the peer never answers pings.
	conn := dial(t, srv)
	client := <-attached

	hub.sweep()
	if client.isAlive.Load() {
		t.Fatal("Expected first sweep to clear isAlive")
	}
	if hub.GetClientCount() != 1 {
		t.Fatal("Expected client to survive the first sweep")
	}

	hub.sweep()
	if client.IsOpen() {
		t.Error("Expected silent client to be terminated on the second sweep")
	}
	if hub.GetClientCount() != 0 {
		t.Errorf("Expected 0 clients, got %d", hub.GetClientCount())
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func TestSweep_KeepsResponsivePeer(t *testing.T) {
	hub := NewHub(time.Minute)
	srv, attached := testServer(t, hub)

	conn := dial(t, srv)
	client := <-attached
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for i := 0; i < 3; i++ {
		hub.sweep()
		waitFor(t, "pong", client.isAlive.Load)
	}

	if hub.GetClientCount() != 1 {
		t.Errorf("Expected responsive client to stay connected, got %d", hub.GetClientCount())
	}
}

func TestRunWithContext_ReclaimsDeadPeerWithinTwoIntervals(t *testing.T) {
	hub := NewHub(25 * time.Millisecond)
	srv, _ := testServer(t, hub)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = hub.RunWithContext(ctx) }()

	dial(t, srv)
	waitFor(t, "client", func() bool { return hub.GetClientCount() == 1 })
	waitFor(t, "dead peer reclaimed", func() bool { return hub.GetClientCount() == 0 })
}

func TestRunWithContext_Cancel(t *testing.T) {
	hub := NewHub(time.Minute)
	hub.Register(NewClient(hub, nil))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- hub.RunWithContext(ctx) }()
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("RunWithContext did not return")
	}
	if hub.GetClientCount() != 0 {
		t.Errorf("Expected clients closed on shutdown, got %d", hub.GetClientCount())
	}
}

func TestClose_Idempotent(t *testing.T) {
	hub := NewHub(time.Minute)
	c := NewClient(hub, nil)
	hub.Register(c)

	errCh := make(chan error, 1)
	go func() { errCh <- hub.RunWithContext(context.Background()) }()

	hub.Close()
	hub.Close()

	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Expected nil error after Close, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("RunWithContext did not return after Close")
	}
	if c.IsOpen() {
		t.Error("Expected client terminated by Close")
	}

	late := NewClient(hub, nil)
	hub.Register(late)
	if late.IsOpen() || hub.GetClientCount() != 0 {
		t.Error("Expected registration after Close to be rejected")
	}
	if _, ok := <-late.send; ok {
		t.Error("Expected send channel closed for client registered after Close")
	}
}

func TestAttach_AfterCloseReleasesWritePump(t *testing.T) {
	hub := NewHub(time.Minute)
	hub.Close()
	srv, attached := testServer(t, hub)

	conn := dial(t, srv)
	var client *Client
	select {
	case client = <-attached:
	case <-time.After(2 * time.Second):
		t.Fatal("server never attached the client")
	}

	if client.IsOpen() || hub.GetClientCount() != 0 {
		t.Error("Expected client attached after Close to be rejected")
	}
	if _, ok := <-client.send; ok {
		t.Error("Expected send channel closed so writePump exits")
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("Expected the connection to be dropped")
	}
}

func TestReadPump_MalformedMessageKeepsConnection(t *testing.T) {
	hub := NewHub(time.Minute)
	srv, _ := testServer(t, hub)
	conn := dial(t, srv)
	waitFor(t, "client", func() bool { return hub.GetClientCount() == 1 })

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"ping"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}

	if got := readFrame(t, conn); got != `{"type":"pong","data":null}` {
		t.Errorf("Expected pong reply, got %s", got)
	}
	if hub.GetClientCount() != 1 {
		t.Errorf("Expected client to stay connected, got %d", hub.GetClientCount())
	}
}

func TestBroadcast_ConcurrentWithRegistration(t *testing.T) {
	hub := NewHub(time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c := NewClient(hub, nil)
			hub.Register(c)
			hub.Unregister(c)
		}()
		go func() {
			defer wg.Done()
			hub.Broadcast("x", 1)
		}()
	}
	wg.Wait()
	if hub.GetClientCount() != 0 {
		t.Errorf("Expected 0 clients, got %d", hub.GetClientCount())
	}
}
