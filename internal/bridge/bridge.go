// Fbxdash - Freebox Dashboard Realtime Backend
// Copyright 2026 The Fbxdash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fbxdash/fbxdash

package bridge

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fbxdash/fbxdash/internal/freebox"
	"github.com/fbxdash/fbxdash/internal/logging"
	"github.com/fbxdash/fbxdash/internal/metrics"
)

const (
	// MinAPIMajor is the first box API version that pushes native events.
	MinAPIMajor = 8

	// DefaultReconnectDelay is the fixed wait before redialing.
	DefaultReconnectDelay = 5 * time.Second

	handshakeTimeout = 10 * time.Second
	writeWait        = 10 * time.Second
)

// Session exposes the box session the bridge authenticates with.
// Satisfied by *freebox.Client.
type Session interface {
	IsLoggedIn() bool
	SessionToken() string
	APIMajorVersion(ctx context.Context) (int, error)
}

// EventSink receives translated box events.
// Satisfied by *websocket.Hub.
type EventSink interface {
	BroadcastFreeboxEvent(eventType string, data interface{})
}

// timer is the part of *time.Timer the reconnect logic needs.
type timer interface {
	Stop() bool
}

func realAfterFunc(d time.Duration, f func()) timer {
	return time.AfterFunc(d, f)
}

// Config controls where and how the bridge dials.
type Config struct {
	// Host is the box address, e.g. mafreebox.freebox.fr.
	Host string
	// Scheme defaults to wss.
	Scheme         string
	ReconnectDelay time.Duration
}

// Bridge keeps one outbound event socket to the box while a session exists
// and republishes the events it receives.
type Bridge struct {
	session Session
	sink    EventSink
	cfg     Config
	dialer  *websocket.Dialer

	afterFunc func(time.Duration, func()) timer
	now       func() time.Time

	mu              sync.Mutex
	baseCtx         context.Context
	conn            *websocket.Conn
	connecting      bool
	shouldReconnect bool
	apiVersion      int
	reconnectTimer  timer
}

// New creates a stopped Bridge.
func New(session Session, sink EventSink, cfg Config) *Bridge {
	if cfg.Scheme == "" {
		cfg.Scheme = "wss"
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	return &Bridge{
		session: session,
		sink:    sink,
		cfg:     cfg,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // self-signed box certificate
		},
		afterFunc:  realAfterFunc,
		now:        time.Now,
		baseCtx:    context.Background(),
		apiVersion: freebox.DefaultAPIMajor,
	}
}

// URL returns the event endpoint for the given API major version.
func (b *Bridge) URL(major int) string {
	return fmt.Sprintf("%s://%s/api/v%d/ws/event", b.cfg.Scheme, b.cfg.Host, major)
}

// Start checks the box API version and connects when native events are
// supported. Boxes below MinAPIMajor are left alone; that is not an error.
func (b *Bridge) Start(ctx context.Context) {
	major, err := b.session.APIMajorVersion(ctx)
	if err != nil {
		logging.Warn().Err(err).Int("assumed_version", freebox.DefaultAPIMajor).Msg("API version lookup failed")
		major = freebox.DefaultAPIMajor
	}

	b.mu.Lock()
	b.apiVersion = major
	if major < MinAPIMajor {
		b.mu.Unlock()
		logging.Info().
			Int("api_version", major).
			Int("required", MinAPIMajor).
			Msg("native box events unavailable on this API version")
		return
	}
	b.shouldReconnect = true
	b.mu.Unlock()

	b.connect()
}

// Stop disables reconnects, cancels a pending reconnect and closes the live socket.
func (b *Bridge) Stop() {
	b.mu.Lock()
	b.shouldReconnect = false
	if b.reconnectTimer != nil {
		b.reconnectTimer.Stop()
		b.reconnectTimer = nil
	}
	conn := b.conn
	b.conn = nil
	b.mu.Unlock()

	if conn != nil {
		logging.Info().Msg("closing native event socket")
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
		_ = conn.Close()
		metrics.BridgeConnected.Set(0)
	}
}

// OnLogin starts the bridge in the background.
func (b *Bridge) OnLogin() {
	ctx := b.context()
	go b.Start(ctx)
}

// OnLogout stops the bridge.
func (b *Bridge) OnLogout() {
	b.Stop()
}

// IsConnected reports whether an event socket is open.
func (b *Bridge) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.conn != nil
}

// RunWithContext binds dials to ctx and blocks until it is canceled, then stops.
func (b *Bridge) RunWithContext(ctx context.Context) error {
	b.mu.Lock()
	b.baseCtx = ctx
	b.mu.Unlock()

	<-ctx.Done()
	b.Stop()
	return ctx.Err()
}

func (b *Bridge) context() context.Context {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.baseCtx
}

// connect dials once. It does nothing while a dial is running, a socket is
// open or no session exists.
func (b *Bridge) connect() {
	b.mu.Lock()
	if b.connecting || b.conn != nil {
		b.mu.Unlock()
		return
	}
	if !b.session.IsLoggedIn() {
		b.mu.Unlock()
		logging.Debug().Msg("not logged in, skipping native event socket")
		return
	}
	b.connecting = true
	url := b.URL(b.apiVersion)
	ctx := b.baseCtx
	b.mu.Unlock()

	logging.Info().Str("url", url).Msg("connecting to native event socket")

	header := http.Header{}
	header.Set(freebox.AuthHeader, b.session.SessionToken())

	conn, resp, err := b.dialer.DialContext(ctx, url, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		b.mu.Lock()
		b.connecting = false
		b.mu.Unlock()
		if resp != nil {
			logging.Warn().Err(err).Int("status", resp.StatusCode).Msg("native event socket dial failed")
		} else {
			logging.Warn().Err(err).Msg("native event socket dial failed")
		}
		b.scheduleReconnect()
		return
	}

	b.mu.Lock()
	b.connecting = false
	if !b.shouldReconnect {
		// Stopped while dialing.
		b.mu.Unlock()
		_ = conn.Close()
		return
	}
	b.conn = conn
	b.mu.Unlock()

	metrics.BridgeConnected.Set(1)
	logging.Info().Msg("connected to native event socket")

	if err := b.register(conn); err != nil {
		logging.Error().Err(err).Msg("failed to send event registration")
	}
	go b.listen(conn)
}

func (b *Bridge) register(conn *websocket.Conn) error {
	logging.Info().Strs("events", RegisteredEvents).Msg("registering for native events")
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(registerAction{Action: actionRegister, Events: RegisteredEvents})
}

// listen reads until the socket fails, then schedules a reconnect if this
// socket was still the current one.
func (b *Bridge) listen(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.Info().Msg("native event socket closed")
			} else {
				logging.Warn().Err(err).Msg("native event socket read failed")
			}
			break
		}
		b.handleMessage(data)
	}

	_ = conn.Close()

	b.mu.Lock()
	current := b.conn == conn
	if current {
		b.conn = nil
	}
	b.mu.Unlock()

	if current {
		metrics.BridgeConnected.Set(0)
		b.scheduleReconnect()
	}
}

// scheduleReconnect arms the single reconnect timer, replacing any pending one.
func (b *Bridge) scheduleReconnect() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.shouldReconnect {
		return
	}
	if b.reconnectTimer != nil {
		b.reconnectTimer.Stop()
	}

	logging.Info().Dur("delay", b.cfg.ReconnectDelay).Msg("reconnecting native event socket")
	var t timer
	t = b.afterFunc(b.cfg.ReconnectDelay, func() {
		b.mu.Lock()
		if b.reconnectTimer != t || !b.shouldReconnect {
			b.mu.Unlock()
			return
		}
		b.reconnectTimer = nil
		b.mu.Unlock()

		metrics.BridgeReconnects.Inc()
		b.connect()
	})
	b.reconnectTimer = t
}
