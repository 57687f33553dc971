// Fbxdash - Freebox Dashboard Realtime Backend
// Copyright 2026 The Fbxdash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fbxdash/fbxdash

package websocket

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/fbxdash/fbxdash/internal/logging"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 64 * 1024
	sendBufferSize = 256
)

// clientIDCounter gives clients a stable broadcast order.
var clientIDCounter atomic.Uint64

// Client is a middleman between the websocket connection and the hub
type Client struct {
	id   uint64
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	// isAlive is set by pongs and cleared by each liveness sweep.
	isAlive atomic.Bool
	open    atomic.Bool

	sendMu     sync.Mutex
	sendClosed bool
	closeOnce  sync.Once
}

// NewClient creates a new Client with a unique ID
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	c := &Client{
		id:   clientIDCounter.Add(1),
		hub:  hub,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
	c.isAlive.Store(true)
	c.open.Store(true)
	return c
}

// Attach wraps an upgraded connection, registers it and starts its pumps.
func (h *Hub) Attach(conn *websocket.Conn) *Client {
	client := NewClient(h, conn)
	h.Register(client)
	client.Start()
	return client
}

// ID returns the client's unique identifier
func (c *Client) ID() uint64 {
	return c.id
}

// IsOpen reports whether the connection can still receive frames.
func (c *Client) IsOpen() bool {
	return c.open.Load()
}

// enqueue queues a frame without blocking. It reports false when the buffer is full.
func (c *Client) enqueue(payload []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.sendClosed {
		return true
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.sendClosed {
		c.sendClosed = true
		close(c.send)
	}
}

// ping sends a control ping. WriteControl may run alongside writePump.
func (c *Client) ping() {
	if c.conn == nil {
		return
	}
	if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
		logging.Debug().Err(err).Uint64("client_id", c.id).Msg("websocket ping failed")
	}
}

// terminate drops the underlying connection without a close handshake.
func (c *Client) terminate() {
	c.closeOnce.Do(func() {
		c.open.Store(false)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

// readPump consumes inbound frames until the connection fails.
func (c *Client) readPump() {
	defer func() {
		c.terminate()
		c.hub.Unregister(c)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.isAlive.Store(true)
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				logging.Error().Err(err).Uint64("client_id", c.id).Msg("unexpected websocket close error")
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			logging.Warn().Err(err).Uint64("client_id", c.id).Msg("dropping malformed websocket message")
			continue
		}

		if msg.Type == MessageTypePing {
			if pong, err := json.Marshal(Message{Type: MessageTypePong}); err == nil {
				c.enqueue(pong)
			}
		}
	}
}

// writePump pumps queued frames from the hub to the websocket connection
func (c *Client) writePump() {
	defer c.terminate()

	for payload := range c.send {
		if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
			logging.Error().Err(err).Msg("failed to set write deadline")
			return
		}
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			logging.Debug().Err(err).Uint64("client_id", c.id).Msg("failed to write websocket message")
			return
		}
	}

	// The hub closed the channel.
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// Start begins reading and writing for the client
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}
