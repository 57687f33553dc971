// Fbxdash - Freebox Dashboard Realtime Backend
// Copyright 2026 The Fbxdash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fbxdash/fbxdash

package websocket

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/fbxdash/fbxdash/internal/logging"
	"github.com/fbxdash/fbxdash/internal/metrics"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled indicates the parent context was canceled.
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline indicates the context deadline was exceeded.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"

	// ShutdownReasonClosed indicates Close was called.
	ShutdownReasonClosed ShutdownReason = "closed"
)

// Message types pushed to dashboard clients
const (
	MessageTypeConnectionStatus = "connection_status"
	MessageTypeSystemStatus     = "system_status"
	MessageTypeFreeboxEvent     = "freebox_event"
	MessageTypePing             = "ping"
	MessageTypePong             = "pong"
)

// DefaultPingInterval is the liveness sweep period.
const DefaultPingInterval = 30 * time.Second

// Message represents a WebSocket message
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// FreeboxEventMessage wraps a native box event for dashboard clients.
type FreeboxEventMessage struct {
	Type      string      `json:"type"`
	EventType string      `json:"eventType"`
	Data      interface{} `json:"data"`
}

// ClientListener is notified when the client set becomes non-empty or empty.
type ClientListener interface {
	OnFirstClient()
	OnLastClient()
}

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	clients      map[*Client]struct{}
	mu           sync.RWMutex
	lifecycleMu  sync.Mutex
	listener     ClientListener
	pingInterval time.Duration

	closeOnce sync.Once
	done      chan struct{}
	closed    bool
}

// NewHub creates a new Hub. A non-positive interval selects DefaultPingInterval.
func NewHub(pingInterval time.Duration) *Hub {
	if pingInterval <= 0 {
		pingInterval = DefaultPingInterval
	}
	return &Hub{
		clients:      make(map[*Client]struct{}),
		pingInterval: pingInterval,
		done:         make(chan struct{}),
	}
}

// SetClientListener installs the 0->1 and 1->0 client transition listener.
func (h *Hub) SetClientListener(l ClientListener) {
	h.lifecycleMu.Lock()
	h.listener = l
	h.lifecycleMu.Unlock()
}

// Register adds a client. The listener sees OnFirstClient when the set was empty.
// Clients registered after Close are terminated immediately and their
// write pump is released.
func (h *Hub) Register(client *Client) {
	h.lifecycleMu.Lock()
	defer h.lifecycleMu.Unlock()

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		client.terminate()
		client.closeSend()
		return
	}
	h.clients[client] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Set(float64(total))
	logging.Info().Uint64("client_id", client.id).Int("total_clients", total).Msg("websocket client connected")

	if total == 1 && h.listener != nil {
		h.listener.OnFirstClient()
	}
}

// Unregister removes a client. The listener sees OnLastClient when the set empties.
func (h *Hub) Unregister(client *Client) {
	h.lifecycleMu.Lock()
	defer h.lifecycleMu.Unlock()

	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	client.closeSend()
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Set(float64(total))
	logging.Info().Uint64("client_id", client.id).Int("total_clients", total).Msg("websocket client disconnected")

	if total == 0 && h.listener != nil {
		h.listener.OnLastClient()
	}
}

// RunWithContext runs the liveness sweep until ctx is canceled or Close is called.
// This method is designed for use with suture supervision.
func (h *Hub) RunWithContext(ctx context.Context) error {
	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(getShutdownReason(ctx))
			return ctx.Err()
		case <-h.done:
			h.logGracefulShutdown(ShutdownReasonClosed)
			return nil
		case <-ticker.C:
			h.sweep()
		}
	}
}

// sweep terminates clients that missed the previous ping and pings the rest.
// A silent peer is therefore reclaimed within two sweep intervals.
func (h *Hub) sweep() {
	for _, client := range h.sortedClients() {
		if !client.isAlive.Load() {
			logging.Warn().Uint64("client_id", client.id).Msg("terminating unresponsive websocket client")
			metrics.WSDeadPeers.Inc()
			client.terminate()
			h.Unregister(client)
			continue
		}
		client.isAlive.Store(false)
		client.ping()
	}
}

// Close terminates every client and stops the sweep. Safe to call more than once.
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		h.mu.Lock()
		h.closed = true
		h.mu.Unlock()
		close(h.done)
		h.closeAllClients()
	})
}

func (h *Hub) logGracefulShutdown(reason ShutdownReason) {
	clientCount := h.GetClientCount()
	h.closeAllClients()

	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(reason)).
		Int("clients_closed", clientCount).
		Msg("websocket hub stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	if ctx.Err() == context.DeadlineExceeded {
		return ShutdownReasonContextDeadline
	}
	return ShutdownReasonContextCanceled
}

// sortedClients snapshots the client set in ID order.
func (h *Hub) sortedClients() []*Client {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})
	return clients
}

// closeAllClients terminates every client and empties the set.
func (h *Hub) closeAllClients() {
	for _, client := range h.sortedClients() {
		client.terminate()
		h.Unregister(client)
	}
}

// Broadcast sends {type, data} to every open client.
func (h *Hub) Broadcast(messageType string, data interface{}) {
	h.send(messageType, Message{Type: messageType, Data: data})
}

// BroadcastFreeboxEvent sends {type:"freebox_event", eventType, data} to every open client.
func (h *Hub) BroadcastFreeboxEvent(eventType string, data interface{}) {
	h.send(MessageTypeFreeboxEvent, FreeboxEventMessage{
		Type:      MessageTypeFreeboxEvent,
		EventType: eventType,
		Data:      data,
	})
}

// send serializes once and queues the same frame on every open client.
// Clients that are not open are skipped.
func (h *Hub) send(messageType string, message interface{}) {
	payload, err := json.Marshal(message)
	if err != nil {
		logging.Error().Err(err).Str("message_type", messageType).Msg("failed to encode broadcast message")
		return
	}

	var slow []*Client
	delivered := 0
	for _, client := range h.sortedClients() {
		if !client.IsOpen() {
			continue
		}
		if client.enqueue(payload) {
			delivered++
		} else {
			slow = append(slow, client)
		}
	}

	for _, client := range slow {
		logging.Warn().Uint64("client_id", client.id).Msg("websocket send buffer full, dropping client")
		client.terminate()
		h.Unregister(client)
	}

	metrics.WSBroadcasts.WithLabelValues(messageType).Inc()
	logging.Debug().Str("message_type", messageType).Int("clients", delivered).Msg("broadcast")
}

// GetClientCount returns the number of connected clients
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
