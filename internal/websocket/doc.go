// Fbxdash - Freebox Dashboard Realtime Backend
// Copyright 2026 The Fbxdash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fbxdash/fbxdash

/*
Package websocket fans dashboard updates out to connected browsers.

The Hub keeps the set of connected clients and pushes the same serialized
frame to every open one. Relay snapshots go out as {type, data} and native
box events as {type:"freebox_event", eventType, data}.

Liveness:

RunWithContext sweeps the client set on a fixed interval (30s by default).
A client whose isAlive flag is still clear from the previous sweep is
terminated. Otherwise the flag is cleared and a ping is sent; the pong
handler sets it again. A half-open peer is reclaimed within two sweeps.

Client set transitions:

A ClientListener installed with SetClientListener is told when the set
goes from empty to one client and back to empty. The polling relay uses
this to poll the box only while someone is watching.

Each client has two goroutines:
  - readPump: reads frames, records pongs, answers {"type":"ping"}
  - writePump: writes queued frames with a write deadline

Usage:

	hub := websocket.NewHub(30 * time.Second)
	hub.SetClientListener(relay)
	go hub.RunWithContext(ctx)

	// in the upgrade handler
	hub.Attach(conn)

	hub.Broadcast("connection_status", status)
	hub.BroadcastFreeboxEvent("vm_state_changed", payload)
*/
package websocket
