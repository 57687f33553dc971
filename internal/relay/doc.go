// Fbxdash - Freebox Dashboard Realtime Backend
// Copyright 2026 The Fbxdash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fbxdash/fbxdash

/*
Package relay turns box polling into pushed dashboard updates.

While at least one dashboard client is connected, the Relay fetches the
WAN connection snapshot every second and the thermal snapshot every five
seconds, and broadcasts each as connection_status and system_status. The
first client gets both snapshots immediately rather than after a full
interval.

A tick is skipped when no session exists or nobody is connected. Fetch
failures are dropped; the next tick is the retry. The two loops are
independent and their frames may interleave in any order.

The Relay implements websocket.ClientListener so the hub starts it on the
first client and stops it on the last. Session changes arrive through
OnLogin and OnLogout.
*/
package relay
