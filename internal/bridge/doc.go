// Fbxdash - Freebox Dashboard Realtime Backend
// Copyright 2026 The Fbxdash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fbxdash/fbxdash

/*
Package bridge relays the box's native push events to dashboard clients.

Boxes running API v8 or later expose an event socket at
wss://{host}/api/v{N}/ws/event. The Bridge dials it with the session token
in the X-Fbx-App-Auth header, registers for LAN host reachability and VM
events, and republishes each notification through an EventSink as a
freebox_event frame:

	lan_host_l3addr_reachable   -> lan_host_reachable   {id, name, host_type, vendor_name, active:true, timestamp}
	lan_host_l3addr_unreachable -> lan_host_unreachable {id, name, host_type, vendor_name, active:false, timestamp}
	vm_state_changed            -> vm_state_changed     {id, status, timestamp}
	vm_disk_task_done           -> vm_disk_task_done    {id, done, error, timestamp}

Timestamps are Unix milliseconds taken on receipt.

Lifecycle:

	stopped -> connecting -> open -> closed -> reconnect scheduled -> connecting ...

Start gates on the API version and is re-evaluated on every login. A lost
socket is redialed after a fixed delay (5s by default) with at most one
reconnect pending. Stop cancels the pending reconnect and closes the
socket; only Start leaves the stopped state.
*/
package bridge
