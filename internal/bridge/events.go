// Fbxdash - Freebox Dashboard Realtime Backend
// Copyright 2026 The Fbxdash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fbxdash/fbxdash

package bridge

import (
	"github.com/goccy/go-json"

	"github.com/fbxdash/fbxdash/internal/logging"
	"github.com/fbxdash/fbxdash/internal/metrics"
)

const (
	actionRegister     = "register"
	actionNotification = "notification"
)

// Native event keys, built as source_event.
const (
	EventLANHostReachable   = "lan_host_l3addr_reachable"
	EventLANHostUnreachable = "lan_host_l3addr_unreachable"
	EventVMStateChanged     = "vm_state_changed"
	EventVMDiskTaskDone     = "vm_disk_task_done"
)

// Event types republished to dashboard clients.
const (
	EventTypeLANHostReachable   = "lan_host_reachable"
	EventTypeLANHostUnreachable = "lan_host_unreachable"
	EventTypeVMStateChanged     = "vm_state_changed"
	EventTypeVMDiskTaskDone     = "vm_disk_task_done"
)

// RegisteredEvents is the event set requested on every connection.
var RegisteredEvents = []string{
	EventLANHostReachable,
	EventLANHostUnreachable,
	EventVMStateChanged,
	EventVMDiskTaskDone,
}

type registerAction struct {
	Action string   `json:"action"`
	Events []string `json:"events"`
}

// inbound is any frame the box sends on the event socket.
type inbound struct {
	Action  string          `json:"action"`
	Success bool            `json:"success"`
	Source  string          `json:"source,omitempty"`
	Event   string          `json:"event,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
}

type lanHost struct {
	ID          string `json:"id"`
	PrimaryName string `json:"primary_name"`
	HostType    string `json:"host_type"`
	VendorName  string `json:"vendor_name"`
}

// LANHostEvent is published for lan_host_reachable and lan_host_unreachable.
type LANHostEvent struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	HostType   string `json:"host_type,omitempty"`
	VendorName string `json:"vendor_name,omitempty"`
	Active     bool   `json:"active"`
	Timestamp  int64  `json:"timestamp"`
}

type vmState struct {
	ID     int64  `json:"id"`
	Status string `json:"status"`
}

// VMStateEvent is published for vm_state_changed.
type VMStateEvent struct {
	ID        int64  `json:"id"`
	Status    string `json:"status"`
	Timestamp int64  `json:"timestamp"`
}

type vmDiskTask struct {
	ID    int64 `json:"id"`
	Done  bool  `json:"done"`
	Error bool  `json:"error"`
}

// VMDiskTaskEvent is published for vm_disk_task_done.
type VMDiskTaskEvent struct {
	ID        int64 `json:"id"`
	Done      bool  `json:"done"`
	Error     bool  `json:"error"`
	Timestamp int64 `json:"timestamp"`
}

// handleMessage parses one frame and dispatches notifications.
// Malformed frames are logged and dropped without closing the socket.
func (b *Bridge) handleMessage(data []byte) {
	var msg inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		logging.Warn().Err(err).Msg("dropping malformed native event frame")
		return
	}

	switch msg.Action {
	case actionRegister:
		if msg.Success {
			logging.Info().Msg("registered for native events")
		} else {
			logging.Error().Msg("native event registration rejected")
		}
	case actionNotification:
		if !msg.Success {
			logging.Debug().Str("source", msg.Source).Str("event", msg.Event).Msg("ignoring failed notification")
			return
		}
		b.dispatch(msg.Source+"_"+msg.Event, msg.Result)
	default:
		logging.Debug().Str("action", msg.Action).Msg("ignoring native frame")
	}
}

func (b *Bridge) dispatch(key string, result json.RawMessage) {
	var err error
	switch key {
	case EventLANHostReachable:
		err = b.publishLANHost(EventTypeLANHostReachable, result, true)
	case EventLANHostUnreachable:
		err = b.publishLANHost(EventTypeLANHostUnreachable, result, false)
	case EventVMStateChanged:
		err = b.publishVMState(result)
	case EventVMDiskTaskDone:
		err = b.publishVMDiskTask(result)
	default:
		logging.Info().Str("event", key).Msg("unknown native event")
		return
	}

	if err != nil {
		logging.Warn().Err(err).Str("event", key).Msg("failed to decode native event")
		return
	}
	metrics.BridgeEvents.WithLabelValues(key).Inc()
}

func (b *Bridge) publishLANHost(eventType string, result json.RawMessage, active bool) error {
	var host lanHost
	if err := json.Unmarshal(result, &host); err != nil {
		return err
	}
	name := host.PrimaryName
	if name == "" {
		name = "Unknown"
	}
	logging.Info().Str("host", name).Bool("active", active).Msg("LAN host reachability changed")

	b.sink.BroadcastFreeboxEvent(eventType, LANHostEvent{
		ID:         host.ID,
		Name:       name,
		HostType:   host.HostType,
		VendorName: host.VendorName,
		Active:     active,
		Timestamp:  b.now().UnixMilli(),
	})
	return nil
}

func (b *Bridge) publishVMState(result json.RawMessage) error {
	var vm vmState
	if err := json.Unmarshal(result, &vm); err != nil {
		return err
	}
	logging.Info().Int64("vm_id", vm.ID).Str("status", vm.Status).Msg("VM state changed")

	b.sink.BroadcastFreeboxEvent(EventTypeVMStateChanged, VMStateEvent{
		ID:        vm.ID,
		Status:    vm.Status,
		Timestamp: b.now().UnixMilli(),
	})
	return nil
}

func (b *Bridge) publishVMDiskTask(result json.RawMessage) error {
	var task vmDiskTask
	if err := json.Unmarshal(result, &task); err != nil {
		return err
	}
	logging.Info().Int64("task_id", task.ID).Bool("error", task.Error).Msg("VM disk task done")

	b.sink.BroadcastFreeboxEvent(EventTypeVMDiskTaskDone, VMDiskTaskEvent{
		ID:        task.ID,
		Done:      task.Done,
		Error:     task.Error,
		Timestamp: b.now().UnixMilli(),
	})
	return nil
}
