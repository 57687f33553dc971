// Fbxdash - Freebox Dashboard Realtime Backend
// Copyright 2026 The Fbxdash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fbxdash/fbxdash

package freebox

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/goccy/go-json"
)

// GetAPIVersion fetches the unauthenticated discovery document. A successful
// answer is cached for the lifetime of the client.
func (c *Client) GetAPIVersion(ctx context.Context) (*APIVersion, error) {
	c.mu.RLock()
	cached := c.version
	c.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	raw, err := c.roundTrip(ctx, http.MethodGet, c.baseURL+"/api_version", nil, false)
	if err != nil {
		return nil, fmt.Errorf("fetch api version: %w", err)
	}
	if raw.status != http.StatusOK {
		return nil, fmt.Errorf("fetch api version: unexpected status %d", raw.status)
	}

	var v APIVersion
	if err := json.Unmarshal(raw.body, &v); err != nil {
		return nil, fmt.Errorf("decode api version: %w", err)
	}

	c.mu.Lock()
	c.version = &v
	c.mu.Unlock()
	return &v, nil
}

// GetConnectionStatus returns the decoded WAN link snapshot. It encodes back
// to the result object the box sent.
func (c *Client) GetConnectionStatus(ctx context.Context) (*ConnectionStatus, error) {
	resp, err := c.ConnectionStatus(ctx)
	if err != nil {
		return nil, err
	}
	var status ConnectionStatus
	if err := resp.Decode(&status); err != nil {
		return nil, err
	}
	status.raw = append(json.RawMessage(nil), resp.Result...)
	return &status, nil
}

// GetSystemStatus returns the normalized thermal snapshot.
func (c *Client) GetSystemStatus(ctx context.Context) (*SystemStatus, error) {
	resp, err := c.SystemInfo(ctx)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, &APIError{Code: resp.ErrorCode, Message: resp.Msg}
	}
	return NormalizeSystemInfo(resp.Result)
}

func (c *Client) get(ctx context.Context, path string) (*Response, error) {
	return c.do(ctx, requestConfig{method: http.MethodGet, path: path, auth: true})
}

// Connection

func (c *Client) ConnectionStatus(ctx context.Context) (*Response, error) {
	return c.get(ctx, "/connection/")
}

func (c *Client) ConnectionConfig(ctx context.Context) (*Response, error) {
	return c.get(ctx, "/connection/config/")
}

func (c *Client) IPv6Config(ctx context.Context) (*Response, error) {
	return c.get(ctx, "/connection/ipv6/config/")
}

func (c *Client) ConnectionLogs(ctx context.Context) (*Response, error) {
	return c.get(ctx, "/connection/logs/")
}

// RRD queries a round-robin history database ("net", "temp", "dsl", "switch").
// Zero bounds are omitted and the box picks its default window.
func (c *Client) RRD(ctx context.Context, db string, dateStart, dateEnd int64) (*Response, error) {
	body := map[string]interface{}{"db": db}
	if dateStart > 0 {
		body["date_start"] = dateStart
	}
	if dateEnd > 0 {
		body["date_end"] = dateEnd
	}
	return c.do(ctx, requestConfig{method: http.MethodPost, path: "/rrd/", body: body, auth: true})
}

// System

func (c *Client) SystemInfo(ctx context.Context) (*Response, error) {
	return c.get(ctx, "/system/")
}

// LAN

func (c *Client) LANConfig(ctx context.Context) (*Response, error) {
	return c.get(ctx, "/lan/config/")
}

func (c *Client) LANInterfaces(ctx context.Context) (*Response, error) {
	return c.get(ctx, "/lan/browser/interfaces/")
}

func (c *Client) LANHosts(ctx context.Context, iface string) (*Response, error) {
	return c.get(ctx, "/lan/browser/"+url.PathEscape(iface)+"/")
}

// LANDevices aggregates the hosts of every interface, tagging each host with
// an "interface" field. A failing interface listing is returned unchanged;
// failing per-interface listings are skipped.
func (c *Client) LANDevices(ctx context.Context) (*Response, error) {
	ifacesResp, err := c.LANInterfaces(ctx)
	if err != nil {
		return nil, err
	}
	var ifaces []LANInterface
	if err := ifacesResp.Decode(&ifaces); err != nil {
		return ifacesResp, nil //nolint:nilerr // the envelope carries the failure
	}

	devices := make([]map[string]interface{}, 0)
	for _, iface := range ifaces {
		hostsResp, err := c.LANHosts(ctx, iface.Name)
		if err != nil {
			return nil, err
		}
		var hosts []map[string]interface{}
		if hostsResp.Decode(&hosts) != nil {
			continue
		}
		for _, h := range hosts {
			h["interface"] = iface.Name
			devices = append(devices, h)
		}
	}

	result, err := json.Marshal(devices)
	if err != nil {
		return nil, fmt.Errorf("encode devices: %w", err)
	}
	return &Response{Success: true, Result: result}, nil
}

func (c *Client) WakeOnLAN(ctx context.Context, iface, mac, password string) (*Response, error) {
	return c.do(ctx, requestConfig{
		method: http.MethodPost,
		path:   "/lan/wol/" + url.PathEscape(iface) + "/",
		body:   map[string]string{"mac": mac, "password": password},
		auth:   true,
	})
}

// TV

func (c *Client) TVChannels(ctx context.Context) (*Response, error) {
	return c.cachedGet(ctx, "/tv/channels/")
}

func (c *Client) TVBouquets(ctx context.Context) (*Response, error) {
	return c.cachedGet(ctx, "/tv/bouquets/")
}

// EPGByTime fetches the program guide of every channel at a unix timestamp.
func (c *Client) EPGByTime(ctx context.Context, timestamp int64) (*Response, error) {
	return c.get(ctx, "/tv/epg/by_time/"+strconv.FormatInt(timestamp, 10)+"/")
}

// cachedGet serves successful catalog answers from the otter cache.
func (c *Client) cachedGet(ctx context.Context, path string) (*Response, error) {
	if c.catalog != nil {
		if resp, ok := c.catalog.Get(path); ok {
			return resp, nil
		}
	}
	resp, err := c.get(ctx, path)
	if err != nil {
		return nil, err
	}
	if resp.Success && c.catalog != nil {
		c.catalog.Set(path, resp)
	}
	return resp, nil
}

// PVR

func (c *Client) PVRFinished(ctx context.Context) (*Response, error) {
	return c.get(ctx, "/pvr/finished/")
}

func (c *Client) DeletePVRFinished(ctx context.Context, id int64) (*Response, error) {
	return c.do(ctx, requestConfig{method: http.MethodDelete, path: "/pvr/finished/" + strconv.FormatInt(id, 10) + "/", auth: true})
}

func (c *Client) PVRProgrammed(ctx context.Context) (*Response, error) {
	return c.get(ctx, "/pvr/programmed/")
}

func (c *Client) CreatePVRProgrammed(ctx context.Context, body json.RawMessage) (*Response, error) {
	return c.do(ctx, requestConfig{method: http.MethodPost, path: "/pvr/programmed/", body: body, auth: true})
}

func (c *Client) DeletePVRProgrammed(ctx context.Context, id int64) (*Response, error) {
	return c.do(ctx, requestConfig{method: http.MethodDelete, path: "/pvr/programmed/" + strconv.FormatInt(id, 10) + "/", auth: true})
}

func (c *Client) PVRConfig(ctx context.Context) (*Response, error) {
	return c.get(ctx, "/pvr/config/")
}

func (c *Client) UpdatePVRConfig(ctx context.Context, body json.RawMessage) (*Response, error) {
	return c.do(ctx, requestConfig{method: http.MethodPut, path: "/pvr/config/", body: body, auth: true})
}
