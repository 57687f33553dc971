// Fbxdash - Freebox Dashboard Realtime Backend
// Copyright 2026 The Fbxdash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fbxdash/fbxdash

package freebox

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

var (
	// ErrNotLoggedIn is returned by session-scoped calls made without a session.
	ErrNotLoggedIn = errors.New("freebox: not logged in")

	// ErrNoAppToken is returned by Login when no application token is configured.
	ErrNoAppToken = errors.New("freebox: no app token configured")

	// ErrCircuitOpen is returned while the upstream circuit breaker rejects calls.
	ErrCircuitOpen = errors.New("freebox: circuit breaker open")

	// ErrEmptyResult is returned when a successful envelope carries no result.
	ErrEmptyResult = errors.New("freebox: empty result")
)

// Response is the uniform envelope returned by every box API call.
// It is forwarded unchanged to dashboard clients by the REST routes.
type Response struct {
	Success   bool            `json:"success"`
	Result    json.RawMessage `json:"result,omitempty"`
	Msg       string          `json:"msg,omitempty"`
	ErrorCode string          `json:"error_code,omitempty"`
}

// Decode unmarshals the result into v, or returns an *APIError when the
// envelope reports a failure.
func (r *Response) Decode(v interface{}) error {
	if !r.Success {
		return &APIError{Code: r.ErrorCode, Message: r.Msg}
	}
	if len(r.Result) == 0 || string(r.Result) == "null" {
		return ErrEmptyResult
	}
	if err := json.Unmarshal(r.Result, v); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return nil
}

// APIError is a {success:false} envelope turned into an error.
type APIError struct {
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("freebox api error: %s", e.Code)
	}
	return fmt.Sprintf("freebox api error %s: %s", e.Code, e.Message)
}

// APIVersion is the unauthenticated /api_version discovery document.
type APIVersion struct {
	UID            string `json:"uid"`
	DeviceName     string `json:"device_name"`
	DeviceType     string `json:"device_type"`
	APIVersion     string `json:"api_version"`
	APIBaseURL     string `json:"api_base_url"`
	APIDomain      string `json:"api_domain"`
	HTTPSAvailable bool   `json:"https_available"`
	HTTPSPort      int    `json:"https_port"`
}

// DefaultAPIMajor is assumed when the box does not report a parsable version.
const DefaultAPIMajor = 8

// Major returns the major part of "X.Y", or DefaultAPIMajor when unparsable.
func (v *APIVersion) Major() int {
	return parseMajor(v.APIVersion)
}

// ConnectionStatus is the WAN link snapshot broadcast as connection_status.
type ConnectionStatus struct {
	Type          string `json:"type"`
	State         string `json:"state"`
	Media         string `json:"media"`
	IPv4          string `json:"ipv4"`
	IPv4PortRange [2]int `json:"ipv4_port_range"`
	IPv6          string `json:"ipv6"`
	RateDown      int64  `json:"rate_down"`
	RateUp        int64  `json:"rate_up"`
	BandwidthDown int64  `json:"bandwidth_down"`
	BandwidthUp   int64  `json:"bandwidth_up"`
	BytesDown     int64  `json:"bytes_down"`
	BytesUp       int64  `json:"bytes_up"`

	// raw is the result object as the box sent it.
	raw json.RawMessage
}

// MarshalJSON re-emits the box's own result object when there is one, so
// fields this type does not model reach dashboards unchanged.
func (s ConnectionStatus) MarshalJSON() ([]byte, error) {
	if len(s.raw) > 0 {
		return s.raw, nil
	}
	type plain ConnectionStatus
	return json.Marshal(plain(s))
}

// SystemStatus is the canonical thermal snapshot broadcast as system_status.
// Sensors absent on a given model are omitted.
type SystemStatus struct {
	TempCPU0  *float64 `json:"temp_cpu0,omitempty"`
	TempCPU1  *float64 `json:"temp_cpu1,omitempty"`
	TempCPU2  *float64 `json:"temp_cpu2,omitempty"`
	TempCPU3  *float64 `json:"temp_cpu3,omitempty"`
	TempCPUM  *float64 `json:"temp_cpum,omitempty"`
	TempCPUB  *float64 `json:"temp_cpub,omitempty"`
	TempSW    *float64 `json:"temp_sw,omitempty"`
	FanRPM    *float64 `json:"fan_rpm,omitempty"`
	UptimeVal *int64   `json:"uptime_val,omitempty"`
}

type loginChallenge struct {
	LoggedIn  bool   `json:"logged_in"`
	Challenge string `json:"challenge"`
}

type sessionResult struct {
	SessionToken string          `json:"session_token"`
	Challenge    string          `json:"challenge"`
	Permissions  map[string]bool `json:"permissions"`
}

// LANInterface is one entry of /lan/browser/interfaces/.
type LANInterface struct {
	Name      string `json:"name"`
	HostCount int    `json:"host_count"`
}
