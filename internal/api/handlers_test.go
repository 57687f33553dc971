// Fbxdash - Freebox Dashboard Realtime Backend
// Copyright 2026 The Fbxdash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fbxdash/fbxdash

package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/fbxdash/fbxdash/internal/config"
	"github.com/fbxdash/fbxdash/internal/freebox"
	"github.com/fbxdash/fbxdash/internal/logging"
	ws "github.com/fbxdash/fbxdash/internal/websocket"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{Level: "info", Format: "console", Output: io.Discard})
}

type call struct {
	name string
	args []interface{}
}

// fakeBox answers every envelope method with resp or err.
type fakeBox struct {
	mu        sync.Mutex
	loggedIn  bool
	hasToken  bool
	loginErr  error
	logoutErr error
	err       error
	resp      *freebox.Response
	system    *freebox.SystemStatus
	calls     []call
}

func newFakeBox() *fakeBox {
	return &fakeBox{
		hasToken: true,
		resp:     &freebox.Response{Success: true, Result: json.RawMessage(`{"state":"up"}`)},
	}
}

func (f *fakeBox) record(name string, args ...interface{}) (*freebox.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{name: name, args: args})
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func (f *fakeBox) lastCall() call {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return call{}
	}
	return f.calls[len(f.calls)-1]
}

func (f *fakeBox) IsLoggedIn() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loggedIn
}

func (f *fakeBox) HasAppToken() bool { return f.hasToken }

func (f *fakeBox) Login(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loginErr != nil {
		return f.loginErr
	}
	f.loggedIn = true
	return nil
}

func (f *fakeBox) Logout(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loggedIn = false
	return f.logoutErr
}

func (f *fakeBox) ConnectionStatus(context.Context) (*freebox.Response, error) {
	return f.record("ConnectionStatus")
}

func (f *fakeBox) ConnectionConfig(context.Context) (*freebox.Response, error) {
	return f.record("ConnectionConfig")
}

func (f *fakeBox) IPv6Config(context.Context) (*freebox.Response, error) {
	return f.record("IPv6Config")
}

func (f *fakeBox) ConnectionLogs(context.Context) (*freebox.Response, error) {
	return f.record("ConnectionLogs")
}

func (f *fakeBox) RRD(_ context.Context, db string, start, end int64) (*freebox.Response, error) {
	return f.record("RRD", db, start, end)
}

func (f *fakeBox) GetSystemStatus(context.Context) (*freebox.SystemStatus, error) {
	if _, err := f.record("GetSystemStatus"); err != nil {
		return nil, err
	}
	return f.system, nil
}

func (f *fakeBox) LANConfig(context.Context) (*freebox.Response, error) {
	return f.record("LANConfig")
}

func (f *fakeBox) LANInterfaces(context.Context) (*freebox.Response, error) {
	return f.record("LANInterfaces")
}

func (f *fakeBox) LANHosts(_ context.Context, iface string) (*freebox.Response, error) {
	return f.record("LANHosts", iface)
}

func (f *fakeBox) LANDevices(context.Context) (*freebox.Response, error) {
	return f.record("LANDevices")
}

func (f *fakeBox) WakeOnLAN(_ context.Context, iface, mac, password string) (*freebox.Response, error) {
	return f.record("WakeOnLAN", iface, mac, password)
}

func (f *fakeBox) TVChannels(context.Context) (*freebox.Response, error) {
	return f.record("TVChannels")
}

func (f *fakeBox) TVBouquets(context.Context) (*freebox.Response, error) {
	return f.record("TVBouquets")
}

func (f *fakeBox) PVRFinished(context.Context) (*freebox.Response, error) {
	return f.record("PVRFinished")
}

func (f *fakeBox) DeletePVRFinished(_ context.Context, id int64) (*freebox.Response, error) {
	return f.record("DeletePVRFinished", id)
}

func (f *fakeBox) PVRProgrammed(context.Context) (*freebox.Response, error) {
	return f.record("PVRProgrammed")
}

func (f *fakeBox) CreatePVRProgrammed(_ context.Context, body json.RawMessage) (*freebox.Response, error) {
	return f.record("CreatePVRProgrammed", string(body))
}

func (f *fakeBox) DeletePVRProgrammed(_ context.Context, id int64) (*freebox.Response, error) {
	return f.record("DeletePVRProgrammed", id)
}

func (f *fakeBox) PVRConfig(context.Context) (*freebox.Response, error) {
	return f.record("PVRConfig")
}

func (f *fakeBox) UpdatePVRConfig(_ context.Context, body json.RawMessage) (*freebox.Response, error) {
	return f.record("UpdatePVRConfig", string(body))
}

type fakeEPG struct {
	mu  sync.Mutex
	ts  []int64
	err error
}

func (e *fakeEPG) Fetch(_ context.Context, ts int64) (*freebox.Response, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ts = append(e.ts, ts)
	if e.err != nil {
		return nil, e.err
	}
	return &freebox.Response{Success: true, Result: json.RawMessage(`[]`)}, nil
}

type fakeBridge struct{ connected bool }

func (b fakeBridge) IsConnected() bool { return b.connected }

func testConfig() *config.Config {
	return &config.Config{
		WebSocket: config.WebSocketConfig{Path: "/ws/connection"},
		Security: config.SecurityConfig{
			RateLimitReqs:   1000,
			RateLimitWindow: time.Minute,
			CORSOrigins:     []string{"*"},
		},
	}
}

type testEnv struct {
	box     *fakeBox
	epg     *fakeEPG
	hub     *ws.Hub
	handler *Handler
	router  http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithConfig(t, testConfig())
}

func newTestEnvWithConfig(t *testing.T, cfg *config.Config) *testEnv {
	t.Helper()
	env := &testEnv{box: newFakeBox(), epg: &fakeEPG{}, hub: ws.NewHub(time.Minute)}
	env.handler = NewHandler(env.box, env.epg, env.hub, fakeBridge{connected: true}, cfg)
	env.handler.now = func() time.Time { return time.Unix(1_700_000_000, 0) }
	env.router = NewRouter(env.handler, cfg).SetupChi()
	t.Cleanup(env.hub.Close)
	return env
}

func (env *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	return rec
}

func decodeAPIResponse(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rec.Body.String(), err)
	}
	return resp
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	env.box.loggedIn = true

	rec := env.do(http.MethodGet, "/api/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}

	var body struct {
		Success bool         `json:"success"`
		Result  HealthStatus `json:"result"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Success || body.Result.Status != "ok" || !body.Result.LoggedIn || !body.Result.NativeEventsConnected {
		t.Errorf("Unexpected health body: %s", rec.Body.String())
	}
}

func TestAuth(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.do(http.MethodGet, "/api/auth/status", "")
		if got := rec.Body.String(); got != `{"success":true,"result":{"logged_in":false,"has_app_token":true}}` {
			t.Errorf("Unexpected body: %s", got)
		}
	})

	t.Run("login success", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.do(http.MethodPost, "/api/auth/login", "")
		if rec.Code != http.StatusOK || !env.box.IsLoggedIn() {
			t.Errorf("Expected logged in, got %d %s", rec.Code, rec.Body.String())
		}
	})

	loginErrors := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"no app token", freebox.ErrNoAppToken, http.StatusUnauthorized, ErrCodeNotLoggedIn},
		{"rejected token", &freebox.APIError{Code: "invalid_token", Message: "bad token"}, http.StatusUnauthorized, ErrCodeNotLoggedIn},
		{"unreachable", errors.New("dial tcp: refused"), http.StatusBadGateway, ErrCodeUpstream},
	}
	for _, tt := range loginErrors {
		t.Run("login "+tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.box.loginErr = tt.err
			rec := env.do(http.MethodPost, "/api/auth/login", "")
			if rec.Code != tt.status {
				t.Errorf("Expected %d, got %d", tt.status, rec.Code)
			}
			if resp := decodeAPIResponse(t, rec); resp.Error == nil || resp.Error.Code != tt.code {
				t.Errorf("Expected code %s, got %s", tt.code, rec.Body.String())
			}
		})
	}

	t.Run("logout clears session even when box fails", func(t *testing.T) {
		env := newTestEnv(t)
		env.box.loggedIn = true
		env.box.logoutErr = errors.New("timeout")
		rec := env.do(http.MethodPost, "/api/auth/logout", "")
		if rec.Code != http.StatusOK {
			t.Errorf("Expected 200, got %d", rec.Code)
		}
		if env.box.IsLoggedIn() {
			t.Error("Expected logged out")
		}
	})
}

func TestEnvelopePassThrough(t *testing.T) {
	routes := []struct {
		method string
		path   string
		body   string
		call   string
	}{
		{http.MethodGet, "/api/connection", "", "ConnectionStatus"},
		{http.MethodGet, "/api/connection/config", "", "ConnectionConfig"},
		{http.MethodGet, "/api/connection/ipv6", "", "IPv6Config"},
		{http.MethodGet, "/api/connection/logs", "", "ConnectionLogs"},
		{http.MethodGet, "/api/lan/config", "", "LANConfig"},
		{http.MethodGet, "/api/lan/interfaces", "", "LANInterfaces"},
		{http.MethodGet, "/api/lan/devices", "", "LANDevices"},
		{http.MethodGet, "/api/tv/channels", "", "TVChannels"},
		{http.MethodGet, "/api/tv/bouquets", "", "TVBouquets"},
		{http.MethodGet, "/api/tv/recordings", "", "PVRFinished"},
		{http.MethodGet, "/api/tv/programmed", "", "PVRProgrammed"},
		{http.MethodGet, "/api/tv/pvr/config", "", "PVRConfig"},
	}

	for _, tt := range routes {
		t.Run(tt.path, func(t *testing.T) {
			env := newTestEnv(t)
			rec := env.do(tt.method, tt.path, tt.body)
			if rec.Code != http.StatusOK {
				t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
			}
			if got := rec.Body.String(); got != `{"success":true,"result":{"state":"up"}}` {
				t.Errorf("Expected envelope passed through, got %s", got)
			}
			if got := env.box.lastCall().name; got != tt.call {
				t.Errorf("Expected %s, got %s", tt.call, got)
			}
		})
	}
}

func TestEnvelopePassThrough_Failure(t *testing.T) {
	env := newTestEnv(t)
	env.box.resp = &freebox.Response{Success: false, Msg: "Erreur interne", ErrorCode: "internal_error"}

	rec := env.do(http.MethodGet, "/api/connection", "")
	if rec.Code != http.StatusOK {
		t.Errorf("Expected box failures relayed with 200, got %d", rec.Code)
	}
	if got := rec.Body.String(); got != `{"success":false,"msg":"Erreur interne","error_code":"internal_error"}` {
		t.Errorf("Unexpected body: %s", got)
	}
}

func TestUpstreamErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not logged in", freebox.ErrNotLoggedIn, http.StatusUnauthorized, ErrCodeNotLoggedIn},
		{"circuit open", freebox.ErrCircuitOpen, http.StatusServiceUnavailable, ErrCodeUpstream},
		{"api error", &freebox.APIError{Code: "denied"}, http.StatusBadGateway, ErrCodeUpstream},
		{"transport", errors.New("connection reset"), http.StatusBadGateway, ErrCodeUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.box.err = tt.err
			rec := env.do(http.MethodGet, "/api/lan/config", "")
			if rec.Code != tt.status {
				t.Errorf("Expected %d, got %d", tt.status, rec.Code)
			}
			resp := decodeAPIResponse(t, rec)
			if resp.Success || resp.Error == nil || resp.Error.Code != tt.code {
				t.Errorf("Expected code %s, got %s", tt.code, rec.Body.String())
			}
		})
	}
}

func TestConnectionHistory(t *testing.T) {
	tests := []struct {
		path   string
		status int
		args   []interface{}
	}{
		{"/api/connection/history?start=100&end=200", http.StatusOK, []interface{}{"net", int64(100), int64(200)}},
		{"/api/connection/history", http.StatusOK, []interface{}{"net", int64(0), int64(0)}},
		{"/api/connection/temp-history?start=50", http.StatusOK, []interface{}{"temp", int64(50), int64(0)}},
		{"/api/connection/history?start=abc", http.StatusBadRequest, nil},
		{"/api/connection/history?end=-1", http.StatusBadRequest, nil},
		{"/api/connection/history?start=300&end=200", http.StatusBadRequest, nil},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			env := newTestEnv(t)
			rec := env.do(http.MethodGet, tt.path, "")
			if rec.Code != tt.status {
				t.Fatalf("Expected %d, got %d", tt.status, rec.Code)
			}
			if tt.args == nil {
				if resp := decodeAPIResponse(t, rec); resp.Error == nil || resp.Error.Code != ErrCodeValidation {
					t.Errorf("Expected VALIDATION_ERROR, got %s", rec.Body.String())
				}
				return
			}
			got := env.box.lastCall()
			if got.name != "RRD" || len(got.args) != 3 {
				t.Fatalf("Unexpected call %+v", got)
			}
			for i := range tt.args {
				if got.args[i] != tt.args[i] {
					t.Errorf("arg %d = %v, want %v", i, got.args[i], tt.args[i])
				}
			}
		})
	}
}

func TestSystem(t *testing.T) {
	env := newTestEnv(t)
	temp := 61.0
	env.box.system = &freebox.SystemStatus{TempCPUM: &temp}

	rec := env.do(http.MethodGet, "/api/system", "")
	if got := rec.Body.String(); got != `{"success":true,"result":{"temp_cpum":61}}` {
		t.Errorf("Unexpected body: %s", got)
	}
}

func TestLANDevicesByInterface(t *testing.T) {
	env := newTestEnv(t)
	env.do(http.MethodGet, "/api/lan/devices/wifiguest", "")

	got := env.box.lastCall()
	if got.name != "LANHosts" || got.args[0] != "wifiguest" {
		t.Errorf("Unexpected call %+v", got)
	}
}

func TestWakeOnLAN(t *testing.T) {
	t.Run("default interface", func(t *testing.T) {
		env := newTestEnv(t)
		rec := env.do(http.MethodPost, "/api/lan/wol", `{"mac":"00:11:22:33:44:55"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		got := env.box.lastCall()
		if got.name != "WakeOnLAN" || got.args[0] != "pub" || got.args[1] != "00:11:22:33:44:55" || got.args[2] != "" {
			t.Errorf("Unexpected call %+v", got)
		}
	})

	t.Run("explicit interface and password", func(t *testing.T) {
		env := newTestEnv(t)
		env.do(http.MethodPost, "/api/lan/wol", `{"mac":"00:11:22:33:44:55","interface":"wifiguest","password":"secret"}`)
		got := env.box.lastCall()
		if got.args[0] != "wifiguest" || got.args[2] != "secret" {
			t.Errorf("Unexpected call %+v", got)
		}
	})

	invalid := map[string]string{
		"missing mac":  `{"interface":"pub"}`,
		"invalid mac":  `{"mac":"not-a-mac"}`,
		"invalid json": `{"mac":`,
	}
	for name, body := range invalid {
		t.Run(name, func(t *testing.T) {
			env := newTestEnv(t)
			rec := env.do(http.MethodPost, "/api/lan/wol", body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("Expected 400, got %d", rec.Code)
			}
			if resp := decodeAPIResponse(t, rec); resp.Error == nil || resp.Error.Code != ErrCodeValidation {
				t.Errorf("Expected VALIDATION_ERROR, got %s", rec.Body.String())
			}
			if env.box.lastCall().name != "" {
				t.Error("Expected no box call")
			}
		})
	}
}

func TestEPGByTime(t *testing.T) {
	tests := []struct {
		path string
		want int64
	}{
		{"/api/tv/epg/by_time/1700003000", 1_700_003_000},
		{"/api/tv/epg/by_time/not-a-number", 1_700_000_000},
		{"/api/tv/epg/by_time/0", 1_700_000_000},
		{"/api/tv/epg/by_time/1700003000abc", 1_700_003_000},
		{"/api/tv/epg/by_time/-", 1_700_000_000},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			env := newTestEnv(t)
			rec := env.do(http.MethodGet, tt.path, "")
			if rec.Code != http.StatusOK {
				t.Fatalf("Expected 200, got %d", rec.Code)
			}
			if len(env.epg.ts) != 1 || env.epg.ts[0] != tt.want {
				t.Errorf("Expected fetch(%d), got %v", tt.want, env.epg.ts)
			}
			if got := rec.Body.String(); got != `{"success":true,"result":[]}` {
				t.Errorf("Unexpected body: %s", got)
			}
		})
	}
}

func TestLeadingInt(t *testing.T) {
	tests := []struct {
		in   string
		want int64
		ok   bool
	}{
		{"1700000000", 1_700_000_000, true},
		{"1700000000abc", 1_700_000_000, true},
		{"  42", 42, true},
		{"+7x", 7, true},
		{"-3600", -3600, true},
		{"abc", 0, false},
		{"", 0, false},
		{"-", 0, false},
		{"99999999999999999999", 0, false},
	}
	for _, tt := range tests {
		got, ok := leadingInt(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("leadingInt(%q) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestEPGByTime_UpstreamError(t *testing.T) {
	env := newTestEnv(t)
	env.epg.err = freebox.ErrNotLoggedIn

	rec := env.do(http.MethodGet, "/api/tv/epg/by_time/1700000000", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", rec.Code)
	}
}

func TestPVRWrites(t *testing.T) {
	t.Run("delete recording", func(t *testing.T) {
		env := newTestEnv(t)
		env.do(http.MethodDelete, "/api/tv/recordings/42", "")
		if got := env.box.lastCall(); got.name != "DeletePVRFinished" || got.args[0] != int64(42) {
			t.Errorf("Unexpected call %+v", got)
		}
	})

	t.Run("delete programmed", func(t *testing.T) {
		env := newTestEnv(t)
		env.do(http.MethodDelete, "/api/tv/programmed/7", "")
		if got := env.box.lastCall(); got.name != "DeletePVRProgrammed" || got.args[0] != int64(7) {
			t.Errorf("Unexpected call %+v", got)
		}
	})

	t.Run("invalid id", func(t *testing.T) {
		env := newTestEnv(t)
		for _, path := range []string{"/api/tv/programmed/abc", "/api/tv/recordings/-3"} {
			if rec := env.do(http.MethodDelete, path, ""); rec.Code != http.StatusBadRequest {
				t.Errorf("%s: expected 400, got %d", path, rec.Code)
			}
		}
	})

	t.Run("create programmed forwards body", func(t *testing.T) {
		env := newTestEnv(t)
		body := `{"channel_uuid":"uuid-webtv-201","start":1700000000,"end":1700003600,"name":"Journal"}`
		env.do(http.MethodPost, "/api/tv/programmed", body)
		if got := env.box.lastCall(); got.name != "CreatePVRProgrammed" || got.args[0] != body {
			t.Errorf("Unexpected call %+v", got)
		}
	})

	t.Run("update config forwards body", func(t *testing.T) {
		env := newTestEnv(t)
		body := `{"margin_before":300}`
		env.do(http.MethodPut, "/api/tv/pvr/config", body)
		if got := env.box.lastCall(); got.name != "UpdatePVRConfig" || got.args[0] != body {
			t.Errorf("Unexpected call %+v", got)
		}
	})

	t.Run("malformed body", func(t *testing.T) {
		env := newTestEnv(t)
		if rec := env.do(http.MethodPut, "/api/tv/pvr/config", `{"margin`); rec.Code != http.StatusBadRequest {
			t.Errorf("Expected 400, got %d", rec.Code)
		}
	})
}
