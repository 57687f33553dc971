// Fbxdash - Freebox Dashboard Realtime Backend
// Copyright 2026 The Fbxdash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fbxdash/fbxdash

package freebox

import (
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// sensorAliases maps per-model sensor ids onto canonical system_status keys.
// Newer firmwares report sensors as an id/value list and some models use
// descriptive ids instead of the legacy flat field names.
var sensorAliases = map[string]string{
	"temp_cpu0":          "temp_cpu0",
	"temp_cpu1":          "temp_cpu1",
	"temp_cpu2":          "temp_cpu2",
	"temp_cpu3":          "temp_cpu3",
	"temp_cpum":          "temp_cpum",
	"temp_cpub":          "temp_cpub",
	"temp_sw":            "temp_sw",
	"temp_cpu_cp_master": "temp_cpum",
	"temp_cpu_ap":        "temp_cpub",
	"temp_cpu_cp_slave":  "temp_sw",
	"cpu_temp":           "temp_cpum",
	"temp_t1":            "temp_cpum",
	"temp_t2":            "temp_cpub",
	"temp_t3":            "temp_sw",
}

var canonicalSensors = []string{
	"temp_cpu0", "temp_cpu1", "temp_cpu2", "temp_cpu3",
	"temp_cpum", "temp_cpub", "temp_sw",
}

type sensorReading struct {
	ID    string   `json:"id"`
	Value *float64 `json:"value"`
}

type rawSystemInfo struct {
	Sensors   []sensorReading `json:"sensors"`
	Fans      []sensorReading `json:"fans"`
	UptimeVal json.Number     `json:"uptime_val"`
}

// NormalizeSystemInfo maps a raw /system/ result onto SystemStatus.
// Flat legacy fields win over list entries when both are present.
func NormalizeSystemInfo(raw json.RawMessage) (*SystemStatus, error) {
	var info rawSystemInfo
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, err
	}
	var flat map[string]interface{}
	if err := json.Unmarshal(raw, &flat); err != nil {
		return nil, err
	}

	temps := make(map[string]float64)
	for _, s := range info.Sensors {
		if s.Value == nil {
			continue
		}
		if key, ok := sensorAliases[s.ID]; ok {
			if _, seen := temps[key]; !seen {
				temps[key] = *s.Value
			}
		}
	}
	for _, key := range canonicalSensors {
		if v, ok := toFloat(flat[key]); ok {
			temps[key] = v
		}
	}

	status := &SystemStatus{
		TempCPU0: lookup(temps, "temp_cpu0"),
		TempCPU1: lookup(temps, "temp_cpu1"),
		TempCPU2: lookup(temps, "temp_cpu2"),
		TempCPU3: lookup(temps, "temp_cpu3"),
		TempCPUM: lookup(temps, "temp_cpum"),
		TempCPUB: lookup(temps, "temp_cpub"),
		TempSW:   lookup(temps, "temp_sw"),
	}

	if v, ok := toFloat(flat["fan_rpm"]); ok {
		status.FanRPM = &v
	} else {
		for _, f := range info.Fans {
			if f.Value != nil {
				rpm := *f.Value
				status.FanRPM = &rpm
				break
			}
		}
	}

	if info.UptimeVal != "" {
		if n, err := info.UptimeVal.Int64(); err == nil {
			status.UptimeVal = &n
		}
	}

	return status, nil
}

func lookup(m map[string]float64, key string) *float64 {
	if v, ok := m[key]; ok {
		return &v
	}
	return nil
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// parseMajor extracts the major version from "X.Y".
func parseMajor(version string) int {
	major, _, _ := strings.Cut(strings.TrimSpace(version), ".")
	n, err := strconv.Atoi(major)
	if err != nil || n <= 0 {
		return DefaultAPIMajor
	}
	return n
}
