// Fbxdash - Freebox Dashboard Realtime Backend
// Copyright 2026 The Fbxdash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fbxdash/fbxdash

package logging

import (
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// ServiceName is attached to every record as the "service" field.
const ServiceName = "fbxdash"

// Config holds logging configuration.
type Config struct {
	// Level: trace, debug, info, warn, error, fatal, panic or disabled.
	// Default: info
	Level string

	// Format: json or console. Default: json
	Format string

	// Caller adds file:line to each record.
	Caller bool

	// Timestamp adds a "time" field. Default: true
	Timestamp bool

	// Output defaults to os.Stderr.
	Output io.Writer
}

// DefaultConfig returns the configuration used before Init is called.
func DefaultConfig() Config {
	return Config{
		Level:     "info",
		Format:    "json",
		Timestamp: true,
		Output:    os.Stderr,
	}
}

var levels = map[string]zerolog.Level{
	"trace":    zerolog.TraceLevel,
	"debug":    zerolog.DebugLevel,
	"info":     zerolog.InfoLevel,
	"warn":     zerolog.WarnLevel,
	"warning":  zerolog.WarnLevel,
	"error":    zerolog.ErrorLevel,
	"fatal":    zerolog.FatalLevel,
	"panic":    zerolog.PanicLevel,
	"disabled": zerolog.Disabled,
}

// current holds the process logger. Readers never block a reconfiguration.
var current atomic.Pointer[zerolog.Logger]

//nolint:gochecknoinits // logging must work before Init runs
func init() {
	Init(DefaultConfig())
}

// Init replaces the process logger. It may be called again to reconfigure.
func Init(cfg Config) {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}

	zerolog.SetGlobalLevel(parseLevel(cfg.Level))
	zerolog.TimeFieldFormat = time.RFC3339

	out := cfg.Output
	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: "15:04:05"}
	}

	ctx := zerolog.New(out).With().Str("service", ServiceName)
	if cfg.Timestamp {
		ctx = ctx.Timestamp()
	}
	if cfg.Caller {
		ctx = ctx.Caller()
	}
	l := ctx.Logger()
	current.Store(&l)
}

// parseLevel maps a case-insensitive level name; unknown names mean info.
func parseLevel(level string) zerolog.Level {
	if l, ok := levels[strings.ToLower(strings.TrimSpace(level))]; ok {
		return l
	}
	return zerolog.InfoLevel
}

// Logger returns a copy of the process logger.
func Logger() zerolog.Logger {
	return *current.Load()
}

// Debug starts a debug record.
func Debug() *zerolog.Event { return current.Load().Debug() }

// Info starts an info record.
//
//	logging.Info().Str("addr", addr).Msg("HTTP server service added")
func Info() *zerolog.Event { return current.Load().Info() }

// Warn starts a warning record.
func Warn() *zerolog.Event { return current.Load().Warn() }

// Error starts an error record.
func Error() *zerolog.Event { return current.Load().Error() }

// Fatal starts a fatal record; Msg exits the process with status 1.
func Fatal() *zerolog.Event { return current.Load().Fatal() }
