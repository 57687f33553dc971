// Fbxdash - Freebox Dashboard Realtime Backend
// Copyright 2026 The Fbxdash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fbxdash/fbxdash

package logging

import (
	"context"
	"log/slog"

	"github.com/rs/zerolog"
)

// slogField is an attribute already qualified by the groups open when it
// was attached.
type slogField struct {
	key   string
	value slog.Value
}

// SlogHandler implements slog.Handler on top of the process zerolog logger,
// for libraries that only accept *slog.Logger (sutureslog).
type SlogHandler struct {
	prefix string
	fields []slogField
}

// NewSlogHandler creates a slog.Handler writing through the process logger.
func NewSlogHandler() *SlogHandler {
	return &SlogHandler{}
}

// NewSlogLogger returns an slog.Logger backed by zerolog.
//
//	handler := &sutureslog.Handler{Logger: logging.NewSlogLogger()}
func NewSlogLogger() *slog.Logger {
	return slog.New(NewSlogHandler())
}

// Enabled implements slog.Handler.
func (h *SlogHandler) Enabled(_ context.Context, level slog.Level) bool {
	return zerolog.GlobalLevel() <= zerologLevel(level)
}

// Handle implements slog.Handler.
//
//nolint:gocritic // slog.Record is passed by value per slog.Handler interface
func (h *SlogHandler) Handle(_ context.Context, record slog.Record) error {
	l := Logger()
	event := l.WithLevel(zerologLevel(record.Level))
	if event == nil {
		return nil
	}
	for _, f := range h.fields {
		event = appendValue(event, f.key, f.value)
	}
	record.Attrs(func(a slog.Attr) bool {
		event = appendValue(event, h.prefix+a.Key, a.Value)
		return true
	})
	event.Msg(record.Message)
	return nil
}

// WithAttrs implements slog.Handler.
func (h *SlogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	fields := make([]slogField, len(h.fields), len(h.fields)+len(attrs))
	copy(fields, h.fields)
	for _, a := range attrs {
		fields = append(fields, slogField{key: h.prefix + a.Key, value: a.Value})
	}
	return &SlogHandler{prefix: h.prefix, fields: fields}
}

// WithGroup implements slog.Handler. Keys are flattened as group.key.
func (h *SlogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &SlogHandler{prefix: h.prefix + name + ".", fields: h.fields}
}

func appendValue(event *zerolog.Event, key string, v slog.Value) *zerolog.Event {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return event.Str(key, v.String())
	case slog.KindInt64:
		return event.Int64(key, v.Int64())
	case slog.KindUint64:
		return event.Uint64(key, v.Uint64())
	case slog.KindFloat64:
		return event.Float64(key, v.Float64())
	case slog.KindBool:
		return event.Bool(key, v.Bool())
	case slog.KindDuration:
		return event.Dur(key, v.Duration())
	case slog.KindTime:
		return event.Time(key, v.Time())
	case slog.KindGroup:
		for _, a := range v.Group() {
			event = appendValue(event, key+"."+a.Key, a.Value)
		}
		return event
	default:
		if err, ok := v.Any().(error); ok {
			return event.AnErr(key, err)
		}
		return event.Interface(key, v.Any())
	}
}

// zerologLevel maps slog levels, including the gaps between named ones.
func zerologLevel(level slog.Level) zerolog.Level {
	switch {
	case level < slog.LevelDebug:
		return zerolog.TraceLevel
	case level < slog.LevelInfo:
		return zerolog.DebugLevel
	case level < slog.LevelWarn:
		return zerolog.InfoLevel
	case level < slog.LevelError:
		return zerolog.WarnLevel
	default:
		return zerolog.ErrorLevel
	}
}
