// Fbxdash - Freebox Dashboard Realtime Backend
// Copyright 2026 The Fbxdash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fbxdash/fbxdash

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type requestIDKey struct{}

// GenerateRequestID returns a random UUIDv4.
func GenerateRequestID() string {
	return uuid.NewString()
}

// ContextWithRequestID stores id for Ctx and RequestIDFromContext.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the stored request ID, or "".
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// Ctx returns the global logger with the request_id from ctx attached.
//
//	logging.Ctx(r.Context()).Warn().Err(err).Msg("Upstream call failed")
func Ctx(ctx context.Context) *zerolog.Logger {
	l := Logger()
	if requestID := RequestIDFromContext(ctx); requestID != "" {
		l = l.With().Str("request_id", requestID).Logger()
	}
	return &l
}
