// Fbxdash - Freebox Dashboard Realtime Backend
// Copyright 2026 The Fbxdash Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/fbxdash/fbxdash

package freebox

import (
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/fbxdash/fbxdash/internal/logging"
	"github.com/fbxdash/fbxdash/internal/metrics"
)

// newCircuitBreaker guards upstream round trips. Only transport failures and
// 5xx replies count as failures; {success:false} envelopes are answers.
//
// Configuration:
//   - Max 3 concurrent requests in half-open state
//   - 1 minute measurement window
//   - 30 second timeout before attempting recovery
//   - Opens after 60% failure rate with minimum 10 requests
func newCircuitBreaker(name string) *gobreaker.CircuitBreaker[*rawResponse] {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	return gobreaker.NewCircuitBreaker[*rawResponse](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6
			if shouldTrip {
				logging.Warn().
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return shouldTrip
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("[CIRCUIT BREAKER] State transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
