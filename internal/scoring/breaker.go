// Curatarr - AI Recommendation Collections for Media Servers
// Copyright 2026 Curatarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curatarr/curatarr

package scoring

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/curatarr/curatarr/internal/logging"
	"github.com/curatarr/curatarr/internal/metrics"
	"github.com/curatarr/curatarr/internal/models"
)

var _ Client = (*BreakerClient)(nil)

// BreakerClient wraps a scoring Client with the circuit breaker pattern.
// The breaker prevents cascading failures when the scoring service is
// unavailable or slow, letting callers fall back to heuristic
// recommendations quickly instead of stacking up timeouts.
//
// The breaker uses real time for its interval and timeout calculations.
// Tests should exercise the wrapped client directly.
type BreakerClient struct {
	client Client
	cb     *gobreaker.CircuitBreaker[interface{}]
	name   string
}

// NewBreakerClient wraps client with a circuit breaker. Configuration:
// - Max 3 concurrent requests in half-open state
// - 1 minute measurement window
// - 2 minute timeout before attempting recovery
// - Opens after 60% failure rate with minimum 10 requests
func NewBreakerClient(client Client) *BreakerClient {
	cbName := "scoring-api"

	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0) // 0 = closed
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(cbName).Set(0)

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}

			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6

			if shouldTrip {
				logging.Warn().Uint32("failures", counts.TotalFailures).Float64("failure_rate", failureRatio*100).Msg("[CIRCUIT BREAKER] Opening circuit")
			}

			return shouldTrip
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)

			logging.Info().Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()

			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},
	})

	return &BreakerClient{
		client: client,
		cb:     cb,
		name:   cbName,
	}
}

// execute wraps a scoring service call with circuit breaker protection.
func (bc *BreakerClient) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := bc.cb.Execute(fn)

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(bc.name, "rejected").Inc()
			logging.Warn().Err(err).Msg("[CIRCUIT BREAKER] Request rejected")
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(bc.name, "failure").Inc()

			counts := bc.cb.Counts()
			metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(bc.name).Set(float64(counts.ConsecutiveFailures))
		}
		return nil, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(bc.name, "success").Inc()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(bc.name).Set(0)

	return result, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Recommendations retrieves candidates with circuit breaker protection.
func (bc *BreakerClient) Recommendations(ctx context.Context, userID uuid.UUID, count int) ([]models.ScoredCandidate, error) {
	result, err := bc.execute(func() (interface{}, error) {
		return bc.client.Recommendations(ctx, userID, count)
	})
	if err != nil {
		return nil, err
	}
	candidates, ok := result.([]models.ScoredCandidate)
	if !ok {
		return nil, errors.New("circuit breaker: unexpected recommendations result type")
	}
	return candidates, nil
}

// SyncUser pushes a user sync payload with circuit breaker protection.
func (bc *BreakerClient) SyncUser(ctx context.Context, record *models.UserSyncRecord) error {
	_, err := bc.execute(func() (interface{}, error) {
		return nil, bc.client.SyncUser(ctx, record)
	})
	return err
}

// SyncContent pushes a content batch with circuit breaker protection.
func (bc *BreakerClient) SyncContent(ctx context.Context, items []models.ContentMetadata) error {
	_, err := bc.execute(func() (interface{}, error) {
		return nil, bc.client.SyncContent(ctx, items)
	})
	return err
}

// SendWatchEvent forwards a playback event with circuit breaker protection.
func (bc *BreakerClient) SendWatchEvent(ctx context.Context, event *models.WatchEvent) error {
	_, err := bc.execute(func() (interface{}, error) {
		return nil, bc.client.SendWatchEvent(ctx, event)
	})
	return err
}

// SendEvent forwards an event envelope with circuit breaker protection.
func (bc *BreakerClient) SendEvent(ctx context.Context, payload []byte) error {
	_, err := bc.execute(func() (interface{}, error) {
		return nil, bc.client.SendEvent(ctx, payload)
	})
	return err
}

// TestConnection checks connectivity with circuit breaker protection.
func (bc *BreakerClient) TestConnection(ctx context.Context) error {
	_, err := bc.execute(func() (interface{}, error) {
		return nil, bc.client.TestConnection(ctx)
	})
	return err
}
