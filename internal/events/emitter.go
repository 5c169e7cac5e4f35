// Curatarr - AI Recommendation Collections for Media Servers
// Copyright 2026 Curatarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curatarr/curatarr

package events

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/curatarr/curatarr/internal/logging"
	"github.com/curatarr/curatarr/internal/metrics"
	"github.com/curatarr/curatarr/internal/models"
)

// ScoringSink receives serialized envelopes over HTTP. Implemented by
// the scoring client.
type ScoringSink interface {
	SendEvent(ctx context.Context, payload []byte) error
	SendWatchEvent(ctx context.Context, event *models.WatchEvent) error
}

// BusSink receives serialized envelopes over NATS. Implemented by the
// bus publisher.
type BusSink interface {
	Publish(ctx context.Context, eventType string, payload []byte) error
}

// Emitter delivers each event to both sinks concurrently. Delivery
// succeeds if at least one sink accepts the envelope; the failed leg is
// logged and counted but never blocks the other. Only when every
// configured sink fails does Emit return an error.
type Emitter struct {
	scoring ScoringSink
	bus     BusSink // nil when the bus is disabled
	logger  zerolog.Logger
}

// NewEmitter creates an emitter. bus may be nil, in which case only the
// scoring sink is used.
func NewEmitter(scoring ScoringSink, bus BusSink) *Emitter {
	return &Emitter{
		scoring: scoring,
		bus:     bus,
		logger:  logging.With().Str("component", "emitter").Logger(),
	}
}

// Emit wraps data in an envelope and delivers it to all configured sinks.
func (e *Emitter) Emit(ctx context.Context, eventType string, data interface{}) error {
	payload, err := NewEnvelope(eventType, data).Marshal()
	if err != nil {
		metrics.EventsEmitted.WithLabelValues(eventType, "failure").Inc()
		return err
	}
	return e.deliver(ctx, eventType, payload)
}

// EmitUserSync announces a completed user sync.
func (e *Emitter) EmitUserSync(ctx context.Context, record *models.UserSyncRecord) error {
	return e.Emit(ctx, TypeUserSync, record)
}

// EmitContentSync announces a completed content library sync.
func (e *Emitter) EmitContentSync(ctx context.Context, itemCount int) error {
	return e.Emit(ctx, TypeContentSync, map[string]interface{}{"itemCount": itemCount})
}

// EmitCollectionCreated announces a new or refreshed recommendation
// collection.
func (e *Emitter) EmitCollectionCreated(ctx context.Context, collection *models.Collection) error {
	return e.Emit(ctx, TypeCollectionCreated, collection)
}

// EmitRecommendationsGenerated announces a completed generation pass for
// a user.
func (e *Emitter) EmitRecommendationsGenerated(ctx context.Context, data interface{}) error {
	return e.Emit(ctx, TypeRecommendationsGenerated, data)
}

// EmitWatchEvent delivers a playback event. The scoring sink receives it
// on its dedicated watch endpoint; the bus receives the standard envelope.
func (e *Emitter) EmitWatchEvent(ctx context.Context, event *models.WatchEvent) error {
	scoringErrCh := make(chan error, 1)
	go func() {
		scoringErrCh <- e.scoring.SendWatchEvent(ctx, event)
	}()

	var busErr error
	if e.bus != nil {
		payload, err := NewEnvelope(TypeWatchEvent, event).Marshal()
		if err != nil {
			busErr = err
		} else {
			busErr = e.bus.Publish(ctx, TypeWatchEvent, payload)
		}
	}

	scoringErr := <-scoringErrCh
	return e.settle(TypeWatchEvent, scoringErr, busErr)
}

// deliver fans the payload out to both sinks and waits for both legs.
func (e *Emitter) deliver(ctx context.Context, eventType string, payload []byte) error {
	scoringErrCh := make(chan error, 1)
	go func() {
		scoringErrCh <- e.scoring.SendEvent(ctx, payload)
	}()

	var busErr error
	if e.bus != nil {
		busErr = e.bus.Publish(ctx, eventType, payload)
	}

	scoringErr := <-scoringErrCh
	return e.settle(eventType, scoringErr, busErr)
}

// settle applies the at-least-one-success rule and records metrics.
// busErr is always nil when no bus is configured.
func (e *Emitter) settle(eventType string, scoringErr, busErr error) error {
	if scoringErr != nil {
		metrics.EmitterSinkFailures.WithLabelValues("scoring").Inc()
		e.logger.Warn().Err(scoringErr).Str("event_type", eventType).Msg("Scoring sink delivery failed")
	}
	if busErr != nil {
		metrics.EmitterSinkFailures.WithLabelValues("bus").Inc()
		e.logger.Warn().Err(busErr).Str("event_type", eventType).Msg("Bus sink delivery failed")
	}

	if scoringErr != nil && (busErr != nil || e.bus == nil) {
		metrics.EventsEmitted.WithLabelValues(eventType, "failure").Inc()
		return fmt.Errorf("all sinks failed for %s event: %w", eventType, scoringErr)
	}

	metrics.EventsEmitted.WithLabelValues(eventType, "success").Inc()
	return nil
}
