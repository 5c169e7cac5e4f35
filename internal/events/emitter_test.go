// Curatarr - AI Recommendation Collections for Media Servers
// Copyright 2026 Curatarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curatarr/curatarr

package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/curatarr/curatarr/internal/models"
)

// mockScoringSink records payloads delivered to the scoring leg.
type mockScoringSink struct {
	mu          sync.Mutex
	payloads    [][]byte
	watchEvents []*models.WatchEvent
	err         error
}

func (m *mockScoringSink) SendEvent(ctx context.Context, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.payloads = append(m.payloads, payload)
	return nil
}

func (m *mockScoringSink) SendWatchEvent(ctx context.Context, event *models.WatchEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.watchEvents = append(m.watchEvents, event)
	return nil
}

// mockBusSink records payloads delivered to the bus leg.
type mockBusSink struct {
	mu       sync.Mutex
	payloads [][]byte
	types    []string
	err      error
}

func (m *mockBusSink) Publish(ctx context.Context, eventType string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.types = append(m.types, eventType)
	m.payloads = append(m.payloads, payload)
	return nil
}

func TestEmitDeliversToBothSinks(t *testing.T) {
	scoring := &mockScoringSink{}
	bus := &mockBusSink{}
	emitter := NewEmitter(scoring, bus)

	if err := emitter.Emit(context.Background(), TypeUserSync, map[string]string{"user": "alice"}); err != nil {
		t.Fatalf("Emit failed: %v", err)
	}

	if len(scoring.payloads) != 1 {
		t.Fatalf("expected 1 scoring delivery, got %d", len(scoring.payloads))
	}
	if len(bus.payloads) != 1 {
		t.Fatalf("expected 1 bus delivery, got %d", len(bus.payloads))
	}

	// Both sinks observe identical envelope bytes.
	if string(scoring.payloads[0]) != string(bus.payloads[0]) {
		t.Error("sinks received different payloads")
	}

	var envelope Envelope
	if err := json.Unmarshal(scoring.payloads[0], &envelope); err != nil {
		t.Fatalf("failed to parse envelope: %v", err)
	}
	if envelope.EventType != TypeUserSync {
		t.Errorf("expected eventType %q, got %q", TypeUserSync, envelope.EventType)
	}
	if envelope.Source != Source || envelope.Version != Version {
		t.Errorf("unexpected envelope identity: %+v", envelope)
	}
	if envelope.Timestamp.IsZero() {
		t.Error("expected timestamp to be set")
	}
}

func TestEmitSucceedsWhenOneSinkFails(t *testing.T) {
	scoring := &mockScoringSink{err: errors.New("scoring down")}
	bus := &mockBusSink{}
	emitter := NewEmitter(scoring, bus)

	if err := emitter.Emit(context.Background(), TypeContentSync, nil); err != nil {
		t.Fatalf("expected success with one healthy sink, got %v", err)
	}
	if len(bus.payloads) != 1 {
		t.Errorf("expected bus delivery, got %d", len(bus.payloads))
	}
}

func TestEmitFailsWhenAllSinksFail(t *testing.T) {
	scoring := &mockScoringSink{err: errors.New("scoring down")}
	bus := &mockBusSink{err: errors.New("nats down")}
	emitter := NewEmitter(scoring, bus)

	if err := emitter.Emit(context.Background(), TypeContentSync, nil); err == nil {
		t.Fatal("expected error when every sink fails")
	}
}

func TestEmitWithoutBusUsesScoringOnly(t *testing.T) {
	scoring := &mockScoringSink{}
	emitter := NewEmitter(scoring, nil)

	if err := emitter.Emit(context.Background(), TypeUserSync, nil); err != nil {
		t.Fatalf("Emit failed: %v", err)
	}
	if len(scoring.payloads) != 1 {
		t.Errorf("expected scoring delivery, got %d", len(scoring.payloads))
	}

	// Scoring failure with no bus means total failure.
	scoring.err = errors.New("scoring down")
	if err := emitter.Emit(context.Background(), TypeUserSync, nil); err == nil {
		t.Fatal("expected error with single failing sink")
	}
}

func TestEmitWatchEventUsesDedicatedEndpoint(t *testing.T) {
	scoring := &mockScoringSink{}
	bus := &mockBusSink{}
	emitter := NewEmitter(scoring, bus)

	event := &models.WatchEvent{
		EventType: models.WatchEventPlayStart,
		UserID:    uuid.New(),
		ItemID:    uuid.New(),
		Timestamp: time.Now().UTC(),
	}

	if err := emitter.EmitWatchEvent(context.Background(), event); err != nil {
		t.Fatalf("EmitWatchEvent failed: %v", err)
	}

	if len(scoring.watchEvents) != 1 {
		t.Fatalf("expected watch event on scoring sink, got %d", len(scoring.watchEvents))
	}
	if len(bus.payloads) != 1 {
		t.Fatalf("expected envelope on bus sink, got %d", len(bus.payloads))
	}

	var envelope Envelope
	if err := json.Unmarshal(bus.payloads[0], &envelope); err != nil {
		t.Fatalf("failed to parse bus envelope: %v", err)
	}
	if envelope.EventType != TypeWatchEvent {
		t.Errorf("expected %q envelope, got %q", TypeWatchEvent, envelope.EventType)
	}
}

func TestWatcherThrottlesProgress(t *testing.T) {
	scoring := &mockScoringSink{}
	emitter := NewEmitter(scoring, nil)
	watcher := NewWatcher(emitter)

	userID := uuid.New()
	itemID := uuid.New()
	progress := func() *models.WatchEvent {
		return &models.WatchEvent{
			EventType: models.WatchEventProgress,
			UserID:    userID,
			ItemID:    itemID,
			Timestamp: time.Now().UTC(),
		}
	}

	// First progress event passes, immediate repeats are dropped.
	for i := 0; i < 5; i++ {
		if err := watcher.HandleWatchEvent(context.Background(), progress()); err != nil {
			t.Fatalf("HandleWatchEvent failed: %v", err)
		}
	}
	if len(scoring.watchEvents) != 1 {
		t.Fatalf("expected 1 forwarded progress event, got %d", len(scoring.watchEvents))
	}

	// A different session is not affected by this session's limiter.
	other := progress()
	other.ItemID = uuid.New()
	if err := watcher.HandleWatchEvent(context.Background(), other); err != nil {
		t.Fatalf("HandleWatchEvent failed: %v", err)
	}
	if len(scoring.watchEvents) != 2 {
		t.Fatalf("expected 2 forwarded events, got %d", len(scoring.watchEvents))
	}

	// Start and stop events are never throttled.
	stop := progress()
	stop.EventType = models.WatchEventPlayStop
	if err := watcher.HandleWatchEvent(context.Background(), stop); err != nil {
		t.Fatalf("HandleWatchEvent failed: %v", err)
	}
	if len(scoring.watchEvents) != 3 {
		t.Fatalf("expected stop event forwarded, got %d", len(scoring.watchEvents))
	}

	// Stop resets the session, so the next progress passes again.
	if err := watcher.HandleWatchEvent(context.Background(), progress()); err != nil {
		t.Fatalf("HandleWatchEvent failed: %v", err)
	}
	if len(scoring.watchEvents) != 4 {
		t.Fatalf("expected fresh progress after stop, got %d", len(scoring.watchEvents))
	}
}
