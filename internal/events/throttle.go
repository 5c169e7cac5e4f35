// Curatarr - AI Recommendation Collections for Media Servers
// Copyright 2026 Curatarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curatarr/curatarr

package events

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/curatarr/curatarr/internal/models"
)

// ProgressInterval is the minimum spacing between forwarded progress
// events per playback session. Start, stop, pause, and resume events are
// never throttled.
const ProgressInterval = 30 * time.Second

// sessionKey identifies a playback session for throttling purposes.
type sessionKey struct {
	userID string
	itemID string
}

// Throttle rate-limits progress events per user+item session so a
// client reporting progress every few seconds does not flood the sinks.
type Throttle struct {
	mu       sync.Mutex
	limiters map[sessionKey]*rate.Limiter
	interval time.Duration
}

// NewThrottle creates a throttle with the given minimum interval between
// progress events per session.
func NewThrottle(interval time.Duration) *Throttle {
	return &Throttle{
		limiters: make(map[sessionKey]*rate.Limiter),
		interval: interval,
	}
}

// Allow reports whether a progress event for this session may be
// forwarded now. The first event per session is always allowed.
func (t *Throttle) Allow(event *models.WatchEvent) bool {
	key := sessionKey{userID: event.UserID.String(), itemID: event.ItemID.String()}

	t.mu.Lock()
	limiter, ok := t.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(t.interval), 1)
		t.limiters[key] = limiter
	}
	t.mu.Unlock()

	return limiter.Allow()
}

// Forget drops the session's limiter. Called on play stop so a replay of
// the same item starts with a fresh allowance.
func (t *Throttle) Forget(event *models.WatchEvent) {
	key := sessionKey{userID: event.UserID.String(), itemID: event.ItemID.String()}

	t.mu.Lock()
	delete(t.limiters, key)
	t.mu.Unlock()
}

// Watcher routes playback events through the emitter, applying the
// progress throttle. Throttled events are dropped silently; all other
// event types pass straight through.
type Watcher struct {
	emitter  *Emitter
	throttle *Throttle
}

// NewWatcher creates a watcher with the default progress interval.
func NewWatcher(emitter *Emitter) *Watcher {
	return &Watcher{
		emitter:  emitter,
		throttle: NewThrottle(ProgressInterval),
	}
}

// HandleWatchEvent forwards the event to the sinks unless it is a
// throttled progress report. Returns nil for dropped events.
func (w *Watcher) HandleWatchEvent(ctx context.Context, event *models.WatchEvent) error {
	switch event.EventType {
	case models.WatchEventProgress:
		if !w.throttle.Allow(event) {
			return nil
		}
	case models.WatchEventPlayStop:
		w.throttle.Forget(event)
	}

	return w.emitter.EmitWatchEvent(ctx, event)
}
