// Curatarr - AI Recommendation Collections for Media Servers
// Copyright 2026 Curatarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curatarr/curatarr

// Package events defines the event envelope shared by all downstream
// consumers and the dual-sink emitter that delivers it to the scoring
// service and the NATS bus.
package events

import (
	"fmt"
	"time"

	json "github.com/goccy/go-json"
)

// Event type names. User-initiated events carry the user_ prefix,
// library-wide events the content_ prefix. Consumers route on these
// strings, so they are part of the wire contract.
const (
	TypeUserSync                 = "user_sync"
	TypeContentSync              = "content_sync"
	TypeWatchEvent               = "user_watch_event"
	TypeCollectionCreated        = "user_collection_created"
	TypeRecommendationsGenerated = "user_recommendations_generated"
)

// Source identifies this engine in emitted envelopes.
const Source = "curatarr"

// Version is the envelope schema version.
const Version = "1.0"

// Envelope is the wire format wrapping every emitted event. Both sinks
// receive byte-identical serializations of the same envelope.
type Envelope struct {
	EventType string      `json:"eventType"`
	Timestamp time.Time   `json:"timestamp"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Data      interface{} `json:"data"`
}

// NewEnvelope wraps data in an envelope stamped with the current UTC time.
func NewEnvelope(eventType string, data interface{}) *Envelope {
	return &Envelope{
		EventType: eventType,
		Timestamp: time.Now().UTC(),
		Source:    Source,
		Version:   Version,
		Data:      data,
	}
}

// Marshal serializes the envelope for delivery.
func (e *Envelope) Marshal() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", e.EventType, err)
	}
	return data, nil
}
