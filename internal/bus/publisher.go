// Curatarr - AI Recommendation Collections for Media Servers
// Copyright 2026 Curatarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curatarr/curatarr

// Package bus provides the NATS JetStream publisher used as the second
// sink of the dual-sink event emitter. Payloads arrive pre-serialized so
// both sinks observe identical envelope bytes.
package bus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"

	"github.com/curatarr/curatarr/internal/config"
	"github.com/curatarr/curatarr/internal/metrics"
)

// Publisher wraps a Watermill NATS publisher with reconnection handling
// and message ID deduplication.
type Publisher struct {
	publisher message.Publisher
	topic     string
	mu        sync.RWMutex
	closed    bool
	logger    watermill.LoggerAdapter
}

// NewPublisher creates a resilient Watermill NATS publisher configured
// for JetStream with message ID tracking for deduplication.
func NewPublisher(cfg *config.BusConfig, logger watermill.LoggerAdapter) (*Publisher, error) {
	if logger == nil {
		logger = watermill.NewStdLogger(false, false)
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{
				"url": nc.ConnectedUrl(),
			})
		}),
	}

	wmConfig := wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: true,
			TrackMsgId:    true,
			AckAsync:      false,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}

	pub, err := wmNats.NewPublisher(wmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}

	return &Publisher{
		publisher: pub,
		topic:     cfg.Topic,
		logger:    logger,
	}, nil
}

// newWithPublisher wires an existing Watermill publisher, used by tests.
func newWithPublisher(pub message.Publisher, topic string, logger watermill.LoggerAdapter) *Publisher {
	if logger == nil {
		logger = watermill.NewStdLogger(false, false)
	}
	return &Publisher{publisher: pub, topic: topic, logger: logger}
}

// Publish sends a pre-serialized event payload to the configured topic.
// The message UUID doubles as Nats-Msg-Id so JetStream deduplicates
// redelivered envelopes.
func (p *Publisher) Publish(ctx context.Context, eventType string, payload []byte) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return fmt.Errorf("publisher is closed")
	}
	p.mu.RUnlock()

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("event_type", eventType)
	if msg.Metadata.Get(natsgo.MsgIdHdr) == "" {
		msg.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)
	}

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		metrics.BusPublishes.WithLabelValues("failure").Inc()
		return fmt.Errorf("publish %s event: %w", eventType, err)
	}

	metrics.BusPublishes.WithLabelValues("success").Inc()
	return nil
}

// Close gracefully shuts down the publisher. Safe to call twice.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	return p.publisher.Close()
}
