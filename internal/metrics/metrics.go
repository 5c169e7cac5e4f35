// Curatarr - AI Recommendation Collections for Media Servers
// Copyright 2026 Curatarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curatarr/curatarr

// Package metrics exposes Prometheus instrumentation for the engine:
// scoring service calls, sync throughput, collection lifecycle, event
// emitter sink health, and circuit breaker state.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Scoring service metrics
	ScoringRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "curatarr_scoring_request_duration_seconds",
			Help:    "Duration of scoring service HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	ScoringRequestErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curatarr_scoring_request_errors_total",
			Help: "Total number of failed scoring service requests",
		},
		[]string{"operation"},
	)

	// Resolution metrics
	ResolutionResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curatarr_resolution_results_total",
			Help: "Recommendation candidate resolution outcomes by stage",
		},
		[]string{"stage"}, // "item_id", "provider_id", "name", "unresolved"
	)

	// Sync metrics
	SyncUsersTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curatarr_sync_users_total",
			Help: "Total number of user sync attempts by result",
		},
		[]string{"result"}, // "success", "failure"
	)

	SyncContentItems = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "curatarr_sync_content_items_total",
			Help: "Total number of content metadata items synced",
		},
	)

	SyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "curatarr_sync_duration_seconds",
			Help:    "Duration of sync operations in seconds",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"kind"}, // "user", "all_users", "content", "full"
	)

	// Collection lifecycle metrics
	CollectionsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "curatarr_collections_created_total",
			Help: "Total number of recommendation collections created",
		},
	)

	CollectionsUpdated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "curatarr_collections_updated_total",
			Help: "Total number of recommendation collections updated in place",
		},
	)

	CollectionsDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "curatarr_collections_deleted_total",
			Help: "Total number of recommendation collections deleted by retention cleanup",
		},
	)

	// Recommendation generation metrics
	GenerationRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curatarr_generation_runs_total",
			Help: "Total recommendation generation runs by result",
		},
		[]string{"result"}, // "success", "failure", "fallback"
	)

	FallbackRecommendations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curatarr_fallback_recommendations_total",
			Help: "Total heuristic fallback recommendations produced by strategy",
		},
		[]string{"strategy"}, // "general", "trending", "similar"
	)

	// Event emitter metrics
	EventsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curatarr_events_emitted_total",
			Help: "Total events emitted by type and overall result",
		},
		[]string{"event_type", "result"}, // result: "success", "failure"
	)

	EmitterSinkFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curatarr_emitter_sink_failures_total",
			Help: "Total per-sink delivery failures in the dual-sink event emitter",
		},
		[]string{"sink"}, // "scoring", "bus"
	)

	BusPublishes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curatarr_bus_publishes_total",
			Help: "Total NATS JetStream publish attempts by result",
		},
		[]string{"result"}, // "success", "failure"
	)

	// Circuit breaker metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "curatarr_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curatarr_circuit_breaker_requests_total",
			Help: "Circuit breaker request outcomes",
		},
		[]string{"name", "result"}, // "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curatarr_circuit_breaker_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "curatarr_circuit_breaker_consecutive_failures",
			Help: "Current consecutive failure count per circuit breaker",
		},
		[]string{"name"},
	)

	// Scheduler metrics
	ScheduledRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "curatarr_scheduled_runs_total",
			Help: "Total scheduler-triggered generation runs by trigger",
		},
		[]string{"trigger"}, // "daily", "startup", "manual"
	)
)
