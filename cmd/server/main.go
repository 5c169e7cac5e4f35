// Curatarr - AI Recommendation Collections for Media Servers
// Copyright 2026 Curatarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curatarr/curatarr

// Package main is the entry point for the Curatarr server.
//
// Curatarr turns scored recommendation candidates from an external
// scoring service into named, bounded collections inside a media
// catalog, and mirrors the catalog's usage data back to the scoring
// service and an optional NATS event stream.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered loading from defaults, config file, and
//     environment variables (Koanf v2)
//  2. Scoring client: HTTP client with circuit breaker
//  3. Event bus (optional): NATS JetStream publisher via Watermill
//  4. Engine: resolver, fallback heuristics, collection lifecycle,
//     recommendation and sync orchestrators
//  5. Scheduler: daily generation pass plus optional startup pass
//  6. HTTP server: REST API and Prometheus metrics
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins): environment variables, config file (config.yaml),
// built-in defaults.
//
// Required unless FALLBACK_ONLY=true:
//   - SCORING_URL: scoring service base URL
//   - SCORING_API_KEY: API key sent as X-API-Key
//
// Optional NATS sink:
//   - BUS_ENABLED=true, BUS_URL=nats://localhost:4222
//
// # Signal Handling
//
// The server shuts down gracefully on SIGINT and SIGTERM: the scheduler
// stops, in-flight requests get 10 seconds to complete, and the bus
// publisher drains its connection.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/curatarr/curatarr/internal/api"
	"github.com/curatarr/curatarr/internal/bus"
	"github.com/curatarr/curatarr/internal/catalog"
	"github.com/curatarr/curatarr/internal/collections"
	"github.com/curatarr/curatarr/internal/config"
	"github.com/curatarr/curatarr/internal/events"
	"github.com/curatarr/curatarr/internal/fallback"
	"github.com/curatarr/curatarr/internal/logging"
	"github.com/curatarr/curatarr/internal/recommend"
	"github.com/curatarr/curatarr/internal/resolve"
	"github.com/curatarr/curatarr/internal/scheduler"
	"github.com/curatarr/curatarr/internal/scoring"
	syncpkg "github.com/curatarr/curatarr/internal/sync"
)

func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("scoring_url", cfg.Scoring.URL).
		Bool("fallback_only", cfg.Engine.FallbackOnly).
		Bool("bus_enabled", cfg.Bus.Enabled).
		Msg("Starting Curatarr")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// The in-memory catalog backs local runs; production deployments
	// embed the engine against the media server's own catalog.
	cat := catalog.NewMemory()

	scoringClient := scoring.NewBreakerClient(scoring.NewHTTPClient(&cfg.Scoring))
	if !cfg.Engine.FallbackOnly {
		pingCtx, pingCancel := context.WithTimeout(ctx, 10*time.Second)
		if err := scoringClient.TestConnection(pingCtx); err != nil {
			logging.Warn().Err(err).Msg("Failed to connect to scoring service (will retry)")
		} else {
			logging.Info().Msg("Connected to scoring service")
		}
		pingCancel()
	}

	var busSink events.BusSink
	if cfg.Bus.Enabled {
		publisher, err := bus.NewPublisher(&cfg.Bus, nil)
		if err != nil {
			logging.Fatal().Err(err).Msg("Failed to connect to NATS")
		}
		defer func() {
			if err := publisher.Close(); err != nil {
				logging.Error().Err(err).Msg("Error closing bus publisher")
			}
		}()
		busSink = publisher
		logging.Info().Str("url", cfg.Bus.URL).Str("topic", cfg.Bus.Topic).Msg("NATS event sink enabled")
	}

	emitter := events.NewEmitter(scoringClient, busSink)
	watcher := events.NewWatcher(emitter)

	state := config.NewStateStore(cfg.StatePath)
	syncManager := syncpkg.NewManager(cat, scoringClient, emitter, state, cfg.Sync)

	orchestrator := recommend.NewOrchestrator(
		scoringClient,
		fallback.NewEngine(cat),
		resolve.NewResolver(cat),
		collections.NewManager(cat),
		emitter,
		cat,
		cfg.Engine,
	)

	// The scheduled pass syncs first so the scoring service ranks
	// against fresh usage data, then regenerates collections.
	sched := scheduler.New(cfg.Scheduler, func(ctx context.Context) error {
		if _, err := syncManager.TriggerSync(ctx); err != nil {
			logging.Warn().Err(err).Msg("Scheduled sync failed, generating from stale data")
		}
		_, err := orchestrator.GenerateForAllUsers(ctx)
		return err
	})

	schedDone := make(chan error, 1)
	go func() {
		schedDone <- sched.Run(ctx)
	}()

	handler := api.NewHandler(syncManager, orchestrator, scoringClient, watcher)
	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      api.NewRouter(handler),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	serverDone := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		serverDone <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logging.Info().Msg("Received shutdown signal")
	case err := <-serverDone:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error().Err(err).Msg("HTTP server error")
		}
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("HTTP server shutdown error")
	}

	if err := <-schedDone; err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Scheduler error")
	}

	logging.Info().Msg("Application stopped gracefully")
}
