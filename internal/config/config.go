// Curatarr - AI Recommendation Collections for Media Servers
// Copyright 2026 Curatarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curatarr/curatarr

// Package config provides layered configuration loading for Curatarr.
// Configuration is resolved in precedence order: environment variables
// override the optional YAML config file, which overrides built-in
// defaults.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration for the Curatarr engine.
type Config struct {
	Scoring   ScoringConfig   `koanf:"scoring"`
	Bus       BusConfig       `koanf:"bus"`
	Engine    EngineConfig    `koanf:"engine"`
	Sync      SyncConfig      `koanf:"sync"`
	Scheduler SchedulerConfig `koanf:"scheduler"`
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`

	// StatePath is where the engine persists runtime state such as the
	// last successful sync time.
	StatePath string `koanf:"state_path"`
}

// ScoringConfig configures the connection to the external scoring service
// that produces recommendation candidates.
type ScoringConfig struct {
	URL     string        `koanf:"url"`
	APIKey  string        `koanf:"api_key"`
	Timeout time.Duration `koanf:"timeout"`
}

// BusConfig configures the NATS JetStream event sink. The bus is an
// optional second sink alongside the scoring service HTTP sink; watch
// and sync events are mirrored to both.
type BusConfig struct {
	Enabled bool   `koanf:"enabled"`
	URL     string `koanf:"url"`
	Topic   string `koanf:"topic"`

	ReconnectWait time.Duration `koanf:"reconnect_wait"`
	MaxReconnects int           `koanf:"max_reconnects"`
	AckTimeout    time.Duration `koanf:"ack_timeout"`
}

// EngineConfig configures recommendation generation and collection
// lifecycle behavior.
type EngineConfig struct {
	// AutoCreateCollections enables persisting recommendation groups as
	// library collections. When false, generation still runs and emits
	// events but no collections are touched.
	AutoCreateCollections bool `koanf:"auto_create_collections"`

	// MaxCollections caps the number of managed collections kept per
	// cleanup pass. Oldest-modified collections beyond the cap are deleted.
	MaxCollections int `koanf:"max_collections"`

	// FallbackOnly forces heuristic recommendations even when the scoring
	// service is reachable. Useful for air-gapped deployments.
	FallbackOnly bool `koanf:"fallback_only"`

	// RecommendationCount is how many candidates to request per user.
	RecommendationCount int `koanf:"recommendation_count"`
}

// SyncConfig configures user and content library synchronization.
type SyncConfig struct {
	// HistoryLimit is the maximum number of watch history entries included
	// in a user sync payload, most recent first.
	HistoryLimit int `koanf:"history_limit"`
}

// SchedulerConfig configures the daily generation task.
type SchedulerConfig struct {
	Enabled bool `koanf:"enabled"`

	// TimeOfDay is the local wall-clock time of the daily run, "HH:MM".
	TimeOfDay string `koanf:"time_of_day"`

	// StartupRun triggers a generation pass shortly after process start.
	StartupRun   bool          `koanf:"startup_run"`
	StartupDelay time.Duration `koanf:"startup_delay"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// LoggingConfig configures structured logging output.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration for errors that would prevent the
// engine from operating. It fails fast so misconfiguration surfaces at
// startup rather than mid-sync.
func (c *Config) Validate() error {
	if !c.Engine.FallbackOnly {
		if c.Scoring.URL == "" {
			return fmt.Errorf("scoring.url is required unless engine.fallback_only is set")
		}
		if !strings.HasPrefix(c.Scoring.URL, "http://") && !strings.HasPrefix(c.Scoring.URL, "https://") {
			return fmt.Errorf("scoring.url must start with http:// or https://, got %q", c.Scoring.URL)
		}
		if c.Scoring.APIKey == "" {
			return fmt.Errorf("scoring.api_key is required unless engine.fallback_only is set")
		}
	}
	if c.Scoring.Timeout <= 0 {
		return fmt.Errorf("scoring.timeout must be positive, got %v", c.Scoring.Timeout)
	}

	if c.Bus.Enabled && c.Bus.URL == "" {
		return fmt.Errorf("bus.url is required when bus.enabled is set")
	}

	if c.Engine.MaxCollections < 1 {
		return fmt.Errorf("engine.max_collections must be at least 1, got %d", c.Engine.MaxCollections)
	}
	if c.Engine.RecommendationCount < 1 {
		return fmt.Errorf("engine.recommendation_count must be at least 1, got %d", c.Engine.RecommendationCount)
	}

	if c.Sync.HistoryLimit < 1 {
		return fmt.Errorf("sync.history_limit must be at least 1, got %d", c.Sync.HistoryLimit)
	}

	if c.Scheduler.Enabled {
		if _, err := ParseTimeOfDay(c.Scheduler.TimeOfDay); err != nil {
			return fmt.Errorf("scheduler.time_of_day: %w", err)
		}
	}
	if c.Scheduler.StartupDelay < 0 {
		return fmt.Errorf("scheduler.startup_delay must not be negative, got %v", c.Scheduler.StartupDelay)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %v", c.Server.Timeout)
	}

	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "error", "fatal":
	default:
		return fmt.Errorf("logging.level must be one of trace, debug, info, warn, error, fatal; got %q", c.Logging.Level)
	}

	return nil
}

// TimeOfDay is a wall-clock time without a date, used for the daily
// scheduler trigger.
type TimeOfDay struct {
	Hour   int
	Minute int
}

// ParseTimeOfDay parses an "HH:MM" string in 24-hour format.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	var t TimeOfDay
	if _, err := fmt.Sscanf(s, "%d:%d", &t.Hour, &t.Minute); err != nil {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q, expected HH:MM: %w", s, err)
	}
	if t.Hour < 0 || t.Hour > 23 || t.Minute < 0 || t.Minute > 59 {
		return TimeOfDay{}, fmt.Errorf("invalid time of day %q, expected HH:MM", s)
	}
	return t, nil
}
