// Curatarr - AI Recommendation Collections for Media Servers
// Copyright 2026 Curatarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curatarr/curatarr

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in
// order of priority. The first file found is used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/curatarr/config.yaml",
	"/etc/curatarr/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all default values. These are
// applied first, then overridden by the config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Scoring: ScoringConfig{
			URL:     "",
			APIKey:  "",
			Timeout: 30 * time.Second,
		},
		Bus: BusConfig{
			Enabled:       false,
			URL:           "nats://127.0.0.1:4222",
			Topic:         "curatarr.events",
			ReconnectWait: 2 * time.Second,
			MaxReconnects: -1, // Retry forever
			AckTimeout:    5 * time.Second,
		},
		Engine: EngineConfig{
			AutoCreateCollections: true,
			MaxCollections:        5,
			FallbackOnly:          false,
			RecommendationCount:   50,
		},
		Sync: SyncConfig{
			HistoryLimit: 500,
		},
		Scheduler: SchedulerConfig{
			Enabled:      true,
			TimeOfDay:    "03:00",
			StartupRun:   true,
			StartupDelay: 30 * time.Second,
		},
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8787,
			Timeout: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		StatePath: "/data/curatarr-state.json",
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults: built-in values
//  2. Config file: optional YAML file, if present
//  3. Environment variables: override any setting
//
// Precedence is ENV > file > defaults. The loaded configuration is
// validated before being returned.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults from struct
	defaults := defaultConfig()
	if err := k.Load(structs.Provider(defaults, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: config file (optional)
	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables (highest priority)
	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile searches for a config file in the default paths. Returns
// the first file found, or empty string if none exists.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// envTransformFunc maps environment variable names to koanf config paths.
//
// Examples:
//   - SCORING_URL -> scoring.url
//   - SCORING_API_KEY -> scoring.api_key
//   - MAX_COLLECTIONS -> engine.max_collections
//   - SYNC_HISTORY_LIMIT -> sync.history_limit
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Scoring service
		"scoring_url":     "scoring.url",
		"scoring_api_key": "scoring.api_key",
		"scoring_timeout": "scoring.timeout",

		// Event bus
		"bus_enabled":        "bus.enabled",
		"bus_url":            "bus.url",
		"bus_topic":          "bus.topic",
		"bus_reconnect_wait": "bus.reconnect_wait",
		"bus_max_reconnects": "bus.max_reconnects",
		"bus_ack_timeout":    "bus.ack_timeout",

		// Engine behavior
		"auto_create_collections": "engine.auto_create_collections",
		"max_collections":         "engine.max_collections",
		"fallback_only":           "engine.fallback_only",
		"recommendation_count":    "engine.recommendation_count",

		// Sync
		"sync_history_limit": "sync.history_limit",

		// Scheduler
		"scheduler_enabled":       "scheduler.enabled",
		"scheduler_time_of_day":   "scheduler.time_of_day",
		"scheduler_startup_run":   "scheduler.startup_run",
		"scheduler_startup_delay": "scheduler.startup_delay",

		// HTTP server
		"http_host":    "server.host",
		"http_port":    "server.port",
		"http_timeout": "server.timeout",

		// Logging
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",

		// State persistence
		"state_path": "state_path",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	// Unknown variables are ignored so unrelated environment noise never
	// collides with config paths.
	return ""
}
