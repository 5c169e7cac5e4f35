// Curatarr - AI Recommendation Collections for Media Servers
// Copyright 2026 Curatarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curatarr/curatarr

// Package scheduler triggers the daily generation task at a configured
// wall-clock time, with an optional delayed run shortly after startup.
package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/curatarr/curatarr/internal/config"
	"github.com/curatarr/curatarr/internal/logging"
	"github.com/curatarr/curatarr/internal/metrics"
)

// Task is the work the scheduler triggers. Errors are logged, never
// retried within the same window; the next trigger fires regardless.
type Task func(ctx context.Context) error

// Scheduler fires a task daily at a fixed time of day.
type Scheduler struct {
	cfg    config.SchedulerConfig
	task   Task
	logger zerolog.Logger
	now    func() time.Time
}

// New creates a scheduler for the given task.
func New(cfg config.SchedulerConfig, task Task) *Scheduler {
	return &Scheduler{
		cfg:    cfg,
		task:   task,
		logger: logging.With().Str("component", "scheduler").Logger(),
		now:    time.Now,
	}
}

// Run blocks until ctx is cancelled, firing the task at each daily
// trigger. A startup run, when enabled, fires once after the configured
// delay. Cancellation mid-task lets the task observe ctx and wind down;
// work already completed is preserved.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.cfg.Enabled {
		s.logger.Info().Msg("Scheduler disabled")
		<-ctx.Done()
		return ctx.Err()
	}

	timeOfDay, err := config.ParseTimeOfDay(s.cfg.TimeOfDay)
	if err != nil {
		return err
	}

	if s.cfg.StartupRun {
		select {
		case <-time.After(s.cfg.StartupDelay):
			s.fire(ctx, "startup")
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	for {
		wait := s.untilNext(timeOfDay)
		s.logger.Debug().Dur("wait", wait).Msg("Sleeping until next daily run")

		select {
		case <-time.After(wait):
			s.fire(ctx, "daily")
		case <-ctx.Done():
			s.logger.Info().Msg("Scheduler stopping")
			return ctx.Err()
		}
	}
}

// fire runs the task once, logging the outcome.
func (s *Scheduler) fire(ctx context.Context, trigger string) {
	if ctx.Err() != nil {
		return
	}

	metrics.ScheduledRuns.WithLabelValues(trigger).Inc()
	s.logger.Info().Str("trigger", trigger).Msg("Scheduled run starting")

	start := s.now()
	if err := s.task(ctx); err != nil {
		s.logger.Error().Err(err).Str("trigger", trigger).Msg("Scheduled run failed")
		return
	}
	s.logger.Info().Str("trigger", trigger).Dur("elapsed", s.now().Sub(start)).Msg("Scheduled run complete")
}

// untilNext computes the wait until the next occurrence of the daily
// trigger time. A trigger time already past today schedules for
// tomorrow.
func (s *Scheduler) untilNext(t config.TimeOfDay) time.Duration {
	now := s.now()
	next := time.Date(now.Year(), now.Month(), now.Day(), t.Hour, t.Minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}
