// Curatarr - AI Recommendation Collections for Media Servers
// Copyright 2026 Curatarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curatarr/curatarr

// Package sync pushes library state to the scoring service: per-user
// profiles with watch history and ratings, and the content library
// metadata. A full sync succeeds when at least one leg lands; the last
// successful sync time is only stamped on success.
package sync

import (
	"context"
	"fmt"
	stdsync "sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/curatarr/curatarr/internal/catalog"
	"github.com/curatarr/curatarr/internal/config"
	"github.com/curatarr/curatarr/internal/events"
	"github.com/curatarr/curatarr/internal/logging"
	"github.com/curatarr/curatarr/internal/metrics"
	"github.com/curatarr/curatarr/internal/models"
	"github.com/curatarr/curatarr/internal/scoring"
)

// StateStore persists the last successful sync time.
type StateStore interface {
	LastSyncTime() (time.Time, error)
	SetLastSyncTime(t time.Time) error
}

// Manager runs user and content synchronization.
type Manager struct {
	catalog catalog.Catalog
	scoring scoring.Client
	emitter *events.Emitter
	state   StateStore
	cfg     config.SyncConfig
	logger  zerolog.Logger
	now     func() time.Time
}

// NewManager wires a sync manager.
func NewManager(cat catalog.Catalog, client scoring.Client, emitter *events.Emitter, state StateStore, cfg config.SyncConfig) *Manager {
	return &Manager{
		catalog: cat,
		scoring: client,
		emitter: emitter,
		state:   state,
		cfg:     cfg,
		logger:  logging.With().Str("component", "sync").Logger(),
		now:     time.Now,
	}
}

// SyncUser builds and pushes one user's sync record: profile, watch
// history capped at the configured limit (most recent first), and
// explicit ratings.
func (m *Manager) SyncUser(ctx context.Context, userID uuid.UUID) error {
	start := m.now()
	defer func() {
		metrics.SyncDuration.WithLabelValues("user").Observe(time.Since(start).Seconds())
	}()

	user, err := m.catalog.User(ctx, userID)
	if err != nil {
		metrics.SyncUsersTotal.WithLabelValues("failure").Inc()
		return fmt.Errorf("sync user %s: %w", userID, err)
	}

	record, err := m.buildRecord(ctx, user)
	if err != nil {
		metrics.SyncUsersTotal.WithLabelValues("failure").Inc()
		return fmt.Errorf("build sync record for %s: %w", user.Name, err)
	}

	if err := m.scoring.SyncUser(ctx, record); err != nil {
		metrics.SyncUsersTotal.WithLabelValues("failure").Inc()
		return fmt.Errorf("push sync record for %s: %w", user.Name, err)
	}

	metrics.SyncUsersTotal.WithLabelValues("success").Inc()
	if err := m.emitter.EmitUserSync(ctx, record); err != nil {
		m.logger.Warn().Err(err).Str("user", user.Name).Msg("Failed to emit user sync event")
	}

	m.logger.Info().
		Str("user", user.Name).
		Int("history", len(record.WatchHistory)).
		Int("ratings", len(record.Ratings)).
		Msg("User sync complete")
	return nil
}

// buildRecord assembles the sync payload from catalog state.
func (m *Manager) buildRecord(ctx context.Context, user *models.User) (*models.UserSyncRecord, error) {
	watched, err := m.catalog.RecentlyWatched(ctx, user.ID, m.cfg.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("watch history: %w", err)
	}

	record := &models.UserSyncRecord{
		UserID:       user.ID,
		UserName:     user.Name,
		WatchHistory: make([]models.WatchHistoryEntry, 0, len(watched)),
		Ratings:      []models.RatingEntry{},
		SyncedAt:     m.now().UTC(),
	}

	for i := range watched {
		item := &watched[i]
		entry := models.WatchHistoryEntry{
			ItemID:    item.ID,
			ItemName:  item.Name,
			MediaType: item.MediaType,
			TMDBID:    tmdbID(item),
		}

		data, err := m.catalog.GetUserItemData(ctx, user.ID, item.ID)
		if err == nil {
			entry.LastPlayed = data.LastPlayed
			entry.PositionTicks = data.PositionTicks
			entry.PlayCount = data.PlayCount
			entry.IsFavorite = data.IsFavorite
			entry.Rating = data.Rating

			if data.Rating != nil {
				ratedAt := record.SyncedAt
				if data.LastPlayed != nil {
					ratedAt = *data.LastPlayed
				}
				record.Ratings = append(record.Ratings, models.RatingEntry{
					ItemID:  item.ID,
					Rating:  *data.Rating,
					RatedAt: ratedAt,
				})
			}
		}

		record.WatchHistory = append(record.WatchHistory, entry)
	}

	return record, nil
}

// SyncAllUsers syncs every catalog user. Succeeds when at least one user
// syncs; per-user failures are logged and skipped.
func (m *Manager) SyncAllUsers(ctx context.Context) (int, error) {
	start := m.now()
	defer func() {
		metrics.SyncDuration.WithLabelValues("all_users").Observe(time.Since(start).Seconds())
	}()

	users, err := m.catalog.Users(ctx)
	if err != nil {
		return 0, fmt.Errorf("list users: %w", err)
	}

	synced := 0
	var lastErr error
	for i := range users {
		if ctx.Err() != nil {
			break
		}
		if err := m.SyncUser(ctx, users[i].ID); err != nil {
			lastErr = err
			m.logger.Error().Err(err).Str("user", users[i].Name).Msg("User sync failed")
			continue
		}
		synced++
	}

	if synced == 0 && lastErr != nil {
		return 0, fmt.Errorf("all user syncs failed: %w", lastErr)
	}
	return synced, nil
}

// SyncContentLibrary pushes the content library's metadata item by
// item. Individual push failures are logged and skipped; the leg
// succeeds when at least one item lands.
func (m *Manager) SyncContentLibrary(ctx context.Context) (int, error) {
	start := m.now()
	defer func() {
		metrics.SyncDuration.WithLabelValues("content").Observe(time.Since(start).Seconds())
	}()

	items, err := m.catalog.AllItems(ctx)
	if err != nil {
		return 0, fmt.Errorf("list items: %w", err)
	}
	if len(items) == 0 {
		return 0, nil
	}

	synced := 0
	var lastErr error
	for i := range items {
		if ctx.Err() != nil {
			break
		}
		if err := m.scoring.SyncContent(ctx, []models.ContentMetadata{toMetadata(&items[i])}); err != nil {
			lastErr = err
			m.logger.Warn().Err(err).Str("item", items[i].Name).Msg("Content push failed, skipping item")
			continue
		}
		synced++
	}

	if synced == 0 {
		if lastErr == nil {
			lastErr = ctx.Err()
		}
		return 0, fmt.Errorf("content sync failed for all %d items: %w", len(items), lastErr)
	}

	metrics.SyncContentItems.Add(float64(synced))
	if err := m.emitter.EmitContentSync(ctx, synced); err != nil {
		m.logger.Warn().Err(err).Msg("Failed to emit content sync event")
	}

	m.logger.Info().Int("items", synced).Int("skipped", len(items)-synced).Msg("Content library sync complete")
	return synced, nil
}

// Result summarizes a full sync pass for callers and the API layer.
type Result struct {
	UsersSynced  int       `json:"usersSynced"`
	ItemsSynced  int       `json:"itemsSynced"`
	Message      string    `json:"message"`
	LastSyncTime time.Time `json:"lastSyncTime"`
}

// TriggerSync runs user and content sync concurrently. The pass succeeds
// when either leg does, and only then is the last sync time stamped.
func (m *Manager) TriggerSync(ctx context.Context) (*Result, error) {
	start := m.now()
	defer func() {
		metrics.SyncDuration.WithLabelValues("full").Observe(time.Since(start).Seconds())
	}()

	var (
		wg       stdsync.WaitGroup
		users    int
		usersErr error
		items    int
		itemsErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		users, usersErr = m.SyncAllUsers(ctx)
	}()
	go func() {
		defer wg.Done()
		items, itemsErr = m.SyncContentLibrary(ctx)
	}()
	wg.Wait()

	if usersErr != nil && itemsErr != nil {
		return nil, fmt.Errorf("sync failed on both legs: users: %v; content: %w", usersErr, itemsErr)
	}

	stamped := m.now().UTC()
	if err := m.state.SetLastSyncTime(stamped); err != nil {
		m.logger.Error().Err(err).Msg("Failed to persist last sync time")
	}

	result := &Result{
		UsersSynced:  users,
		ItemsSynced:  items,
		LastSyncTime: stamped,
	}
	switch {
	case usersErr != nil:
		result.Message = fmt.Sprintf("Synced %d library items; user sync failed: %v", items, usersErr)
	case itemsErr != nil:
		result.Message = fmt.Sprintf("Synced %d users; content sync failed: %v", users, itemsErr)
	default:
		result.Message = fmt.Sprintf("Synced %d users and %d library items", users, items)
	}

	m.logger.Info().Str("result", result.Message).Msg("Full sync complete")
	return result, nil
}

// LastSyncTime returns the persisted last successful sync time.
func (m *Manager) LastSyncTime() (time.Time, error) {
	return m.state.LastSyncTime()
}

func tmdbID(item *models.MediaItem) *int {
	raw, ok := item.TMDBID()
	if !ok {
		return nil
	}
	var id int
	if _, err := fmt.Sscanf(raw, "%d", &id); err != nil {
		return nil
	}
	return &id
}

func toMetadata(item *models.MediaItem) models.ContentMetadata {
	return models.ContentMetadata{
		ItemID:          item.ID,
		Name:            item.Name,
		MediaType:       item.MediaType,
		TMDBID:          tmdbID(item),
		IMDBID:          item.ProviderIDs["Imdb"],
		PremiereDate:    item.PremiereDate,
		Genres:          item.Genres,
		Tags:            item.Tags,
		Studios:         item.Studios,
		Overview:        item.Overview,
		CommunityRating: item.CommunityRating,
		OfficialRating:  item.OfficialRating,
		RunTimeTicks:    item.RunTimeTicks,
		DateCreated:     item.DateCreated,
		DateModified:    item.DateModified,
	}
}
