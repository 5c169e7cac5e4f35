// Curatarr - AI Recommendation Collections for Media Servers
// Copyright 2026 Curatarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curatarr/curatarr

// Package collections manages the lifecycle of recommendation
// collections in the library: creation, in-place refresh, retention
// cleanup, and teardown. All managed collections share a name prefix so
// the engine only ever touches its own.
package collections

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/curatarr/curatarr/internal/catalog"
	"github.com/curatarr/curatarr/internal/logging"
	"github.com/curatarr/curatarr/internal/metrics"
	"github.com/curatarr/curatarr/internal/models"
)

// NamePrefix marks every collection the engine owns. Cleanup and
// teardown operate strictly within this namespace.
const NamePrefix = "AI Recommendations: "

// Manager owns recommendation collections for users.
type Manager struct {
	store  catalog.CollectionStore
	logger zerolog.Logger
	now    func() time.Time
}

// NewManager creates a collection manager over the given store.
func NewManager(store catalog.CollectionStore) *Manager {
	return &Manager{
		store:  store,
		logger: logging.With().Str("component", "collections").Logger(),
		now:    time.Now,
	}
}

// CreateOrUpdate persists a collection named prefix+name for the user
// with the given members. An existing collection with the exact same
// name (case-insensitive) is refreshed in place instead of duplicated.
// Empty member lists are a no-op. Returns the collection and whether
// anything was persisted; store failures are logged, never propagated.
func (m *Manager) CreateOrUpdate(ctx context.Context, userID uuid.UUID, name, overview string, memberIDs []uuid.UUID) (*models.Collection, bool) {
	if len(memberIDs) == 0 {
		return nil, false
	}

	fullName := NamePrefix + name

	existing, err := m.store.ListCollectionsByNamePrefix(ctx, NamePrefix, userID)
	if err != nil {
		m.logger.Error().Err(err).Str("collection", fullName).Msg("Failed to list collections")
		return nil, false
	}

	for i := range existing {
		if strings.EqualFold(existing[i].Name, fullName) {
			return m.update(ctx, &existing[i], overview, memberIDs)
		}
	}

	collection := &models.Collection{
		Name:      fullName,
		Overview:  overview,
		OwnerID:   userID,
		MemberIDs: memberIDs,
		Modified:  m.now(),
	}

	id, err := m.store.CreateCollection(ctx, collection)
	if err != nil {
		m.logger.Error().Err(err).Str("collection", fullName).Msg("Failed to create collection")
		return nil, false
	}
	collection.ID = id

	metrics.CollectionsCreated.Inc()
	m.logger.Info().Str("collection", fullName).Int("members", len(memberIDs)).Msg("Created collection")
	return collection, true
}

// update refreshes an existing collection wholesale: membership is
// replaced, the overview rewritten, and the modified time bumped.
func (m *Manager) update(ctx context.Context, existing *models.Collection, overview string, memberIDs []uuid.UUID) (*models.Collection, bool) {
	if err := m.store.SetMembers(ctx, existing.ID, memberIDs); err != nil {
		m.logger.Error().Err(err).Str("collection", existing.Name).Msg("Failed to replace collection members")
		return nil, false
	}

	existing.Overview = overview
	existing.MemberIDs = memberIDs
	existing.Modified = m.now()
	if err := m.store.UpdateCollection(ctx, existing); err != nil {
		m.logger.Error().Err(err).Str("collection", existing.Name).Msg("Failed to update collection metadata")
		return nil, false
	}

	metrics.CollectionsUpdated.Inc()
	m.logger.Info().Str("collection", existing.Name).Int("members", len(memberIDs)).Msg("Refreshed collection")
	return existing, true
}

// Delete removes one collection by id. Media items are never touched,
// only the grouping. Store failures are logged, never propagated.
func (m *Manager) Delete(ctx context.Context, collectionID uuid.UUID) bool {
	if err := m.store.DeleteCollection(ctx, collectionID); err != nil {
		m.logger.Error().Err(err).Str("collection_id", collectionID.String()).Msg("Failed to delete collection")
		return false
	}
	metrics.CollectionsDeleted.Inc()
	return true
}

// Cleanup enforces the retention cap for a user: the keep most recently
// modified managed collections survive, the rest are deleted. Returns
// how many were removed.
func (m *Manager) Cleanup(ctx context.Context, userID uuid.UUID, keep int) int {
	if keep < 0 {
		keep = 0
	}

	owned, err := m.store.ListCollectionsByNamePrefix(ctx, NamePrefix, userID)
	if err != nil {
		m.logger.Error().Err(err).Msg("Cleanup listing failed")
		return 0
	}
	if len(owned) <= keep {
		return 0
	}

	sort.Slice(owned, func(i, j int) bool {
		return owned[i].Modified.After(owned[j].Modified)
	})

	deleted := 0
	for i := keep; i < len(owned); i++ {
		if err := m.store.DeleteCollection(ctx, owned[i].ID); err != nil {
			m.logger.Error().Err(err).Str("collection", owned[i].Name).Msg("Failed to delete collection")
			continue
		}
		metrics.CollectionsDeleted.Inc()
		deleted++
	}

	if deleted > 0 {
		m.logger.Info().Int("deleted", deleted).Int("kept", keep).Msg("Retention cleanup complete")
	}
	return deleted
}

// DeleteAll removes every managed collection for the user. Returns how
// many were removed.
func (m *Manager) DeleteAll(ctx context.Context, userID uuid.UUID) int {
	return m.Cleanup(ctx, userID, 0)
}

// List returns the user's managed collections, most recently modified
// first.
func (m *Manager) List(ctx context.Context, userID uuid.UUID) []models.Collection {
	owned, err := m.store.ListCollectionsByNamePrefix(ctx, NamePrefix, userID)
	if err != nil {
		m.logger.Error().Err(err).Msg("Collection listing failed")
		return nil
	}
	sort.Slice(owned, func(i, j int) bool {
		return owned[i].Modified.After(owned[j].Modified)
	})
	return owned
}
