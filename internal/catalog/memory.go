// Curatarr - AI Recommendation Collections for Media Servers
// Copyright 2026 Curatarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curatarr/curatarr

package catalog

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/curatarr/curatarr/internal/models"
)

// Memory is an in-memory Catalog and CollectionStore. It backs the test
// suites and local development runs; production deployments implement the
// interfaces against the real catalog storage engine.
// Safe for concurrent use.
type Memory struct {
	mu          sync.RWMutex
	users       map[uuid.UUID]models.User
	items       []models.MediaItem
	userData    map[uuid.UUID]map[uuid.UUID]models.UserItemData
	collections map[uuid.UUID]models.Collection
}

var (
	_ Catalog         = (*Memory)(nil)
	_ CollectionStore = (*Memory)(nil)
)

// NewMemory creates an empty in-memory catalog.
func NewMemory() *Memory {
	return &Memory{
		users:       make(map[uuid.UUID]models.User),
		userData:    make(map[uuid.UUID]map[uuid.UUID]models.UserItemData),
		collections: make(map[uuid.UUID]models.Collection),
	}
}

// AddUser registers a user.
func (m *Memory) AddUser(u models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

// AddItem appends an item in scan order.
func (m *Memory) AddItem(item models.MediaItem) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = append(m.items, item)
}

// SetUserItemData records per-user playback state for an item.
func (m *Memory) SetUserItemData(userID, itemID uuid.UUID, data models.UserItemData) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.userData[userID] == nil {
		m.userData[userID] = make(map[uuid.UUID]models.UserItemData)
	}
	m.userData[userID][itemID] = data
}

func (m *Memory) User(_ context.Context, id uuid.UUID) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *Memory) Users(_ context.Context) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	users := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Name < users[j].Name })
	return users, nil
}

func (m *Memory) FindByID(_ context.Context, id uuid.UUID) (*models.MediaItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := range m.items {
		if m.items[i].ID == id {
			item := m.items[i]
			return &item, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) FindByExternalID(_ context.Context, provider, value string) (*models.MediaItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := range m.items {
		if m.items[i].ProviderIDs != nil && m.items[i].ProviderIDs[provider] == value {
			item := m.items[i]
			return &item, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) FindByNameAndType(_ context.Context, name, mediaType string) ([]models.MediaItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var matches []models.MediaItem
	for i := range m.items {
		if mediaType != "" && !strings.EqualFold(m.items[i].MediaType, mediaType) {
			continue
		}
		if strings.EqualFold(m.items[i].Name, name) {
			matches = append(matches, m.items[i])
		}
	}
	return matches, nil
}

func (m *Memory) ListUnseen(_ context.Context, userID uuid.UUID, filter ItemFilter, limit int) ([]models.MediaItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	candidates := make([]models.MediaItem, 0, len(m.items))
	for i := range m.items {
		item := m.items[i]
		if !m.matchesFilterLocked(&item, filter) {
			continue
		}
		if m.seenLocked(userID, item.ID) {
			continue
		}
		candidates = append(candidates, item)
	}

	if filter.SortRecentlyAdded {
		sort.Slice(candidates, func(i, j int) bool {
			return candidates[i].DateCreated.After(candidates[j].DateCreated)
		})
	}

	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

func (m *Memory) matchesFilterLocked(item *models.MediaItem, filter ItemFilter) bool {
	if filter.MinCommunityRating > 0 && item.CommunityRating < filter.MinCommunityRating {
		return false
	}
	if len(filter.Genres) == 0 {
		return true
	}
	for _, want := range filter.Genres {
		for _, g := range item.Genres {
			if strings.EqualFold(g, want) {
				return true
			}
		}
	}
	return false
}

// seenLocked reports whether the user has played the item. Missing user
// data means unseen (fails open).
func (m *Memory) seenLocked(userID, itemID uuid.UUID) bool {
	data, ok := m.userData[userID][itemID]
	if !ok {
		return false
	}
	return data.Played || data.PlayCount > 0
}

func (m *Memory) RecentlyWatched(_ context.Context, userID uuid.UUID, limit int) ([]models.MediaItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	type watched struct {
		item models.MediaItem
		data models.UserItemData
	}
	var result []watched
	for i := range m.items {
		data, ok := m.userData[userID][m.items[i].ID]
		if !ok || (!data.Played && data.PlayCount == 0) {
			continue
		}
		result = append(result, watched{item: m.items[i], data: data})
	}
	sort.Slice(result, func(i, j int) bool {
		li, lj := result[i].data.LastPlayed, result[j].data.LastPlayed
		switch {
		case li == nil:
			return false
		case lj == nil:
			return true
		default:
			return li.After(*lj)
		}
	})

	items := make([]models.MediaItem, 0, len(result))
	for _, w := range result {
		items = append(items, w.item)
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (m *Memory) GetUserItemData(_ context.Context, userID, itemID uuid.UUID) (*models.UserItemData, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.userData[userID][itemID]
	if !ok {
		return nil, ErrNotFound
	}
	return &data, nil
}

func (m *Memory) AllItems(_ context.Context) ([]models.MediaItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	items := make([]models.MediaItem, len(m.items))
	copy(items, m.items)
	return items, nil
}

func (m *Memory) CreateCollection(_ context.Context, c *models.Collection) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := c.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	stored := *c
	stored.ID = id
	stored.MemberIDs = append([]uuid.UUID(nil), c.MemberIDs...)
	m.collections[id] = stored
	return id, nil
}

func (m *Memory) UpdateCollection(_ context.Context, c *models.Collection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.collections[c.ID]
	if !ok {
		return ErrNotFound
	}
	existing.Name = c.Name
	existing.Overview = c.Overview
	existing.Modified = c.Modified
	m.collections[c.ID] = existing
	return nil
}

func (m *Memory) SetMembers(_ context.Context, collectionID uuid.UUID, memberIDs []uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.collections[collectionID]
	if !ok {
		return ErrNotFound
	}
	existing.MemberIDs = append([]uuid.UUID(nil), memberIDs...)
	m.collections[collectionID] = existing
	return nil
}

func (m *Memory) DeleteCollection(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[id]; !ok {
		return ErrNotFound
	}
	delete(m.collections, id)
	return nil
}

func (m *Memory) ListCollectionsByNamePrefix(_ context.Context, prefix string, userID uuid.UUID) ([]models.Collection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var result []models.Collection
	for _, c := range m.collections {
		if c.OwnerID == userID && strings.HasPrefix(c.Name, prefix) {
			result = append(result, c)
		}
	}
	return result, nil
}
