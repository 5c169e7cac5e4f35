// Curatarr - AI Recommendation Collections for Media Servers
// Copyright 2026 Curatarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curatarr/curatarr

// Package catalog defines the narrow contracts through which the engine
// consumes the media catalog. The catalog storage engine itself is an
// external collaborator; the engine only looks items up, reads per-user
// playback data, and manages recommendation collections through these
// interfaces. An in-memory implementation backs tests and local runs.
package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/curatarr/curatarr/internal/models"
)

// ErrNotFound is returned when a user, item, or collection does not exist.
// Callers treat it as non-fatal per the engine's error taxonomy.
var ErrNotFound = errors.New("catalog: not found")

// ItemFilter narrows ListUnseen queries.
type ItemFilter struct {
	// Genres limits results to items carrying at least one of these genres.
	Genres []string

	// MinCommunityRating excludes items rated below this value when > 0.
	MinCommunityRating float64

	// SortRecentlyAdded orders results by DateCreated descending.
	// When false, catalog scan order applies (implementation-defined).
	SortRecentlyAdded bool
}

// Catalog is the read-only item and user-data surface the engine consumes.
type Catalog interface {
	// User returns a user by id, or ErrNotFound.
	User(ctx context.Context, id uuid.UUID) (*models.User, error)

	// Users returns all catalog users.
	Users(ctx context.Context) ([]models.User, error)

	// FindByID returns an item by catalog-native id, or ErrNotFound.
	FindByID(ctx context.Context, id uuid.UUID) (*models.MediaItem, error)

	// FindByExternalID returns the first item carrying the given external-id
	// provider tag. Order under duplicate external ids follows catalog scan
	// order and is not deterministic.
	FindByExternalID(ctx context.Context, provider, value string) (*models.MediaItem, error)

	// FindByNameAndType returns items matching the name, filtered by media
	// type when mediaType is non-empty. Name matching semantics are the
	// implementation's; callers enforce exact case-insensitive equality.
	FindByNameAndType(ctx context.Context, name, mediaType string) ([]models.MediaItem, error)

	// ListUnseen returns up to limit items the user has not played.
	// An item is unseen when per-user play data shows not played and play
	// count 0; a user-data lookup failure treats the item as unseen rather
	// than erroring.
	ListUnseen(ctx context.Context, userID uuid.UUID, filter ItemFilter, limit int) ([]models.MediaItem, error)

	// RecentlyWatched returns up to limit items the user played, most
	// recent first.
	RecentlyWatched(ctx context.Context, userID uuid.UUID, limit int) ([]models.MediaItem, error)

	// GetUserItemData returns the user's playback state for an item.
	GetUserItemData(ctx context.Context, userID, itemID uuid.UUID) (*models.UserItemData, error)

	// AllItems returns every item in the catalog (content library sync).
	AllItems(ctx context.Context) ([]models.MediaItem, error)
}

// CollectionStore is the mutation surface for persisted collections.
// The engine never deletes media items through it, only the aggregations.
type CollectionStore interface {
	// CreateCollection persists a new collection and returns its assigned id.
	CreateCollection(ctx context.Context, c *models.Collection) (uuid.UUID, error)

	// UpdateCollection replaces a collection's metadata (overview, modified
	// time). Membership is changed through SetMembers.
	UpdateCollection(ctx context.Context, c *models.Collection) error

	// SetMembers replaces a collection's membership wholesale.
	SetMembers(ctx context.Context, collectionID uuid.UUID, memberIDs []uuid.UUID) error

	// DeleteCollection removes a collection. Member items are untouched.
	DeleteCollection(ctx context.Context, id uuid.UUID) error

	// ListCollectionsByNamePrefix returns the user's collections whose name
	// starts with prefix, in no particular order.
	ListCollectionsByNamePrefix(ctx context.Context, prefix string, userID uuid.UUID) ([]models.Collection, error)
}
