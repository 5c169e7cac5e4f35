// Curatarr - AI Recommendation Collections for Media Servers
// Copyright 2026 Curatarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curatarr/curatarr

// Package models defines the domain types shared across the engine:
// scored candidates from the scoring service, catalog items and user
// playback data, persisted collections, sync records, and watch events.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Media types recognized by the engine. The catalog may carry more;
// these are the ones candidate resolution filters on.
const (
	MediaTypeMovie  = "movie"
	MediaTypeSeries = "series"
)

// ProviderTMDB is the external-id provider tag used for candidate resolution.
const ProviderTMDB = "Tmdb"

// ScoredCandidate is one recommendation produced by the scoring service.
// Candidates are identified inconsistently: by catalog-native id, by
// external catalog id, or by free-text name and type. Immutable once
// received.
type ScoredCandidate struct {
	ItemID    uuid.UUID `json:"itemId"`
	ItemName  string    `json:"itemName"`
	MediaType string    `json:"itemType"`
	TMDBID    *int      `json:"tmdbId,omitempty"`
	Score     float64   `json:"score"`
	Reason    string    `json:"reason"`
	Tags      []string  `json:"tags,omitempty"`
}

// ResolvedItem is a candidate successfully resolved against the catalog.
type ResolvedItem struct {
	ItemID    uuid.UUID `json:"itemId"`
	Name      string    `json:"name"`
	MediaType string    `json:"mediaType"`
}

// ResolvedCandidate pairs a scored candidate with the library item it
// resolved to, so classification and grouping can run over items known
// to exist in the catalog.
type ResolvedCandidate struct {
	Candidate ScoredCandidate `json:"candidate"`
	Item      ResolvedItem    `json:"item"`
}

// User is a catalog user.
type User struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// MediaItem is a catalog item as the engine sees it. The catalog storage
// engine owns the full record; this carries only the fields resolution,
// fallback heuristics, and content sync read.
type MediaItem struct {
	ID              uuid.UUID         `json:"id"`
	Name            string            `json:"name"`
	MediaType       string            `json:"mediaType"`
	Genres          []string          `json:"genres,omitempty"`
	Tags            []string          `json:"tags,omitempty"`
	Studios         []string          `json:"studios,omitempty"`
	Overview        string            `json:"overview,omitempty"`
	ProviderIDs     map[string]string `json:"providerIds,omitempty"`
	CommunityRating float64           `json:"communityRating,omitempty"`
	OfficialRating  string            `json:"officialRating,omitempty"`
	PremiereDate    *time.Time        `json:"premiereDate,omitempty"`
	RunTimeTicks    int64             `json:"runTimeTicks,omitempty"`
	DateCreated     time.Time         `json:"dateCreated"`
	DateModified    time.Time         `json:"dateModified"`
}

// TMDBID returns the item's TMDB provider id, if tagged.
func (m *MediaItem) TMDBID() (string, bool) {
	if m.ProviderIDs == nil {
		return "", false
	}
	id, ok := m.ProviderIDs[ProviderTMDB]
	return id, ok
}

// UserItemData is the per-user playback state the catalog tracks for an item.
type UserItemData struct {
	Played        bool       `json:"played"`
	PlayCount     int        `json:"playCount"`
	IsFavorite    bool       `json:"isFavorite"`
	Rating        *float64   `json:"rating,omitempty"`
	PositionTicks int64      `json:"positionTicks,omitempty"`
	LastPlayed    *time.Time `json:"lastPlayed,omitempty"`
}

// Collection is a persisted item grouping owned by the catalog store.
// The engine creates, updates, and deletes recommendation collections
// through the lifecycle manager only.
type Collection struct {
	ID        uuid.UUID   `json:"id"`
	Name      string      `json:"name"`
	Overview  string      `json:"overview,omitempty"`
	OwnerID   uuid.UUID   `json:"ownerId"`
	MemberIDs []uuid.UUID `json:"memberIds,omitempty"`
	Modified  time.Time   `json:"modified"`
}

// WatchHistoryEntry is one watched item in a user sync record.
type WatchHistoryEntry struct {
	ItemID        uuid.UUID  `json:"itemId"`
	ItemName      string     `json:"itemName"`
	MediaType     string     `json:"itemType"`
	TMDBID        *int       `json:"tmdbId,omitempty"`
	LastPlayed    *time.Time `json:"lastPlayedDate,omitempty"`
	PositionTicks int64      `json:"playbackPositionTicks,omitempty"`
	PlayCount     int        `json:"playCount"`
	IsFavorite    bool       `json:"isFavorite"`
	Rating        *float64   `json:"userRating,omitempty"`
}

// RatingEntry is one explicit user rating in a user sync record.
type RatingEntry struct {
	ItemID  uuid.UUID `json:"itemId"`
	Rating  float64   `json:"rating"`
	RatedAt time.Time `json:"ratedAt"`
}

// UserSyncRecord is the payload sent to the scoring service per user.
// Transient: built per sync pass, sent once, not retained by the engine.
type UserSyncRecord struct {
	UserID       uuid.UUID           `json:"userId"`
	UserName     string              `json:"userName"`
	WatchHistory []WatchHistoryEntry `json:"watchHistory"`
	Ratings      []RatingEntry       `json:"ratings"`
	SyncedAt     time.Time           `json:"lastSyncTime"`
}

// ContentMetadata is one catalog item's metadata as sent to the scoring
// service during content library sync.
type ContentMetadata struct {
	ItemID          uuid.UUID  `json:"itemId"`
	Name            string     `json:"name"`
	MediaType       string     `json:"itemType"`
	TMDBID          *int       `json:"tmdbId,omitempty"`
	IMDBID          string     `json:"imdbId,omitempty"`
	PremiereDate    *time.Time `json:"premiereDate,omitempty"`
	Genres          []string   `json:"genres"`
	Tags            []string   `json:"tags"`
	Studios         []string   `json:"studios"`
	Overview        string     `json:"overview,omitempty"`
	CommunityRating float64    `json:"communityRating,omitempty"`
	OfficialRating  string     `json:"officialRating,omitempty"`
	RunTimeTicks    int64      `json:"runTimeTicks,omitempty"`
	DateCreated     time.Time  `json:"dateCreated"`
	DateModified    time.Time  `json:"dateModified"`
}

// Watch event types emitted on session activity.
const (
	WatchEventPlayStart = "play_start"
	WatchEventPlayStop  = "play_stop"
	WatchEventPause     = "pause"
	WatchEventResume    = "resume"
	WatchEventProgress  = "progress"
)

// WatchEvent is a user-interaction event created on every session event
// and delivered fire-and-forget through the dual-sink emitter.
type WatchEvent struct {
	UserID        uuid.UUID `json:"userId"`
	ItemID        uuid.UUID `json:"itemId"`
	EventType     string    `json:"eventType"`
	Timestamp     time.Time `json:"timestamp"`
	PositionTicks int64     `json:"playbackPositionTicks,omitempty"`
	DeviceID      string    `json:"deviceId,omitempty"`
	DeviceName    string    `json:"deviceName,omitempty"`
	ClientName    string    `json:"clientName,omitempty"`
}
