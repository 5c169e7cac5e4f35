// Curatarr - AI Recommendation Collections for Media Servers
// Copyright 2026 Curatarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curatarr/curatarr

// Package fallback produces heuristic recommendations from library data
// alone, used when the scoring service is unreachable or disabled. The
// engine degrades rather than errors: every strategy returns its best
// effort, down to an empty slice, and never propagates catalog failures.
package fallback

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/curatarr/curatarr/internal/catalog"
	"github.com/curatarr/curatarr/internal/logging"
	"github.com/curatarr/curatarr/internal/metrics"
	"github.com/curatarr/curatarr/internal/models"
)

const (
	// historyWindow is how many recently watched items feed the genre
	// profile.
	historyWindow = 50

	// maxProfileGenres caps the genre profile size.
	maxProfileGenres = 5

	// generalGenres is how many top genres drive the general strategy.
	generalGenres = 3

	// similarGenres is how many top genres drive the similar strategy.
	similarGenres = 2

	// favoriteRatingFloor qualifies a watched item for the genre profile.
	favoriteRatingFloor = 4.0

	// similarCommunityRating is the community rating floor on items the
	// similar strategy surfaces.
	similarCommunityRating = 6.0

	// backfillCommunityRating is the community rating floor for padding
	// out a short general result.
	backfillCommunityRating = 7.0

	// newReleaseWindow bounds how old a premiere can be and still count
	// as a new release.
	newReleaseWindow = 90 * 24 * time.Hour
)

// Engine generates heuristic recommendations from catalog state.
type Engine struct {
	catalog catalog.Catalog
	logger  zerolog.Logger
}

// NewEngine creates a fallback engine over the given catalog.
func NewEngine(cat catalog.Catalog) *Engine {
	return &Engine{
		catalog: cat,
		logger:  logging.With().Str("component", "fallback").Logger(),
	}
}

// General recommends unseen items from the user's top genres, backfilled
// with highly rated unseen items when the genre pool runs short.
func (e *Engine) General(ctx context.Context, userID uuid.UUID, count int) []models.ScoredCandidate {
	metrics.FallbackRecommendations.WithLabelValues("general").Inc()

	genres := e.favoriteGenres(ctx, userID)
	if len(genres) > generalGenres {
		genres = genres[:generalGenres]
	}

	var picks []models.MediaItem
	if len(genres) > 0 {
		items, err := e.catalog.ListUnseen(ctx, userID, catalog.ItemFilter{Genres: genres}, count)
		if err != nil {
			e.logger.Warn().Err(err).Msg("Genre-based lookup failed, falling back to rating backfill")
		} else {
			picks = items
		}
	}

	// Pad out with well-rated unseen titles, best rated first.
	if len(picks) < count {
		items, err := e.catalog.ListUnseen(ctx, userID, catalog.ItemFilter{MinCommunityRating: backfillCommunityRating}, count)
		if err != nil {
			e.logger.Warn().Err(err).Msg("Rating backfill lookup failed")
		} else {
			sort.SliceStable(items, func(i, j int) bool {
				return items[i].CommunityRating > items[j].CommunityRating
			})
			picks = mergeItems(picks, items, count)
		}
	}

	candidates := make([]models.ScoredCandidate, 0, len(picks))
	for i := range picks {
		reason := "Highly rated title you haven't seen yet"
		if hasAnyGenre(&picks[i], genres) {
			reason = "Based on your favorite genres"
		}
		candidates = append(candidates, toCandidate(&picks[i], reason))
	}
	return candidates
}

// Trending recommends recently added items the user has not seen.
func (e *Engine) Trending(ctx context.Context, userID uuid.UUID, count int) []models.ScoredCandidate {
	metrics.FallbackRecommendations.WithLabelValues("trending").Inc()

	items, err := e.catalog.ListUnseen(ctx, userID, catalog.ItemFilter{SortRecentlyAdded: true}, count)
	if err != nil {
		e.logger.Warn().Err(err).Msg("Trending lookup failed")
		return nil
	}

	candidates := make([]models.ScoredCandidate, 0, len(items))
	for i := range items {
		candidates = append(candidates, toCandidate(&items[i], "Trending in your library"))
	}
	return candidates
}

// SimilarToFavorites recommends well-reviewed unseen items sharing the
// user's top favorite genres. Without a genre profile it degrades to
// the trending strategy.
func (e *Engine) SimilarToFavorites(ctx context.Context, userID uuid.UUID, count int) []models.ScoredCandidate {
	metrics.FallbackRecommendations.WithLabelValues("similar").Inc()

	genres := e.favoriteGenres(ctx, userID)
	if len(genres) == 0 {
		return e.Trending(ctx, userID, count)
	}
	if len(genres) > similarGenres {
		genres = genres[:similarGenres]
	}

	items, err := e.catalog.ListUnseen(ctx, userID, catalog.ItemFilter{
		Genres:             genres,
		MinCommunityRating: similarCommunityRating,
	}, count)
	if err != nil {
		e.logger.Warn().Err(err).Msg("Similar lookup failed, degrading to trending")
		return e.Trending(ctx, userID, count)
	}
	if len(items) == 0 {
		return e.Trending(ctx, userID, count)
	}

	candidates := make([]models.ScoredCandidate, 0, len(items))
	for i := range items {
		candidates = append(candidates, toCandidate(&items[i], "Similar to your favorites"))
	}
	return candidates
}

// NewReleases recommends unseen items that premiered recently, newest
// additions first. Items without a premiere date fall back to their
// catalog add date.
func (e *Engine) NewReleases(ctx context.Context, userID uuid.UUID, count int) []models.ScoredCandidate {
	metrics.FallbackRecommendations.WithLabelValues("new_releases").Inc()

	items, err := e.catalog.ListUnseen(ctx, userID, catalog.ItemFilter{SortRecentlyAdded: true}, count)
	if err != nil {
		e.logger.Warn().Err(err).Msg("New releases lookup failed")
		return nil
	}

	cutoff := time.Now().Add(-newReleaseWindow)
	candidates := make([]models.ScoredCandidate, 0, len(items))
	for i := range items {
		released := items[i].DateCreated
		if items[i].PremiereDate != nil {
			released = *items[i].PremiereDate
		}
		if released.Before(cutoff) {
			continue
		}
		candidates = append(candidates, toCandidate(&items[i], "New release in your library"))
	}
	return candidates
}

// favoriteGenres tallies genres across the user's recent watch history,
// counting only favorites and items the user rated at or above the
// favorite floor. Returns up to maxProfileGenres genres, most frequent
// first.
func (e *Engine) favoriteGenres(ctx context.Context, userID uuid.UUID) []string {
	watched, err := e.catalog.RecentlyWatched(ctx, userID, historyWindow)
	if err != nil {
		e.logger.Warn().Err(err).Msg("Watch history lookup failed, empty genre profile")
		return nil
	}

	tally := make(map[string]int)
	for i := range watched {
		data, err := e.catalog.GetUserItemData(ctx, userID, watched[i].ID)
		if err != nil {
			continue
		}
		qualifies := data.IsFavorite
		if data.Rating != nil && *data.Rating >= favoriteRatingFloor {
			qualifies = true
		}
		if !qualifies {
			continue
		}
		for _, g := range watched[i].Genres {
			tally[g]++
		}
	}

	genres := make([]string, 0, len(tally))
	for g := range tally {
		genres = append(genres, g)
	}
	sort.Slice(genres, func(i, j int) bool {
		if tally[genres[i]] != tally[genres[j]] {
			return tally[genres[i]] > tally[genres[j]]
		}
		return genres[i] < genres[j]
	})

	if len(genres) > maxProfileGenres {
		genres = genres[:maxProfileGenres]
	}
	return genres
}

// toCandidate shapes a library item as a scored candidate. The score is
// the normalized community rating so better-reviewed titles sort first;
// unrated items sit at the midpoint.
func toCandidate(item *models.MediaItem, reason string) models.ScoredCandidate {
	score := 0.5
	if item.CommunityRating > 0 {
		score = item.CommunityRating / 10
	}
	return models.ScoredCandidate{
		ItemID:    item.ID,
		ItemName:  item.Name,
		MediaType: item.MediaType,
		Score:     score,
		Reason:    reason,
	}
}

func hasAnyGenre(item *models.MediaItem, genres []string) bool {
	for _, g := range genres {
		for _, ig := range item.Genres {
			if g == ig {
				return true
			}
		}
	}
	return false
}

// mergeItems appends extras to base, skipping duplicates, capped at limit.
func mergeItems(base, extras []models.MediaItem, limit int) []models.MediaItem {
	seen := make(map[uuid.UUID]struct{}, len(base))
	for i := range base {
		seen[base[i].ID] = struct{}{}
	}
	for i := range extras {
		if len(base) >= limit {
			break
		}
		if _, dup := seen[extras[i].ID]; dup {
			continue
		}
		seen[extras[i].ID] = struct{}{}
		base = append(base, extras[i])
	}
	if len(base) > limit {
		base = base[:limit]
	}
	return base
}
