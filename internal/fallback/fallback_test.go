// Curatarr - AI Recommendation Collections for Media Servers
// Copyright 2026 Curatarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curatarr/curatarr

package fallback

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/curatarr/curatarr/internal/catalog"
	"github.com/curatarr/curatarr/internal/models"
)

func ratingPtr(v float64) *float64 { return &v }

type fixture struct {
	cat    *catalog.Memory
	userID uuid.UUID
}

func newFixture() *fixture {
	cat := catalog.NewMemory()
	userID := uuid.New()
	cat.AddUser(models.User{ID: userID, Name: "alice"})
	return &fixture{cat: cat, userID: userID}
}

// watch marks an item played with the given user data.
func (f *fixture) watch(item models.MediaItem, data models.UserItemData, lastPlayed time.Time) {
	f.cat.AddItem(item)
	data.Played = true
	if data.PlayCount == 0 {
		data.PlayCount = 1
	}
	data.LastPlayed = &lastPlayed
	f.cat.SetUserItemData(f.userID, item.ID, data)
}

func movie(name string, genres []string, communityRating float64, added time.Time) models.MediaItem {
	return models.MediaItem{
		ID:              uuid.New(),
		Name:            name,
		MediaType:       models.MediaTypeMovie,
		Genres:          genres,
		CommunityRating: communityRating,
		DateCreated:     added,
	}
}

func TestGeneralUsesFavoriteGenres(t *testing.T) {
	f := newFixture()
	now := time.Now()

	// Favorite sci-fi history builds the genre profile.
	f.watch(movie("Watched A", []string{"Sci-Fi"}, 8, now), models.UserItemData{IsFavorite: true}, now)
	f.watch(movie("Watched B", []string{"Sci-Fi"}, 8, now), models.UserItemData{Rating: ratingPtr(5)}, now)

	unseen := movie("Unseen Sci-Fi", []string{"Sci-Fi"}, 8.4, now)
	f.cat.AddItem(unseen)
	f.cat.AddItem(movie("Unseen Romance", []string{"Romance"}, 5.0, now))

	engine := NewEngine(f.cat)
	got := engine.General(context.Background(), f.userID, 10)

	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}
	if got[0].ItemID != unseen.ID {
		t.Errorf("expected genre pick, got %+v", got[0])
	}
	if got[0].Reason != "Based on your favorite genres" {
		t.Errorf("unexpected reason %q", got[0].Reason)
	}
	if got[0].Score != 0.84 {
		t.Errorf("expected normalized rating score, got %f", got[0].Score)
	}
}

func TestGeneralBackfillsWithHighlyRated(t *testing.T) {
	f := newFixture()
	now := time.Now()

	// No qualifying history, so no genre profile at all.
	highRated := movie("Acclaimed", []string{"Drama"}, 8.8, now)
	f.cat.AddItem(highRated)
	f.cat.AddItem(movie("Mediocre", []string{"Drama"}, 5.5, now))

	engine := NewEngine(f.cat)
	got := engine.General(context.Background(), f.userID, 10)

	if len(got) != 1 {
		t.Fatalf("expected 1 backfill candidate, got %d", len(got))
	}
	if got[0].ItemID != highRated.ID {
		t.Errorf("expected highly rated pick, got %+v", got[0])
	}
	if got[0].Reason != "Highly rated title you haven't seen yet" {
		t.Errorf("unexpected reason %q", got[0].Reason)
	}
}

func TestGeneralBackfillBestRatedFirst(t *testing.T) {
	f := newFixture()
	now := time.Now()

	// No genre profile; the whole result comes from the rating backfill.
	middle := movie("Middle", []string{"Drama"}, 8.0, now)
	top := movie("Top", []string{"Drama"}, 9.1, now)
	bottom := movie("Bottom", []string{"Drama"}, 7.2, now)
	f.cat.AddItem(middle)
	f.cat.AddItem(top)
	f.cat.AddItem(bottom)

	engine := NewEngine(f.cat)
	got := engine.General(context.Background(), f.userID, 10)

	if len(got) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(got))
	}
	if got[0].ItemID != top.ID || got[1].ItemID != middle.ID || got[2].ItemID != bottom.ID {
		t.Errorf("expected rating-descending order, got %+v", got)
	}
}

func TestGeneralNeverErrors(t *testing.T) {
	f := newFixture()
	engine := NewEngine(f.cat)

	// Empty library, unknown user: still returns without panicking.
	got := engine.General(context.Background(), uuid.New(), 5)
	if len(got) != 0 {
		t.Errorf("expected empty result, got %d", len(got))
	}
}

func TestTrendingReturnsRecentlyAddedUnseen(t *testing.T) {
	f := newFixture()
	now := time.Now()

	older := movie("Older", nil, 7, now.Add(-48*time.Hour))
	newer := movie("Newer", nil, 7, now)
	f.cat.AddItem(older)
	f.cat.AddItem(newer)

	watched := movie("Already Seen", nil, 7, now)
	f.watch(watched, models.UserItemData{}, now)

	engine := NewEngine(f.cat)
	got := engine.Trending(context.Background(), f.userID, 10)

	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
	if got[0].ItemID != newer.ID {
		t.Errorf("expected newest first, got %+v", got[0])
	}
	for _, c := range got {
		if c.Reason != "Trending in your library" {
			t.Errorf("unexpected reason %q", c.Reason)
		}
	}
}

func TestSimilarToFavoritesGenreProfileAndRatingFloor(t *testing.T) {
	f := newFixture()
	now := time.Now()

	// Both a favorite flag and a rating at the floor feed the profile.
	f.watch(movie("Rated Thriller", []string{"Thriller"}, 8, now), models.UserItemData{Rating: ratingPtr(4)}, now)
	f.watch(movie("Flagged Comedy", []string{"Comedy"}, 8, now), models.UserItemData{IsFavorite: true}, now)

	thriller := movie("Unseen Thriller", []string{"Thriller"}, 7.5, now)
	f.cat.AddItem(thriller)
	// Profile genre but community rating below the floor.
	f.cat.AddItem(movie("Panned Comedy", []string{"Comedy"}, 5.0, now))
	// Well rated but outside the profile.
	f.cat.AddItem(movie("Unseen Romance", []string{"Romance"}, 8.0, now))

	engine := NewEngine(f.cat)
	got := engine.SimilarToFavorites(context.Background(), f.userID, 10)

	if len(got) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(got))
	}
	if got[0].ItemID != thriller.ID {
		t.Errorf("expected thriller pick, got %+v", got[0])
	}
	if got[0].Reason != "Similar to your favorites" {
		t.Errorf("unexpected reason %q", got[0].Reason)
	}
}

func TestSimilarToFavoritesTopTwoGenres(t *testing.T) {
	f := newFixture()
	now := time.Now()

	// Three profile genres; only the two most frequent drive the lookup.
	for i := 0; i < 3; i++ {
		f.watch(movie("T", []string{"Thriller"}, 8, now), models.UserItemData{IsFavorite: true}, now)
	}
	for i := 0; i < 2; i++ {
		f.watch(movie("C", []string{"Comedy"}, 8, now), models.UserItemData{IsFavorite: true}, now)
	}
	f.watch(movie("D", []string{"Drama"}, 8, now), models.UserItemData{IsFavorite: true}, now)

	f.cat.AddItem(movie("Unseen Thriller", []string{"Thriller"}, 7, now))
	f.cat.AddItem(movie("Unseen Comedy", []string{"Comedy"}, 7, now))
	drama := movie("Unseen Drama", []string{"Drama"}, 7, now)
	f.cat.AddItem(drama)

	engine := NewEngine(f.cat)
	got := engine.SimilarToFavorites(context.Background(), f.userID, 10)

	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
	for _, c := range got {
		if c.ItemID == drama.ID {
			t.Errorf("expected third genre cut from the lookup, got %+v", got)
		}
	}
}

func TestSimilarToFavoritesDegradesToTrending(t *testing.T) {
	f := newFixture()
	now := time.Now()

	// No strong favorites at all.
	fresh := movie("Fresh Arrival", nil, 7, now)
	f.cat.AddItem(fresh)

	engine := NewEngine(f.cat)
	got := engine.SimilarToFavorites(context.Background(), f.userID, 10)

	if len(got) != 1 {
		t.Fatalf("expected trending degradation, got %d candidates", len(got))
	}
	if got[0].Reason != "Trending in your library" {
		t.Errorf("unexpected reason %q", got[0].Reason)
	}
}

func TestNewReleasesWithinPremiereWindow(t *testing.T) {
	f := newFixture()
	now := time.Now()

	recent := movie("Fresh Premiere", nil, 7, now.Add(-120*24*time.Hour))
	premiere := now.Add(-10 * 24 * time.Hour)
	recent.PremiereDate = &premiere
	f.cat.AddItem(recent)

	stale := movie("Old Premiere", nil, 7, now)
	oldPremiere := now.Add(-200 * 24 * time.Hour)
	stale.PremiereDate = &oldPremiere
	f.cat.AddItem(stale)

	// No premiere date: the add date stands in and is recent enough.
	f.cat.AddItem(movie("Just Added", nil, 7, now.Add(-24*time.Hour)))

	engine := NewEngine(f.cat)
	got := engine.NewReleases(context.Background(), f.userID, 10)

	if len(got) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(got))
	}
	for _, c := range got {
		if c.ItemID == stale.ID {
			t.Errorf("expected old premiere dropped, got %+v", got)
		}
		if c.Reason != "New release in your library" {
			t.Errorf("unexpected reason %q", c.Reason)
		}
	}
}

func TestFavoriteGenresTopFiveMostFrequent(t *testing.T) {
	f := newFixture()
	now := time.Now()

	// Six genres with distinct frequencies; only the top five survive.
	genres := []string{"A", "B", "C", "D", "E", "F"}
	for i, g := range genres {
		for j := 0; j <= i; j++ {
			f.watch(movie(g+"-watch", []string{g}, 7, now), models.UserItemData{IsFavorite: true}, now)
		}
	}

	engine := NewEngine(f.cat)
	got := engine.favoriteGenres(context.Background(), f.userID)

	if len(got) != 5 {
		t.Fatalf("expected 5 profile genres, got %d: %v", len(got), got)
	}
	// F was watched most, A least; A drops off.
	if got[0] != "F" {
		t.Errorf("expected F first, got %v", got)
	}
	for _, g := range got {
		if g == "A" {
			t.Errorf("expected least frequent genre dropped, got %v", got)
		}
	}
}
