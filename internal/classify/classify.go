// Curatarr - AI Recommendation Collections for Media Servers
// Copyright 2026 Curatarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curatarr/curatarr

// Package classify assigns recommendation candidates to display
// categories and groups them into collection-sized buckets.
package classify

import (
	"sort"
	"strings"
	"time"

	"github.com/curatarr/curatarr/internal/models"
)

// Category is a recommendation display category. Candidates are bucketed
// by the first matching keyword rule; ForYou is the catch-all.
type Category string

const (
	CategoryForYou         Category = "ForYou"
	CategorySimilarContent Category = "SimilarContent"
	CategoryGenre          Category = "GenreRecommendations"
	CategoryCastCrew       Category = "CastCrew"
	CategoryTrending       Category = "Trending"
	CategoryNewReleases    Category = "NewReleases"
)

// categoryRule maps reason keywords to a category. Rules are evaluated
// in order and the first hit wins, so more specific keywords come first.
type categoryRule struct {
	keywords []string
	category Category
}

var categoryRules = []categoryRule{
	{[]string{"similar", "like"}, CategorySimilarContent},
	{[]string{"genre"}, CategoryGenre},
	{[]string{"actor", "director"}, CategoryCastCrew},
	{[]string{"trending", "popular"}, CategoryTrending},
	{[]string{"recent", "new"}, CategoryNewReleases},
}

// Categorize maps a candidate's reason text and first tag to a
// category. Matching is case-insensitive substring search over both; an
// empty or unmatched pair falls through to ForYou.
func Categorize(reason string, tags []string) Category {
	text := strings.ToLower(reason)
	if len(tags) > 0 {
		text += " " + strings.ToLower(tags[0])
	}
	for _, rule := range categoryRules {
		for _, kw := range rule.keywords {
			if strings.Contains(text, kw) {
				return rule.category
			}
		}
	}
	return CategoryForYou
}

// displayNames maps categories to user-facing collection titles.
var displayNames = map[Category]string{
	CategorySimilarContent: "More Like Your Favorites",
	CategoryGenre:          "Discover New Genres",
	CategoryCastCrew:       "From Your Favorite Creators",
	CategoryTrending:       "What's Trending",
	CategoryNewReleases:    "Fresh Picks",
	CategoryForYou:         "Recommended for You",
}

// DisplayName returns the user-facing title for a category. Unknown
// categories share the ForYou title.
func (c Category) DisplayName() string {
	if name, ok := displayNames[c]; ok {
		return name
	}
	return displayNames[CategoryForYou]
}

// MinGroupSize is the smallest resolved-member count that justifies its
// own collection. Thinner categories are not worth surfacing.
const MinGroupSize = 3

// Group is a category bucket of resolved candidates large enough to
// become a collection. Only candidates that resolved to library items
// are grouped, so membership counts are real.
type Group struct {
	Category Category
	Members  []models.ResolvedCandidate
}

// MeanScore is the average member score, used to order groups.
func (g *Group) MeanScore() float64 {
	if len(g.Members) == 0 {
		return 0
	}
	var sum float64
	for i := range g.Members {
		sum += g.Members[i].Candidate.Score
	}
	return sum / float64(len(g.Members))
}

// Items returns the group's resolved library items in member order.
func (g *Group) Items() []models.ResolvedItem {
	items := make([]models.ResolvedItem, 0, len(g.Members))
	for i := range g.Members {
		items = append(items, g.Members[i].Item)
	}
	return items
}

// CollectionName builds the dated collection title for the group, e.g.
// "What's Trending (Aug 29)".
func (g *Group) CollectionName(now time.Time) string {
	return g.Category.DisplayName() + " (" + now.Format("Jan 02") + ")"
}

// GroupResolved buckets resolved candidates by category, drops buckets
// smaller than MinGroupSize, and orders the survivors by mean score
// descending. Ties break on category name so output order is
// deterministic.
func GroupResolved(resolved []models.ResolvedCandidate) []Group {
	buckets := make(map[Category][]models.ResolvedCandidate)
	for i := range resolved {
		cat := Categorize(resolved[i].Candidate.Reason, resolved[i].Candidate.Tags)
		buckets[cat] = append(buckets[cat], resolved[i])
	}

	groups := make([]Group, 0, len(buckets))
	for cat, members := range buckets {
		if len(members) < MinGroupSize {
			continue
		}
		groups = append(groups, Group{Category: cat, Members: members})
	}

	sort.Slice(groups, func(i, j int) bool {
		si, sj := groups[i].MeanScore(), groups[j].MeanScore()
		if si != sj {
			return si > sj
		}
		return groups[i].Category < groups[j].Category
	})

	return groups
}
