// Curatarr - AI Recommendation Collections for Media Servers
// Copyright 2026 Curatarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curatarr/curatarr

// Package recommend orchestrates the recommendation pipeline: fetch
// scored candidates (or fall back to heuristics), classify them into
// category groups, resolve members against the library, persist
// collections, and emit lifecycle events.
package recommend

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/curatarr/curatarr/internal/catalog"
	"github.com/curatarr/curatarr/internal/classify"
	"github.com/curatarr/curatarr/internal/collections"
	"github.com/curatarr/curatarr/internal/config"
	"github.com/curatarr/curatarr/internal/events"
	"github.com/curatarr/curatarr/internal/fallback"
	"github.com/curatarr/curatarr/internal/logging"
	"github.com/curatarr/curatarr/internal/metrics"
	"github.com/curatarr/curatarr/internal/models"
	"github.com/curatarr/curatarr/internal/resolve"
	"github.com/curatarr/curatarr/internal/scoring"
)

// Result summarizes one generation pass for a user.
type Result struct {
	UserID       uuid.UUID           `json:"userId"`
	Collections  []models.Collection `json:"collections"`
	Candidates   int                 `json:"candidateCount"`
	UsedFallback bool                `json:"usedFallback"`
	GeneratedAt  time.Time           `json:"generatedAt"`
}

// HomeRow is one category shelf for a user's home screen. Items are
// resolved against the library, so every entry names a real item.
type HomeRow struct {
	Category Category              `json:"category"`
	Title    string                `json:"title"`
	Items    []models.ResolvedItem `json:"items"`
}

// Category re-exports the classification category for API payloads.
type Category = classify.Category

// Orchestrator runs recommendation generation end to end.
type Orchestrator struct {
	scoring     scoring.Client
	fallback    *fallback.Engine
	resolver    *resolve.Resolver
	collections *collections.Manager
	emitter     *events.Emitter
	catalog     catalog.Catalog
	cfg         config.EngineConfig
	logger      zerolog.Logger
	now         func() time.Time
}

// NewOrchestrator wires the pipeline. scoringClient may be nil only when
// cfg.FallbackOnly is set.
func NewOrchestrator(
	scoringClient scoring.Client,
	fb *fallback.Engine,
	resolver *resolve.Resolver,
	mgr *collections.Manager,
	emitter *events.Emitter,
	cat catalog.Catalog,
	cfg config.EngineConfig,
) *Orchestrator {
	return &Orchestrator{
		scoring:     scoringClient,
		fallback:    fb,
		resolver:    resolver,
		collections: mgr,
		emitter:     emitter,
		catalog:     cat,
		cfg:         cfg,
		logger:      logging.With().Str("component", "orchestrator").Logger(),
		now:         time.Now,
	}
}

// GenerateForUser runs the full pipeline for one user: candidates are
// resolved against the library, the resolved set is classified into
// groups, each surviving group becomes (or refreshes) a collection up
// to the retention cap, and retention cleanup runs once at the end.
func (o *Orchestrator) GenerateForUser(ctx context.Context, userID uuid.UUID) (*Result, error) {
	if _, err := o.catalog.User(ctx, userID); err != nil {
		return nil, fmt.Errorf("generate for user %s: %w", userID, err)
	}

	candidates, usedFallback := o.candidates(ctx, userID)
	resolved := o.resolver.ResolveAll(ctx, candidates)

	// Scored candidates that resolve to nothing in this catalog are
	// treated the same as an empty scoring response. No blending: the
	// heuristic set replaces the scored set wholesale.
	if !usedFallback && len(candidates) > 0 && len(resolved) == 0 {
		o.logger.Info().Str("user_id", userID.String()).Msg("No scored candidates resolved, using fallback heuristics")
		candidates = o.fallback.General(ctx, userID, o.cfg.RecommendationCount)
		usedFallback = true
		resolved = o.resolver.ResolveAll(ctx, candidates)
	}

	result := &Result{
		UserID:       userID,
		Candidates:   len(candidates),
		UsedFallback: usedFallback,
		GeneratedAt:  o.now().UTC(),
	}

	if len(resolved) == 0 {
		o.logger.Info().Str("user_id", userID.String()).Msg("No resolvable recommendation candidates produced")
		metrics.GenerationRuns.WithLabelValues("success").Inc()
		return result, nil
	}

	groups := classify.GroupResolved(resolved)
	if len(groups) > o.cfg.MaxCollections {
		groups = groups[:o.cfg.MaxCollections]
	}

	if o.cfg.AutoCreateCollections {
		for i := range groups {
			if ctx.Err() != nil {
				break
			}
			if collection := o.persistGroup(ctx, userID, &groups[i]); collection != nil {
				result.Collections = append(result.Collections, *collection)
			}
		}

		o.collections.Cleanup(ctx, userID, o.cfg.MaxCollections)
	}

	if err := o.emitter.EmitRecommendationsGenerated(ctx, result); err != nil {
		o.logger.Warn().Err(err).Str("user_id", userID.String()).Msg("Failed to emit generation event")
	}

	if usedFallback {
		metrics.GenerationRuns.WithLabelValues("fallback").Inc()
	} else {
		metrics.GenerationRuns.WithLabelValues("success").Inc()
	}

	o.logger.Info().
		Str("user_id", userID.String()).
		Int("candidates", len(candidates)).
		Int("collections", len(result.Collections)).
		Bool("fallback", usedFallback).
		Msg("Generation pass complete")

	return result, nil
}

// persistGroup writes one group's collection. Group members are already
// resolved, so membership maps straight to item ids. Returns nil when
// the store rejected the write.
func (o *Orchestrator) persistGroup(ctx context.Context, userID uuid.UUID, group *classify.Group) *models.Collection {
	memberIDs := make([]uuid.UUID, 0, len(group.Members))
	for i := range group.Members {
		memberIDs = append(memberIDs, group.Members[i].Item.ItemID)
	}

	name := group.CollectionName(o.now())
	overview := fmt.Sprintf("%s, refreshed %s.", group.Category.DisplayName(), o.now().Format("January 2, 2006"))

	collection, ok := o.collections.CreateOrUpdate(ctx, userID, name, overview, memberIDs)
	if !ok {
		return nil
	}

	if err := o.emitter.EmitCollectionCreated(ctx, collection); err != nil {
		o.logger.Warn().Err(err).Str("collection", collection.Name).Msg("Failed to emit collection event")
	}
	return collection
}

// GenerateForAllUsers runs generation for every catalog user. The pass
// succeeds if at least one user succeeds; per-user failures are logged
// and skipped. Context cancellation abandons remaining users while
// preserving completed work.
func (o *Orchestrator) GenerateForAllUsers(ctx context.Context) ([]Result, error) {
	users, err := o.catalog.Users(ctx)
	if err != nil {
		metrics.GenerationRuns.WithLabelValues("failure").Inc()
		return nil, fmt.Errorf("list users: %w", err)
	}
	if len(users) == 0 {
		return nil, nil
	}

	results := make([]Result, 0, len(users))
	var lastErr error
	for i := range users {
		if ctx.Err() != nil {
			o.logger.Warn().Int("completed", len(results)).Msg("Generation pass cancelled, abandoning remaining users")
			break
		}

		result, err := o.GenerateForUser(ctx, users[i].ID)
		if err != nil {
			lastErr = err
			o.logger.Error().Err(err).Str("user_id", users[i].ID.String()).Msg("Generation failed for user")
			continue
		}
		results = append(results, *result)
	}

	if len(results) == 0 && lastErr != nil {
		metrics.GenerationRuns.WithLabelValues("failure").Inc()
		return nil, fmt.Errorf("generation failed for all users: %w", lastErr)
	}
	return results, nil
}

// HomeScreen assembles category shelves for a user without touching
// collections. When a category filter is given only that shelf is
// built. Scoring failures degrade to per-category heuristics.
func (o *Orchestrator) HomeScreen(ctx context.Context, userID uuid.UUID, category Category) ([]HomeRow, error) {
	if _, err := o.catalog.User(ctx, userID); err != nil {
		return nil, fmt.Errorf("home screen for user %s: %w", userID, err)
	}

	candidates, usedFallback := o.candidates(ctx, userID)

	rows := make([]HomeRow, 0, 4)
	if !usedFallback && len(candidates) > 0 {
		for _, group := range classify.GroupResolved(o.resolver.ResolveAll(ctx, candidates)) {
			if category != "" && group.Category != category {
				continue
			}
			rows = append(rows, HomeRow{
				Category: group.Category,
				Title:    group.Category.DisplayName(),
				Items:    group.Items(),
			})
		}
		if len(rows) > 0 {
			return rows, nil
		}
	}

	// Heuristic shelves, one strategy per category.
	count := o.cfg.RecommendationCount
	shelves := []struct {
		category   Category
		candidates []models.ScoredCandidate
	}{
		{classify.CategorySimilarContent, o.fallback.SimilarToFavorites(ctx, userID, count)},
		{classify.CategoryTrending, o.fallback.Trending(ctx, userID, count)},
		{classify.CategoryNewReleases, o.fallback.NewReleases(ctx, userID, count)},
		{classify.CategoryForYou, o.fallback.General(ctx, userID, count)},
	}
	for _, shelf := range shelves {
		if category != "" && shelf.category != category {
			continue
		}
		items := o.resolveItems(ctx, shelf.candidates)
		if len(items) == 0 {
			continue
		}
		rows = append(rows, HomeRow{
			Category: shelf.category,
			Title:    shelf.category.DisplayName(),
			Items:    items,
		})
	}
	return rows, nil
}

// resolveItems maps candidates to their resolved library items,
// dropping anything that fails resolution.
func (o *Orchestrator) resolveItems(ctx context.Context, candidates []models.ScoredCandidate) []models.ResolvedItem {
	resolved := o.resolver.ResolveAll(ctx, candidates)
	items := make([]models.ResolvedItem, 0, len(resolved))
	for i := range resolved {
		items = append(items, resolved[i].Item)
	}
	return items
}

// candidates fetches scored candidates, degrading to heuristics when the
// scoring service is disabled, unreachable, or empty-handed.
func (o *Orchestrator) candidates(ctx context.Context, userID uuid.UUID) ([]models.ScoredCandidate, bool) {
	count := o.cfg.RecommendationCount

	if o.cfg.FallbackOnly || o.scoring == nil {
		return o.fallback.General(ctx, userID, count), true
	}

	candidates, err := o.scoring.Recommendations(ctx, userID, count)
	if err != nil {
		o.logger.Warn().Err(err).Str("user_id", userID.String()).Msg("Scoring service unavailable, using fallback heuristics")
		return o.fallback.General(ctx, userID, count), true
	}
	if len(candidates) == 0 {
		o.logger.Info().Str("user_id", userID.String()).Msg("Scoring service returned no candidates, using fallback heuristics")
		return o.fallback.General(ctx, userID, count), true
	}

	return candidates, false
}
