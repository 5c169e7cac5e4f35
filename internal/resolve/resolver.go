// Curatarr - AI Recommendation Collections for Media Servers
// Copyright 2026 Curatarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curatarr/curatarr

// Package resolve maps scored recommendation candidates onto library
// items. The scoring service identifies content by whatever it has, so
// resolution runs a cascade from strongest to weakest identity:
//
//  1. Internal item ID, when the candidate carries one
//  2. TMDB provider ID
//  3. Exact case-insensitive name and media type match
//
// A candidate that survives none of the stages is dropped, never
// guessed. Per-candidate failures are isolated so one bad candidate
// cannot sink a batch.
package resolve

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/curatarr/curatarr/internal/catalog"
	"github.com/curatarr/curatarr/internal/logging"
	"github.com/curatarr/curatarr/internal/metrics"
	"github.com/curatarr/curatarr/internal/models"
)

// Resolver resolves scored candidates against a library catalog.
type Resolver struct {
	catalog catalog.Catalog
	logger  zerolog.Logger
}

// NewResolver creates a resolver backed by the given catalog.
func NewResolver(cat catalog.Catalog) *Resolver {
	return &Resolver{
		catalog: cat,
		logger:  logging.With().Str("component", "resolver").Logger(),
	}
}

// Resolve maps a single candidate to a library item, or returns nil when
// no stage of the cascade matches.
func (r *Resolver) Resolve(ctx context.Context, candidate *models.ScoredCandidate) *models.ResolvedItem {
	// Stage 1: the candidate already names a library item.
	if candidate.ItemID != uuid.Nil {
		item, err := r.catalog.FindByID(ctx, candidate.ItemID)
		if err == nil {
			metrics.ResolutionResults.WithLabelValues("item_id").Inc()
			return resolved(item)
		}
		if !errors.Is(err, catalog.ErrNotFound) {
			r.logger.Warn().Err(err).Str("item", candidate.ItemName).Msg("Item ID lookup failed, continuing cascade")
		}
	}

	// Stage 2: TMDB provider tag.
	if id := candidate.TMDBID; id != nil {
		item, err := r.catalog.FindByExternalID(ctx, models.ProviderTMDB, strconv.Itoa(*id))
		if err == nil {
			metrics.ResolutionResults.WithLabelValues("provider_id").Inc()
			return resolved(item)
		}
		if !errors.Is(err, catalog.ErrNotFound) {
			r.logger.Warn().Err(err).Str("item", candidate.ItemName).Msg("Provider ID lookup failed, continuing cascade")
		}
	}

	// Stage 3: exact name match, case-insensitive, same media type.
	if candidate.ItemName != "" {
		matches, err := r.catalog.FindByNameAndType(ctx, candidate.ItemName, candidate.MediaType)
		if err != nil && !errors.Is(err, catalog.ErrNotFound) {
			r.logger.Warn().Err(err).Str("item", candidate.ItemName).Msg("Name lookup failed")
		}
		for i := range matches {
			if strings.EqualFold(matches[i].Name, candidate.ItemName) {
				metrics.ResolutionResults.WithLabelValues("name").Inc()
				return resolved(&matches[i])
			}
		}
	}

	metrics.ResolutionResults.WithLabelValues("unresolved").Inc()
	r.logger.Debug().Str("item", candidate.ItemName).Str("type", candidate.MediaType).Msg("Candidate did not resolve to any library item")
	return nil
}

// ResolveAll resolves a batch, preserving candidate order, dropping
// unresolved candidates and deduplicating repeated resolutions. The
// first occurrence of an item wins, so the highest-scored duplicate is
// the one kept when candidates arrive score-ordered. Each survivor
// keeps its originating candidate for downstream classification.
func (r *Resolver) ResolveAll(ctx context.Context, candidates []models.ScoredCandidate) []models.ResolvedCandidate {
	seen := make(map[uuid.UUID]struct{}, len(candidates))
	resolvedSet := make([]models.ResolvedCandidate, 0, len(candidates))

	for i := range candidates {
		if ctx.Err() != nil {
			break
		}
		item := r.Resolve(ctx, &candidates[i])
		if item == nil {
			continue
		}
		if _, dup := seen[item.ItemID]; dup {
			continue
		}
		seen[item.ItemID] = struct{}{}
		resolvedSet = append(resolvedSet, models.ResolvedCandidate{
			Candidate: candidates[i],
			Item:      *item,
		})
	}

	return resolvedSet
}

func resolved(item *models.MediaItem) *models.ResolvedItem {
	return &models.ResolvedItem{
		ItemID:    item.ID,
		Name:      item.Name,
		MediaType: item.MediaType,
	}
}
