// Curatarr - AI Recommendation Collections for Media Servers
// Copyright 2026 Curatarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curatarr/curatarr

// Package api exposes the engine's HTTP surface: sync triggers,
// recommendation generation, home screen rows, and health.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/curatarr/curatarr/internal/events"
	"github.com/curatarr/curatarr/internal/logging"
	"github.com/curatarr/curatarr/internal/models"
	"github.com/curatarr/curatarr/internal/recommend"
	"github.com/curatarr/curatarr/internal/scoring"
	syncpkg "github.com/curatarr/curatarr/internal/sync"
)

// Response is the uniform API response envelope.
type Response struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// Handler serves the engine's HTTP endpoints.
type Handler struct {
	sync         *syncpkg.Manager
	orchestrator *recommend.Orchestrator
	scoring      scoring.Client
	watcher      *events.Watcher
	startedAt    time.Time
	logger       zerolog.Logger
}

// NewHandler wires the HTTP handler. scoringClient may be nil in
// fallback-only deployments; the connection test then reports scoring
// as disabled. watcher may be nil, which disables the watch-event
// ingress.
func NewHandler(syncMgr *syncpkg.Manager, orch *recommend.Orchestrator, scoringClient scoring.Client, watcher *events.Watcher) *Handler {
	return &Handler{
		sync:         syncMgr,
		orchestrator: orch,
		scoring:      scoringClient,
		watcher:      watcher,
		startedAt:    time.Now(),
		logger:       logging.With().Str("component", "api").Logger(),
	}
}

func respondJSON(w http.ResponseWriter, status int, response *Response) {
	w.Header().Set("Content-Type", "application/json")

	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, &Response{Status: "error", Error: message})
}

// Health reports process liveness and last sync state.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	lastSync, err := h.sync.LastSyncTime()
	if err != nil {
		h.logger.Warn().Err(err).Msg("Failed to read last sync time")
	}

	data := map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(h.startedAt).Round(time.Second).String(),
	}
	if !lastSync.IsZero() {
		data["lastSyncTime"] = lastSync
	}

	respondJSON(w, http.StatusOK, &Response{Status: "ok", Data: data})
}

// TriggerSync runs a full user+content sync pass.
func (h *Handler) TriggerSync(w http.ResponseWriter, r *http.Request) {
	result, err := h.sync.TriggerSync(r.Context())
	if err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, &Response{Status: "ok", Data: result})
}

// SyncUsers runs the user leg only.
func (h *Handler) SyncUsers(w http.ResponseWriter, r *http.Request) {
	synced, err := h.sync.SyncAllUsers(r.Context())
	if err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, &Response{Status: "ok", Data: map[string]int{"usersSynced": synced}})
}

// SyncContent runs the content library leg only.
func (h *Handler) SyncContent(w http.ResponseWriter, r *http.Request) {
	count, err := h.sync.SyncContentLibrary(r.Context())
	if err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, &Response{Status: "ok", Data: map[string]int{"itemsSynced": count}})
}

// TestConnection checks scoring service reachability.
func (h *Handler) TestConnection(w http.ResponseWriter, r *http.Request) {
	if h.scoring == nil {
		respondJSON(w, http.StatusOK, &Response{Status: "ok", Data: map[string]string{"scoring": "disabled"}})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := h.scoring.TestConnection(ctx); err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, &Response{Status: "ok", Data: map[string]string{"scoring": "reachable"}})
}

// Generate runs recommendation generation for all users.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	results, err := h.orchestrator.GenerateForAllUsers(r.Context())
	if err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, &Response{Status: "ok", Data: results})
}

// GenerateForUser runs recommendation generation for one user.
func (h *Handler) GenerateForUser(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	result, err := h.orchestrator.GenerateForUser(r.Context(), userID)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, &Response{Status: "ok", Data: result})
}

// WatchEvent ingests one playback event from the media server's session
// hook. Progress reports are throttled per session; dropped events still
// return 202.
func (h *Handler) WatchEvent(w http.ResponseWriter, r *http.Request) {
	if h.watcher == nil {
		respondError(w, http.StatusNotFound, "watch event ingress disabled")
		return
	}

	var event models.WatchEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		respondError(w, http.StatusBadRequest, "invalid watch event payload")
		return
	}
	if event.UserID == uuid.Nil || event.ItemID == uuid.Nil || event.EventType == "" {
		respondError(w, http.StatusBadRequest, "userId, itemId, and eventType are required")
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	if err := h.watcher.HandleWatchEvent(r.Context(), &event); err != nil {
		respondError(w, http.StatusBadGateway, err.Error())
		return
	}
	respondJSON(w, http.StatusAccepted, &Response{Status: "ok"})
}

// HomeScreen returns category rows for a user. An optional ?category=
// query narrows the result to one shelf.
func (h *Handler) HomeScreen(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(chi.URLParam(r, "userID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	category := recommend.Category(r.URL.Query().Get("category"))
	rows, err := h.orchestrator.HomeScreen(r.Context(), userID, category)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		for i := range rows {
			if len(rows[i].Items) > limit {
				rows[i].Items = rows[i].Items[:limit]
			}
		}
	}

	respondJSON(w, http.StatusOK, &Response{Status: "ok", Data: rows})
}
