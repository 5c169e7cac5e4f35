// Curatarr - AI Recommendation Collections for Media Servers
// Copyright 2026 Curatarr Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/curatarr/curatarr

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter builds the engine's HTTP routing table.
func NewRouter(handler *Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handler.Health)
		r.Get("/test", handler.TestConnection)

		r.Post("/sync", handler.TriggerSync)
		r.Post("/sync/users", handler.SyncUsers)
		r.Post("/sync/content", handler.SyncContent)

		r.Post("/events/watch", handler.WatchEvent)

		r.Post("/recommendations/generate", handler.Generate)
		r.Post("/recommendations/generate/{userID}", handler.GenerateForUser)
		r.Get("/recommendations/home/{userID}", handler.HomeScreen)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
