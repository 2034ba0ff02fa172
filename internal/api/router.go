// StreamSense - Streaming Chat Analytics
// Copyright 2026 StreamSense Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/streamsense/streamsense

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/streamsense/streamsense/internal/middleware"
)

// RouterConfig carries the HTTP-level knobs the router needs.
type RouterConfig struct {
	CORSOrigins    []string
	HTTPRateLimit  int
	HTTPRateWindow time.Duration
}

// NewRouter assembles the chi router: global middleware, the versioned REST
// API, the WebSocket endpoint and the Prometheus scrape endpoint.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(corsMiddleware(cfg.CORSOrigins))

	r.Get("/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	// WebSocket stays outside the metrics middleware: the status-capturing
	// response writer does not implement http.Hijacker, which the upgrade
	// requires.
	r.Get("/ws/{roomID}", h.WebSocket)

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.HTTPRateLimit > 0 {
			window := cfg.HTTPRateWindow
			if window <= 0 {
				window = time.Minute
			}
			r.Use(httprate.LimitByIP(cfg.HTTPRateLimit, window))
		}
		r.Use(middleware.PrometheusMetrics)

		r.Route("/rooms", func(r chi.Router) {
			r.Get("/", h.ListRooms)
			r.Post("/", h.CreateRoom)
			r.Get("/{roomID}", h.GetRoom)
			r.Get("/{roomID}/analytics", h.RoomAnalytics)
			r.Get("/{roomID}/users", h.RoomActiveUsers)
			r.Post("/{roomID}/messages", h.SendMessage)
			r.Get("/{roomID}/messages", h.History)
		})

		r.Delete("/messages/{messageID}", h.DeleteMessage)

		r.Route("/recommendations", func(r chi.Router) {
			r.Get("/trending", h.Trending)
			r.Get("/similar/{itemID}", h.SimilarItems)
			r.Get("/{userID}", h.Recommendations)
		})

		r.Get("/streams/{itemID}/stats", h.StreamStats)

		r.Route("/ratelimit", func(r chi.Router) {
			r.Get("/{roomID}/{userID}", h.RateLimitStatus)
			r.Delete("/{roomID}/{userID}", h.RateLimitReset)
		})
	})

	return r
}

// corsMiddleware builds the CORS middleware from the configured origins.
func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	})
}
