// NobarFilm - Streaming Aggregation and Watch-Party Server
// Copyright 2026 NobarFilm contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nobarfilm/nobarfilm/internal/auth"
	"github.com/nobarfilm/nobarfilm/internal/config"
	"github.com/nobarfilm/nobarfilm/internal/middleware"
)

// chiMiddleware adapts http.HandlerFunc middleware to Chi's
// func(http.Handler) http.Handler shape.
func chiMiddleware(mw func(http.HandlerFunc) http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return mw(next.ServeHTTP)
	}
}

// Router assembles the handler set with its middleware stack.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
	security      *config.SecurityConfig
}

// NewRouter wires the handlers to the middleware configuration.
func NewRouter(handler *Handler, cfg *config.Config) *Router {
	mwConfig := DefaultChiMiddlewareConfig()
	mwConfig.CORSAllowedOrigins = cfg.Security.CORSOrigins
	mwConfig.RateLimitRequests = cfg.Security.RateLimitReqs
	mwConfig.RateLimitWindow = cfg.Security.RateLimitWindow
	mwConfig.RateLimitDisabled = cfg.Security.RateLimitDisabled

	return &Router{
		handler:       handler,
		chiMiddleware: NewChiMiddleware(mwConfig),
		security:      &cfg.Security,
	}
}

// SetupChi configures all HTTP routes using the Chi router.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// Global stack, applied to every route in order.
	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS()) // global so OPTIONS preflight is handled

	authMW := auth.Middleware(router.security)

	// Health endpoints: permissive rate limiting for monitoring, no auth.
	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Use(APISecurityHeaders())
		r.Get("/", router.handler.Health)
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	// Catalog endpoints: read-heavy, cached, no auth required for browsing.
	r.Route("/api/v1/catalog", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitCatalog())
		r.Use(APISecurityHeaders())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))
		r.Use(chiMiddleware(middleware.Compression))

		r.Get("/sources", router.handler.Sources)
		r.Get("/{source}/search", router.handler.Search)
		r.Get("/{source}/latest", router.handler.Latest)
	})

	// Stream resolution: authenticated, same rate budget as catalog.
	r.Route("/api/v1/stream", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitCatalog())
		r.Use(APISecurityHeaders())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))
		r.Use(authMW)

		r.Get("/{source}", router.handler.Stream)
	})

	// Room endpoints: all mutations require auth and the write budget.
	r.Route("/api/v1/rooms", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))
		r.Use(authMW)

		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimitWrite())
			r.Post("/", router.handler.CreateRoom)
			r.Post("/join", router.handler.JoinRoom)
			r.Post("/{id}/leave", router.handler.LeaveRoom)
			r.Post("/{id}/close", router.handler.CloseRoom)
		})

		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimit())
			r.Get("/{id}/participants", router.handler.RoomParticipants)
			r.Get("/{id}/ws", router.handler.RoomWebSocket)
		})
	})

	// Watch history: authenticated per-user data.
	r.Route("/api/v1/history", func(r chi.Router) {
		r.Use(APISecurityHeaders())
		r.Use(chiMiddleware(middleware.PrometheusMetrics))
		r.Use(authMW)

		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimitWrite())
			r.Post("/", router.handler.SaveProgress)
			r.Delete("/{id}", router.handler.DeleteHistory)
		})

		r.Group(func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimit())
			r.Get("/", router.handler.ListHistory)
			r.Get("/progress", router.handler.GetProgress)
		})
	})

	// Observability.
	r.Handle("/metrics", promhttp.Handler())

	return r
}
