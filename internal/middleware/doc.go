// NobarFilm - Streaming Aggregation and Watch-Party Server
// Copyright 2026 NobarFilm contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package middleware provides http.HandlerFunc middleware shared by
// the API layer: Prometheus instrumentation and gzip compression.
// Chi-native middleware (CORS, rate limiting, request IDs) lives in
// the api package where the router is assembled.
package middleware
