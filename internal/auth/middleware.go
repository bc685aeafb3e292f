// NobarFilm - Streaming Aggregation and Watch-Party Server
// Copyright 2026 NobarFilm contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"context"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/nobarfilm/nobarfilm/internal/config"
	"github.com/nobarfilm/nobarfilm/internal/logging"
	"github.com/nobarfilm/nobarfilm/internal/models"
)

type contextKey int

const userIDKey contextKey = iota

// DevUserID is the identity every request runs as when auth_mode is
// "none". Development only; config validation rejects it in production.
const DevUserID = "dev-user"

// UserIDFromContext returns the authenticated user id, or "" if the
// request carries no resolved identity.
func UserIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithUserID stores a user id in the context. Exported for
// handler tests.
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// Middleware authenticates requests and injects the user id into the
// request context. Unauthenticated requests are rejected with 401
// before reaching any handler.
func Middleware(cfg *config.SecurityConfig) func(http.Handler) http.Handler {
	if cfg.AuthMode == "none" {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				next.ServeHTTP(w, r.WithContext(ContextWithUserID(r.Context(), DevUserID)))
			})
		}
	}

	verifier := NewVerifier(cfg.JWTSecret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := verifier.UserID(r.Header.Get("Authorization"))
			if err != nil {
				logging.Debug().
					Err(err).
					Str("path", r.URL.Path).
					Msg("Request rejected: unauthenticated")
				respondUnauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithUserID(r.Context(), userID)))
		})
	}
}

// respondUnauthorized writes the standard 401 envelope. Duplicated
// from the api package helpers to avoid an import cycle.
func respondUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	resp := models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
		Error: &models.APIError{
			Code:    "AUTH_ERROR",
			Message: "Authentication required",
		},
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logging.Warn().Err(err).Msg("Failed to encode auth error response")
	}
}
