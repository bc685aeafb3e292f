// NobarFilm - Streaming Aggregation and Watch-Party Server
// Copyright 2026 NobarFilm contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth resolves the authenticated user for each request.
//
// NobarFilm never issues tokens. The identity provider is an external
// capability; this package only verifies its HS256-signed JWTs and
// surfaces the opaque user id they carry. Write paths require a
// resolved identity before any store interaction.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Sentinel errors for token verification.
var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)

// Claims are the JWT claims NobarFilm reads. Subject carries the
// opaque user id assigned by the identity provider.
type Claims struct {
	jwt.RegisteredClaims
}

// Verifier validates bearer tokens against the shared HS256 secret.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a token verifier. The secret must match the
// identity provider's signing key.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// UserID extracts and verifies the user id from an Authorization
// header value. Only the "Bearer <token>" scheme is accepted; a bare
// token or another scheme is a missing token.
func (v *Verifier) UserID(authorization string) (string, error) {
	const scheme = "Bearer "
	if !strings.HasPrefix(authorization, scheme) {
		return "", ErrMissingToken
	}
	token := strings.TrimSpace(authorization[len(scheme):])
	if token == "" {
		return "", ErrMissingToken
	}
	return v.verify(token)
}

func (v *Verifier) verify(tokenString string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithLeeway(30*time.Second))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
