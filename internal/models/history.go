// NobarFilm - Streaming Aggregation and Watch-Party Server
// Copyright 2026 NobarFilm contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package models

import (
	"time"
)

// CompletionNumerator and CompletionDenominator encode the fixed 90%
// completion threshold. Completion is evaluated in integer arithmetic
// (progress*10 >= duration*9) so the boundary is exact: 540/600 is
// completed, 539/600 is not.
const (
	CompletionNumerator   = 9
	CompletionDenominator = 10
)

// WatchHistoryRecord is a user's playback position for one episode of
// one subject, unique per (user, subject, episode). Saves upsert in
// place; a conflict on the triple overwrites progress, duration,
// completed, and lastWatchedAt rather than creating a second row.
type WatchHistoryRecord struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	SubjectID       string    `json:"subject_id"`
	SubjectType     int       `json:"subject_type"`
	Title           string    `json:"title"`
	CoverURL        string    `json:"cover_url,omitempty"`
	CurrentEpisode  int       `json:"current_episode"`
	TotalEpisodes   int       `json:"total_episodes,omitempty"`
	ProgressSeconds int64     `json:"progress_seconds"`
	DurationSeconds int64     `json:"duration_seconds"`
	Completed       bool      `json:"completed"`
	LastWatchedAt   time.Time `json:"last_watched_at"`
}

// IsCompleted evaluates the 90% threshold for the given position.
func IsCompleted(progressSeconds, durationSeconds int64) bool {
	if durationSeconds <= 0 {
		return false
	}
	return progressSeconds*CompletionDenominator >= durationSeconds*CompletionNumerator
}

// SaveProgressRequest is the payload for POST /api/v1/history.
// ProgressSeconds and DurationSeconds accept fractional input and are
// floored to whole seconds before storage.
type SaveProgressRequest struct {
	SubjectID       string  `json:"subject_id" validate:"required"`
	SubjectType     int     `json:"subject_type" validate:"gte=0"`
	Title           string  `json:"title" validate:"required"`
	CoverURL        string  `json:"cover_url,omitempty" validate:"omitempty,url"`
	CurrentEpisode  int     `json:"current_episode,omitempty"`
	TotalEpisodes   int     `json:"total_episodes,omitempty" validate:"gte=0"`
	ProgressSeconds float64 `json:"progress_seconds" validate:"gte=0"`
	DurationSeconds float64 `json:"duration_seconds" validate:"required,gt=0"`
	Completed       *bool   `json:"completed,omitempty"`
}

// WatchProgress is the read-side projection returned by
// GET /api/v1/history/progress. A missing record yields the zero
// value (progress 0, completed false) rather than an error.
type WatchProgress struct {
	Progress      int64      `json:"progress"`
	Duration      int64      `json:"duration"`
	Completed     bool       `json:"completed"`
	LastWatchedAt *time.Time `json:"last_watched_at,omitempty"`
}
