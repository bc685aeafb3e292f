// NobarFilm - Streaming Aggregation and Watch-Party Server
// Copyright 2026 NobarFilm contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history records and reads per-user watch progress.
//
// Episode numbers are normalized before any store access: movies and
// other single-part subjects report episode 0 or nothing, and both
// canonicalize to 1 so reads and writes always hit the same row.
package history

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/nobarfilm/nobarfilm/internal/logging"
	"github.com/nobarfilm/nobarfilm/internal/metrics"
	"github.com/nobarfilm/nobarfilm/internal/models"
)

// Store is the persistence capability the recorder needs. Satisfied
// by *database.DB.
type Store interface {
	UpsertWatchHistory(ctx context.Context, rec *models.WatchHistoryRecord) error
	GetWatchHistory(ctx context.Context, userID, subjectID string, episode int) (*models.WatchHistoryRecord, error)
	ListWatchHistory(ctx context.Context, userID string, limit int) ([]models.WatchHistoryRecord, error)
	DeleteWatchHistory(ctx context.Context, id, userID string) (bool, error)
}

// Recorder applies the progress-save rules on top of the store.
type Recorder struct {
	store Store
}

// New creates a history recorder.
func New(store Store) *Recorder {
	return &Recorder{store: store}
}

// canonicalEpisode maps missing or non-positive episode numbers to 1.
func canonicalEpisode(episode int) int {
	if episode <= 0 {
		return 1
	}
	return episode
}

// Save upserts the caller's progress for one episode. Fractional
// seconds are floored, and completion derives from the 90% threshold
// unless the request overrides it explicitly.
func (r *Recorder) Save(ctx context.Context, userID string, req models.SaveProgressRequest) (*models.WatchHistoryRecord, error) {
	progress := int64(math.Floor(req.ProgressSeconds))
	duration := int64(math.Floor(req.DurationSeconds))

	completed := models.IsCompleted(progress, duration)
	if req.Completed != nil {
		completed = *req.Completed
	}

	rec := &models.WatchHistoryRecord{
		UserID:          userID,
		SubjectID:       req.SubjectID,
		SubjectType:     req.SubjectType,
		Title:           req.Title,
		CoverURL:        req.CoverURL,
		CurrentEpisode:  canonicalEpisode(req.CurrentEpisode),
		TotalEpisodes:   req.TotalEpisodes,
		ProgressSeconds: progress,
		DurationSeconds: duration,
		Completed:       completed,
		LastWatchedAt:   time.Now().UTC(),
	}

	if err := r.store.UpsertWatchHistory(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to save progress: %w", err)
	}

	metrics.HistorySavesTotal.Inc()
	logging.Ctx(ctx).Debug().
		Str("user_id", userID).
		Str("subject_id", rec.SubjectID).
		Int("episode", rec.CurrentEpisode).
		Bool("completed", rec.Completed).
		Msg("Watch progress saved")

	return rec, nil
}

// GetProgress returns the caller's position for one episode. A never
// watched episode yields the zero projection, not an error.
func (r *Recorder) GetProgress(ctx context.Context, userID, subjectID string, episode int) (*models.WatchProgress, error) {
	rec, err := r.store.GetWatchHistory(ctx, userID, subjectID, canonicalEpisode(episode))
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}
	if rec == nil {
		return &models.WatchProgress{}, nil
	}
	watched := rec.LastWatchedAt
	return &models.WatchProgress{
		Progress:      rec.ProgressSeconds,
		Duration:      rec.DurationSeconds,
		Completed:     rec.Completed,
		LastWatchedAt: &watched,
	}, nil
}

// List returns the caller's history, newest first.
func (r *Recorder) List(ctx context.Context, userID string, limit int) ([]models.WatchHistoryRecord, error) {
	records, err := r.store.ListWatchHistory(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list history: %w", err)
	}
	return records, nil
}

// Delete removes one of the caller's history entries. Returns false
// when the entry does not exist or belongs to someone else.
func (r *Recorder) Delete(ctx context.Context, id, userID string) (bool, error) {
	deleted, err := r.store.DeleteWatchHistory(ctx, id, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete history entry: %w", err)
	}
	return deleted, nil
}
