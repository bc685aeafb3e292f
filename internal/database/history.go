// NobarFilm - Streaming Aggregation and Watch-Party Server
// Copyright 2026 NobarFilm contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nobarfilm/nobarfilm/internal/metrics"
	"github.com/nobarfilm/nobarfilm/internal/models"
)

// UpsertWatchHistory stores a playback position keyed on
// (user, subject, episode). A conflict on the triple overwrites
// progress, duration, completed, and last_watched_at in place; the
// same triple never produces a second row.
func (db *DB) UpsertWatchHistory(ctx context.Context, rec *models.WatchHistoryRecord) error {
	start := time.Now()
	err := db.upsertWatchHistory(ctx, rec)
	metrics.RecordDBQuery("upsert_history", "watch_history", time.Since(start), err)
	return err
}

func (db *DB) upsertWatchHistory(ctx context.Context, rec *models.WatchHistoryRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.LastWatchedAt.IsZero() {
		rec.LastWatchedAt = time.Now().UTC()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO watch_history (id, user_id, subject_id, subject_type, title,
			cover_url, current_episode, total_episodes, progress_seconds,
			duration_seconds, completed, last_watched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, subject_id, current_episode) DO UPDATE SET
			title = EXCLUDED.title,
			cover_url = EXCLUDED.cover_url,
			total_episodes = EXCLUDED.total_episodes,
			progress_seconds = EXCLUDED.progress_seconds,
			duration_seconds = EXCLUDED.duration_seconds,
			completed = EXCLUDED.completed,
			last_watched_at = EXCLUDED.last_watched_at`,
		rec.ID, rec.UserID, rec.SubjectID, rec.SubjectType, rec.Title,
		rec.CoverURL, rec.CurrentEpisode, rec.TotalEpisodes, rec.ProgressSeconds,
		rec.DurationSeconds, rec.Completed, rec.LastWatchedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert watch history: %w", err)
	}
	return nil
}

// GetWatchHistory returns the stored record for the exact
// (user, subject, episode) triple, or nil when absent.
func (db *DB) GetWatchHistory(ctx context.Context, userID, subjectID string, episode int) (*models.WatchHistoryRecord, error) {
	start := time.Now()
	rec, err := db.getWatchHistory(ctx, userID, subjectID, episode)
	metrics.RecordDBQuery("get_history", "watch_history", time.Since(start), err)
	return rec, err
}

func (db *DB) getWatchHistory(ctx context.Context, userID, subjectID string, episode int) (*models.WatchHistoryRecord, error) {
	var rec models.WatchHistoryRecord
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, subject_id, subject_type, title, cover_url,
			current_episode, total_episodes, progress_seconds, duration_seconds,
			completed, last_watched_at
		FROM watch_history
		WHERE user_id = ? AND subject_id = ? AND current_episode = ?`,
		userID, subjectID, episode).Scan(
		&rec.ID, &rec.UserID, &rec.SubjectID, &rec.SubjectType, &rec.Title,
		&rec.CoverURL, &rec.CurrentEpisode, &rec.TotalEpisodes,
		&rec.ProgressSeconds, &rec.DurationSeconds, &rec.Completed, &rec.LastWatchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query watch history: %w", err)
	}
	return &rec, nil
}

// ListWatchHistory returns a user's history, newest first.
func (db *DB) ListWatchHistory(ctx context.Context, userID string, limit int) ([]models.WatchHistoryRecord, error) {
	start := time.Now()
	records, err := db.listWatchHistory(ctx, userID, limit)
	metrics.RecordDBQuery("list_history", "watch_history", time.Since(start), err)
	return records, err
}

func (db *DB) listWatchHistory(ctx context.Context, userID string, limit int) ([]models.WatchHistoryRecord, error) {
	if limit < 1 {
		limit = 50
	}
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, subject_id, subject_type, title, cover_url,
			current_episode, total_episodes, progress_seconds, duration_seconds,
			completed, last_watched_at
		FROM watch_history
		WHERE user_id = ?
		ORDER BY last_watched_at DESC
		LIMIT ?`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query watch history: %w", err)
	}
	defer closeRows(rows)

	records := make([]models.WatchHistoryRecord, 0)
	for rows.Next() {
		var rec models.WatchHistoryRecord
		if err := rows.Scan(
			&rec.ID, &rec.UserID, &rec.SubjectID, &rec.SubjectType, &rec.Title,
			&rec.CoverURL, &rec.CurrentEpisode, &rec.TotalEpisodes,
			&rec.ProgressSeconds, &rec.DurationSeconds, &rec.Completed,
			&rec.LastWatchedAt); err != nil {
			return nil, fmt.Errorf("failed to scan watch history: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate watch history: %w", err)
	}
	return records, nil
}

// DeleteWatchHistory removes one history row, scoped to its owner.
// Returns false when no matching row existed.
func (db *DB) DeleteWatchHistory(ctx context.Context, id, userID string) (bool, error) {
	start := time.Now()
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM watch_history WHERE id = ? AND user_id = ?`, id, userID)
	metrics.RecordDBQuery("delete_history", "watch_history", time.Since(start), err)
	if err != nil {
		return false, fmt.Errorf("failed to delete watch history: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return affected > 0, nil
}
