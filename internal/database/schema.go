// NobarFilm - Streaming Aggregation and Watch-Party Server
// Copyright 2026 NobarFilm contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

/*
schema.go - Database Schema Management

Tables:
  - rooms: watch-party rooms, one row per created room. Codes are
    unique among active rooms (enforced inside CreateRoom's
    transaction, not by constraint, since expired rooms may recycle
    codes).
  - room_participants: membership and connectivity per (room, user).
    Rows are upserted on join and flipped on leave, never hard-deleted,
    so rejoin history is preserved.
  - watch_history: per-user playback positions, unique per
    (user, subject, episode). The unique constraint backs the
    ON CONFLICT upsert in UpsertWatchHistory.

Schema Strategy:
All columns are defined in the initial CREATE TABLE statements, a
single source of truth with no migrations to run at startup.
*/
package database

import (
	"context"
	"fmt"
	"time"
)

// schemaContext returns a context with timeout for schema operations.
func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 60*time.Second)
}

// createTables creates the core database tables and indexes.
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	queries := []string{
		`CREATE TABLE IF NOT EXISTS rooms (
			id UUID PRIMARY KEY,
			code TEXT NOT NULL,
			host_id TEXT NOT NULL,
			subject_id TEXT NOT NULL,
			subject_type INTEGER NOT NULL DEFAULT 0,
			title TEXT NOT NULL,
			cover_url TEXT NOT NULL DEFAULT '',
			current_episode INTEGER NOT NULL DEFAULT 1,
			is_active BOOLEAN NOT NULL DEFAULT true,
			expires_at TIMESTAMP NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS room_participants (
			room_id UUID NOT NULL,
			user_id TEXT NOT NULL,
			is_connected BOOLEAN NOT NULL DEFAULT true,
			joined_at TIMESTAMP NOT NULL,
			last_seen_at TIMESTAMP NOT NULL,
			PRIMARY KEY (room_id, user_id)
		)`,

		`CREATE TABLE IF NOT EXISTS watch_history (
			id UUID PRIMARY KEY,
			user_id TEXT NOT NULL,
			subject_id TEXT NOT NULL,
			subject_type INTEGER NOT NULL DEFAULT 0,
			title TEXT NOT NULL,
			cover_url TEXT NOT NULL DEFAULT '',
			current_episode INTEGER NOT NULL DEFAULT 1,
			total_episodes INTEGER NOT NULL DEFAULT 0,
			progress_seconds BIGINT NOT NULL DEFAULT 0,
			duration_seconds BIGINT NOT NULL DEFAULT 0,
			completed BOOLEAN NOT NULL DEFAULT false,
			last_watched_at TIMESTAMP NOT NULL,
			UNIQUE (user_id, subject_id, current_episode)
		)`,

		// Join path: lookup by code among active rooms.
		`CREATE INDEX IF NOT EXISTS idx_rooms_code ON rooms (code)`,
		// Create dedup path: lookup by (host, subject).
		`CREATE INDEX IF NOT EXISTS idx_rooms_host_subject ON rooms (host_id, subject_id)`,
		// History list path: newest first per user.
		`CREATE INDEX IF NOT EXISTS idx_history_user_watched ON watch_history (user_id, last_watched_at)`,
	}

	for _, query := range queries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}

	return nil
}
