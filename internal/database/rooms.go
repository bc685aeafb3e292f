// NobarFilm - Streaming Aggregation and Watch-Party Server
// Copyright 2026 NobarFilm contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package database

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nobarfilm/nobarfilm/internal/logging"
	"github.com/nobarfilm/nobarfilm/internal/metrics"
	"github.com/nobarfilm/nobarfilm/internal/models"
)

// roomCodeCharset excludes nothing: codes are 6 characters drawn from
// A-Z and 0-9, compared case-insensitively.
const roomCodeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// CreateRoomParams carries the inputs for CreateRoom.
type CreateRoomParams struct {
	HostID         string
	SubjectID      string
	SubjectType    int
	Title          string
	CoverURL       string
	CurrentEpisode int
	TTL            time.Duration
	MaxAttempts    int
}

// CreateRoom inserts a new room in one transaction, generating a code
// that is unique among active rooms. Code uniqueness is checked and
// the row inserted inside the same transaction, so two concurrent
// creates cannot commit the same code.
func (db *DB) CreateRoom(ctx context.Context, p CreateRoomParams) (*models.Room, error) {
	start := time.Now()
	room, err := db.createRoom(ctx, p)
	metrics.RecordDBQuery("create_room", "rooms", time.Since(start), err)
	return room, err
}

func (db *DB) createRoom(ctx context.Context, p CreateRoomParams) (*models.Room, error) {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 10
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollbackQuietly(tx)

	now := time.Now().UTC()
	var code string
	for attempt := 0; ; attempt++ {
		if attempt >= p.MaxAttempts {
			return nil, ErrCodeExhausted
		}
		candidate, err := generateRoomCode()
		if err != nil {
			return nil, fmt.Errorf("failed to generate room code: %w", err)
		}

		var taken bool
		err = tx.QueryRowContext(ctx,
			`SELECT EXISTS (
				SELECT 1 FROM rooms
				WHERE code = ? AND is_active = true AND expires_at > ?
			)`, candidate, now).Scan(&taken)
		if err != nil {
			return nil, fmt.Errorf("failed to check code uniqueness: %w", err)
		}
		if !taken {
			code = candidate
			break
		}
	}

	room := &models.Room{
		ID:             uuid.NewString(),
		Code:           code,
		HostID:         p.HostID,
		SubjectID:      p.SubjectID,
		SubjectType:    p.SubjectType,
		Title:          p.Title,
		CoverURL:       p.CoverURL,
		CurrentEpisode: p.CurrentEpisode,
		IsActive:       true,
		ExpiresAt:      now.Add(p.TTL),
		CreatedAt:      now,
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO rooms (id, code, host_id, subject_id, subject_type, title,
			cover_url, current_episode, is_active, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		room.ID, room.Code, room.HostID, room.SubjectID, room.SubjectType,
		room.Title, room.CoverURL, room.CurrentEpisode, room.IsActive,
		room.ExpiresAt, room.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert room: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit room creation: %w", err)
	}
	return room, nil
}

// FindActiveRoom returns the active, unexpired room for the given
// (host, subject) pair, or nil when none exists. This is the dedup
// read before create; the check-then-act window between this read and
// the insert is a documented race, with code uniqueness inside
// CreateRoom as the backstop.
func (db *DB) FindActiveRoom(ctx context.Context, hostID, subjectID string) (*models.Room, error) {
	start := time.Now()
	room, err := db.queryRoom(ctx,
		`SELECT id, code, host_id, subject_id, subject_type, title, cover_url,
			current_episode, is_active, expires_at, created_at
		FROM rooms
		WHERE host_id = ? AND subject_id = ? AND is_active = true AND expires_at > ?
		ORDER BY created_at DESC
		LIMIT 1`, hostID, subjectID, time.Now().UTC())
	metrics.RecordDBQuery("find_active_room", "rooms", time.Since(start), err)
	return room, err
}

// GetRoom returns a room by id, or nil when absent.
func (db *DB) GetRoom(ctx context.Context, roomID string) (*models.Room, error) {
	start := time.Now()
	room, err := db.queryRoom(ctx,
		`SELECT id, code, host_id, subject_id, subject_type, title, cover_url,
			current_episode, is_active, expires_at, created_at
		FROM rooms WHERE id = ?`, roomID)
	metrics.RecordDBQuery("get_room", "rooms", time.Since(start), err)
	return room, err
}

// DeleteExpiredRooms removes a host's expired or closed rooms for one
// subject. Best-effort housekeeping before create; failures are logged
// by the caller, not propagated to the client.
func (db *DB) DeleteExpiredRooms(ctx context.Context, hostID, subjectID string) error {
	start := time.Now()
	_, err := db.conn.ExecContext(ctx,
		`DELETE FROM rooms
		WHERE host_id = ? AND subject_id = ?
			AND (is_active = false OR expires_at <= ?)`,
		hostID, subjectID, time.Now().UTC())
	metrics.RecordDBQuery("delete_expired_rooms", "rooms", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to delete expired rooms: %w", err)
	}
	return nil
}

// JoinRoom atomically validates the room and upserts the caller's
// participant row. The room must exist, be active, and not be expired;
// violations return RoomError values whose messages are user-facing.
//
// The upsert means a rejoin reuses the existing (room, user) row,
// flipping is_connected back and refreshing last_seen_at in place.
func (db *DB) JoinRoom(ctx context.Context, code, userID string) (*models.Room, error) {
	start := time.Now()
	room, err := db.joinRoom(ctx, code, userID)
	metrics.RecordDBQuery("join_room", "room_participants", time.Since(start), err)
	return room, err
}

func (db *DB) joinRoom(ctx context.Context, code, userID string) (*models.Room, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollbackQuietly(tx)

	now := time.Now().UTC()

	var room models.Room
	err = tx.QueryRowContext(ctx,
		`SELECT id, code, host_id, subject_id, subject_type, title, cover_url,
			current_episode, is_active, expires_at, created_at
		FROM rooms
		WHERE code = ?
		ORDER BY created_at DESC
		LIMIT 1`, code).Scan(
		&room.ID, &room.Code, &room.HostID, &room.SubjectID, &room.SubjectType,
		&room.Title, &room.CoverURL, &room.CurrentEpisode, &room.IsActive,
		&room.ExpiresAt, &room.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load room: %w", err)
	}

	if !room.IsActive {
		return nil, ErrRoomClosed
	}
	if now.After(room.ExpiresAt) {
		return nil, ErrRoomExpired
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO room_participants (room_id, user_id, is_connected, joined_at, last_seen_at)
		VALUES (?, ?, true, ?, ?)
		ON CONFLICT (room_id, user_id) DO UPDATE SET
			is_connected = true,
			last_seen_at = EXCLUDED.last_seen_at`,
		room.ID, userID, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert participant: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit join: %w", err)
	}
	return &room, nil
}

// LeaveRoom marks the participant disconnected and refreshes
// last_seen_at, scoped to exactly (roomID, userID). Leaving a room
// never joined is a no-op, so leave is idempotent.
func (db *DB) LeaveRoom(ctx context.Context, roomID, userID string) error {
	start := time.Now()
	_, err := db.conn.ExecContext(ctx,
		`UPDATE room_participants
		SET is_connected = false, last_seen_at = ?
		WHERE room_id = ? AND user_id = ?`,
		time.Now().UTC(), roomID, userID)
	metrics.RecordDBQuery("leave_room", "room_participants", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to leave room: %w", err)
	}
	return nil
}

// ConnectedParticipants returns the participants currently connected
// to a room, oldest join first.
func (db *DB) ConnectedParticipants(ctx context.Context, roomID string) ([]models.Participant, error) {
	start := time.Now()
	participants, err := db.connectedParticipants(ctx, roomID)
	metrics.RecordDBQuery("connected_participants", "room_participants", time.Since(start), err)
	return participants, err
}

func (db *DB) connectedParticipants(ctx context.Context, roomID string) ([]models.Participant, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT room_id, user_id, is_connected, joined_at, last_seen_at
		FROM room_participants
		WHERE room_id = ? AND is_connected = true
		ORDER BY joined_at`, roomID)
	if err != nil {
		return nil, fmt.Errorf("failed to query participants: %w", err)
	}
	defer closeRows(rows)

	participants := make([]models.Participant, 0)
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.RoomID, &p.UserID, &p.IsConnected, &p.JoinedAt, &p.LastSeenAt); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}
	return participants, nil
}

// CloseRoom deactivates a room. Only the host's rooms transition to
// CLOSED; the state is terminal.
func (db *DB) CloseRoom(ctx context.Context, roomID, hostID string) error {
	start := time.Now()
	_, err := db.conn.ExecContext(ctx,
		`UPDATE rooms SET is_active = false WHERE id = ? AND host_id = ?`,
		roomID, hostID)
	metrics.RecordDBQuery("close_room", "rooms", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to close room: %w", err)
	}
	return nil
}

func (db *DB) queryRoom(ctx context.Context, query string, args ...interface{}) (*models.Room, error) {
	var room models.Room
	err := db.conn.QueryRowContext(ctx, query, args...).Scan(
		&room.ID, &room.Code, &room.HostID, &room.SubjectID, &room.SubjectType,
		&room.Title, &room.CoverURL, &room.CurrentEpisode, &room.IsActive,
		&room.ExpiresAt, &room.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query room: %w", err)
	}
	return &room, nil
}

// generateRoomCode produces a 6-character code from crypto/rand.
func generateRoomCode() (string, error) {
	buf := make([]byte, models.RoomCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = roomCodeCharset[int(b)%len(roomCodeCharset)]
	}
	return string(buf), nil
}

func rollbackQuietly(tx *sql.Tx) {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		logging.Warn().Err(err).Msg("Failed to roll back transaction")
	}
}

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		logging.Warn().Err(err).Msg("Failed to close result rows")
	}
}
