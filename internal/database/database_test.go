// NobarFilm - Streaming Aggregation and Watch-Party Server
// Copyright 2026 NobarFilm contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/nobarfilm/nobarfilm/internal/config"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(&config.DatabaseConfig{
		Path:      filepath.Join(t.TempDir(), "test.duckdb"),
		MaxMemory: "256MB",
		Threads:   1,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close test database: %v", err)
		}
	})
	return db
}

func testCreateParams(hostID, subjectID string) CreateRoomParams {
	return CreateRoomParams{
		HostID:         hostID,
		SubjectID:      subjectID,
		SubjectType:    2,
		Title:          "Test Drama",
		CoverURL:       "https://example.com/cover.jpg",
		CurrentEpisode: 1,
		TTL:            time.Hour,
		MaxAttempts:    10,
	}
}

func TestPing(t *testing.T) {
	db := newTestDB(t)
	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("ping failed: %v", err)
	}
}

func TestCreateRoom(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	room, err := db.CreateRoom(ctx, testCreateParams("host-1", "subject-1"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if len(room.Code) != 6 {
		t.Errorf("expected 6-char code, got %q", room.Code)
	}
	if room.ID == "" {
		t.Error("expected non-empty room id")
	}
	if !room.IsActive {
		t.Error("expected new room active")
	}
	if !room.ExpiresAt.After(room.CreatedAt) {
		t.Error("expected expiry after creation time")
	}
}

func TestFindActiveRoom(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if room, err := db.FindActiveRoom(ctx, "host-1", "subject-1"); err != nil || room != nil {
		t.Fatalf("expected no active room, got %v, %v", room, err)
	}

	created, err := db.CreateRoom(ctx, testCreateParams("host-1", "subject-1"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	found, err := db.FindActiveRoom(ctx, "host-1", "subject-1")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if found == nil || found.ID != created.ID {
		t.Errorf("expected to find room %s, got %+v", created.ID, found)
	}

	// Different subject must not match.
	if room, _ := db.FindActiveRoom(ctx, "host-1", "other"); room != nil {
		t.Error("expected no match for different subject")
	}
}

func TestJoinRoom(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	created, err := db.CreateRoom(ctx, testCreateParams("host-1", "subject-1"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	room, err := db.JoinRoom(ctx, created.Code, "user-2")
	if err != nil {
		t.Fatalf("join failed: %v", err)
	}
	if room.ID != created.ID {
		t.Errorf("expected joined room %s, got %s", created.ID, room.ID)
	}

	participants, err := db.ConnectedParticipants(ctx, created.ID)
	if err != nil {
		t.Fatalf("participants query failed: %v", err)
	}
	if len(participants) != 1 || participants[0].UserID != "user-2" {
		t.Fatalf("expected user-2 connected, got %+v", participants)
	}
}

func TestJoinRoomNotFound(t *testing.T) {
	db := newTestDB(t)

	_, err := db.JoinRoom(context.Background(), "ZZZZZZ", "user-1")
	if err != ErrRoomNotFound {
		t.Errorf("expected ErrRoomNotFound, got %v", err)
	}
	if !IsRoomError(err) {
		t.Error("expected business room error")
	}
}

func TestJoinRoomExpired(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	params := testCreateParams("host-1", "subject-1")
	params.TTL = -time.Minute
	created, err := db.CreateRoom(ctx, params)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	_, err = db.JoinRoom(ctx, created.Code, "user-2")
	if err != ErrRoomExpired {
		t.Errorf("expected ErrRoomExpired, got %v", err)
	}
	if err.Error() != "Room expired" {
		t.Errorf("expected verbatim message %q, got %q", "Room expired", err.Error())
	}

	// A rejected join must not leave a participant row behind.
	participants, err := db.ConnectedParticipants(ctx, created.ID)
	if err != nil {
		t.Fatalf("participants query failed: %v", err)
	}
	if len(participants) != 0 {
		t.Errorf("expected no participants after rejected join, got %d", len(participants))
	}
}

func TestJoinRoomClosed(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	created, err := db.CreateRoom(ctx, testCreateParams("host-1", "subject-1"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if err := db.CloseRoom(ctx, created.ID, "host-1"); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	if _, err := db.JoinRoom(ctx, created.Code, "user-2"); err != ErrRoomClosed {
		t.Errorf("expected ErrRoomClosed, got %v", err)
	}
}

func TestRejoinReusesParticipantRow(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	created, err := db.CreateRoom(ctx, testCreateParams("host-1", "subject-1"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := db.JoinRoom(ctx, created.Code, "user-2"); err != nil {
		t.Fatalf("first join failed: %v", err)
	}
	if err := db.LeaveRoom(ctx, created.ID, "user-2"); err != nil {
		t.Fatalf("leave failed: %v", err)
	}

	if connected, _ := db.ConnectedParticipants(ctx, created.ID); len(connected) != 0 {
		t.Fatalf("expected 0 connected after leave, got %d", len(connected))
	}

	if _, err := db.JoinRoom(ctx, created.Code, "user-2"); err != nil {
		t.Fatalf("rejoin failed: %v", err)
	}
	connected, err := db.ConnectedParticipants(ctx, created.ID)
	if err != nil {
		t.Fatalf("participants query failed: %v", err)
	}
	if len(connected) != 1 {
		t.Fatalf("expected rejoin to reuse the participant row, got %d rows", len(connected))
	}
}

func TestLeaveRoomIdempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	created, err := db.CreateRoom(ctx, testCreateParams("host-1", "subject-1"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// Leaving without ever joining must not error.
	if err := db.LeaveRoom(ctx, created.ID, "never-joined"); err != nil {
		t.Errorf("expected idempotent leave, got %v", err)
	}
	if err := db.LeaveRoom(ctx, created.ID, "never-joined"); err != nil {
		t.Errorf("expected repeated leave to succeed, got %v", err)
	}
}

func TestDeleteExpiredRooms(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	expired := testCreateParams("host-1", "subject-1")
	expired.TTL = -time.Minute
	if _, err := db.CreateRoom(ctx, expired); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	live, err := db.CreateRoom(ctx, testCreateParams("host-1", "subject-1"))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if err := db.DeleteExpiredRooms(ctx, "host-1", "subject-1"); err != nil {
		t.Fatalf("housekeeping failed: %v", err)
	}

	found, err := db.FindActiveRoom(ctx, "host-1", "subject-1")
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if found == nil || found.ID != live.ID {
		t.Errorf("expected live room %s to survive housekeeping, got %+v", live.ID, found)
	}
}

func TestGenerateRoomCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		code, err := generateRoomCode()
		if err != nil {
			t.Fatalf("generation failed: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("expected 6-char code, got %q", code)
		}
		for _, r := range code {
			if !((r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
				t.Fatalf("unexpected character %q in code %q", r, code)
			}
		}
		seen[code] = true
	}
	// 100 draws from a 36^6 space colliding down to a handful would
	// indicate broken randomness.
	if len(seen) < 95 {
		t.Errorf("expected ~100 distinct codes, got %d", len(seen))
	}
}
