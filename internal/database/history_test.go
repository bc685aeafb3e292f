// NobarFilm - Streaming Aggregation and Watch-Party Server
// Copyright 2026 NobarFilm contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package database

import (
	"context"
	"testing"
	"time"

	"github.com/nobarfilm/nobarfilm/internal/models"
)

func testRecord(userID, subjectID string, episode int, progress, duration int64) *models.WatchHistoryRecord {
	return &models.WatchHistoryRecord{
		UserID:          userID,
		SubjectID:       subjectID,
		SubjectType:     2,
		Title:           "Test Drama",
		CurrentEpisode:  episode,
		TotalEpisodes:   12,
		ProgressSeconds: progress,
		DurationSeconds: duration,
		Completed:       models.IsCompleted(progress, duration),
		LastWatchedAt:   time.Now().UTC(),
	}
}

func TestUpsertAndGetWatchHistory(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	rec := testRecord("u1", "s1", 3, 540, 600)
	if err := db.UpsertWatchHistory(ctx, rec); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	got, err := db.GetWatchHistory(ctx, "u1", "s1", 3)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got == nil {
		t.Fatal("expected stored record")
	}
	if got.ProgressSeconds != 540 || got.DurationSeconds != 600 {
		t.Errorf("expected 540/600, got %d/%d", got.ProgressSeconds, got.DurationSeconds)
	}
	if !got.Completed {
		t.Error("expected 540/600 to be completed (exactly 90%)")
	}
}

func TestUpsertOverwritesSameTriple(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.UpsertWatchHistory(ctx, testRecord("u1", "s1", 3, 100, 600)); err != nil {
		t.Fatalf("first upsert failed: %v", err)
	}
	if err := db.UpsertWatchHistory(ctx, testRecord("u1", "s1", 3, 550, 600)); err != nil {
		t.Fatalf("second upsert failed: %v", err)
	}

	records, err := db.ListWatchHistory(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected exactly one row for the triple, got %d", len(records))
	}
	if records[0].ProgressSeconds != 550 {
		t.Errorf("expected latest progress 550, got %d", records[0].ProgressSeconds)
	}
}

func TestDifferentEpisodesAreSeparateRows(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.UpsertWatchHistory(ctx, testRecord("u1", "s1", 1, 100, 600)); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if err := db.UpsertWatchHistory(ctx, testRecord("u1", "s1", 2, 200, 600)); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	records, err := db.ListWatchHistory(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("expected 2 rows for distinct episodes, got %d", len(records))
	}
}

func TestGetWatchHistoryAbsent(t *testing.T) {
	db := newTestDB(t)

	got, err := db.GetWatchHistory(context.Background(), "u1", "never", 1)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil for absent record, got %+v", got)
	}
}

func TestListWatchHistoryNewestFirst(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	older := testRecord("u1", "s1", 1, 100, 600)
	older.LastWatchedAt = time.Now().UTC().Add(-time.Hour)
	if err := db.UpsertWatchHistory(ctx, older); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	newer := testRecord("u1", "s2", 1, 200, 600)
	if err := db.UpsertWatchHistory(ctx, newer); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	records, err := db.ListWatchHistory(ctx, "u1", 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(records))
	}
	if records[0].SubjectID != "s2" {
		t.Errorf("expected newest record first, got %q", records[0].SubjectID)
	}
}

func TestDeleteWatchHistoryScopedToOwner(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	rec := testRecord("u1", "s1", 1, 100, 600)
	if err := db.UpsertWatchHistory(ctx, rec); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	// Another user cannot delete the row.
	deleted, err := db.DeleteWatchHistory(ctx, rec.ID, "u2")
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if deleted {
		t.Error("expected delete scoped to owner to affect nothing")
	}

	deleted, err = db.DeleteWatchHistory(ctx, rec.ID, "u1")
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if !deleted {
		t.Error("expected owner delete to remove the row")
	}

	if got, _ := db.GetWatchHistory(ctx, "u1", "s1", 1); got != nil {
		t.Error("expected record gone after delete")
	}
}
