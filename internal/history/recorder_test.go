// NobarFilm - Streaming Aggregation and Watch-Party Server
// Copyright 2026 NobarFilm contributors
// SPDX-License-Identifier: AGPL-3.0-or-later

package history

import (
	"context"
	"testing"
	"time"

	"github.com/nobarfilm/nobarfilm/internal/models"
)

type mockStore struct {
	saved   *models.WatchHistoryRecord
	record  *models.WatchHistoryRecord
	records []models.WatchHistoryRecord
	deleted bool

	getEpisode int
}

func (m *mockStore) UpsertWatchHistory(ctx context.Context, rec *models.WatchHistoryRecord) error {
	m.saved = rec
	return nil
}

func (m *mockStore) GetWatchHistory(ctx context.Context, userID, subjectID string, episode int) (*models.WatchHistoryRecord, error) {
	m.getEpisode = episode
	return m.record, nil
}

func (m *mockStore) ListWatchHistory(ctx context.Context, userID string, limit int) ([]models.WatchHistoryRecord, error) {
	return m.records, nil
}

func (m *mockStore) DeleteWatchHistory(ctx context.Context, id, userID string) (bool, error) {
	return m.deleted, nil
}

func TestSaveDerivesCompletion(t *testing.T) {
	tests := []struct {
		name      string
		progress  float64
		duration  float64
		completed bool
	}{
		{"at 90 percent boundary", 540, 600, true},
		{"one second under boundary", 539, 600, false},
		{"finished", 600, 600, true},
		{"barely started", 5, 600, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &mockStore{}
			rec, err := New(store).Save(context.Background(), "u1", models.SaveProgressRequest{
				SubjectID: "s1", Title: "Show", CurrentEpisode: 3,
				ProgressSeconds: tt.progress, DurationSeconds: tt.duration,
			})
			if err != nil {
				t.Fatalf("save failed: %v", err)
			}
			if rec.Completed != tt.completed {
				t.Errorf("progress %.0f/%.0f: completed = %v, want %v",
					tt.progress, tt.duration, rec.Completed, tt.completed)
			}
		})
	}
}

func TestSaveFloorsFractionalSeconds(t *testing.T) {
	store := &mockStore{}
	rec, err := New(store).Save(context.Background(), "u1", models.SaveProgressRequest{
		SubjectID: "s1", Title: "Show",
		ProgressSeconds: 539.9, DurationSeconds: 600.7,
	})
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if rec.ProgressSeconds != 539 || rec.DurationSeconds != 600 {
		t.Errorf("expected floored 539/600, got %d/%d", rec.ProgressSeconds, rec.DurationSeconds)
	}
	// 539.9 floors below the boundary before the threshold check.
	if rec.Completed {
		t.Error("539/600 must not count as completed")
	}
}

func TestSaveCompletionOverride(t *testing.T) {
	override := true
	store := &mockStore{}
	rec, err := New(store).Save(context.Background(), "u1", models.SaveProgressRequest{
		SubjectID: "s1", Title: "Show",
		ProgressSeconds: 10, DurationSeconds: 600,
		Completed: &override,
	})
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if !rec.Completed {
		t.Error("explicit completed=true must win over the threshold")
	}
}

func TestSaveNormalizesMovieEpisode(t *testing.T) {
	for _, episode := range []int{0, -3} {
		store := &mockStore{}
		rec, err := New(store).Save(context.Background(), "u1", models.SaveProgressRequest{
			SubjectID: "movie-1", Title: "Film", CurrentEpisode: episode,
			ProgressSeconds: 100, DurationSeconds: 7200,
		})
		if err != nil {
			t.Fatalf("save failed: %v", err)
		}
		if rec.CurrentEpisode != 1 {
			t.Errorf("episode %d: expected canonical 1, got %d", episode, rec.CurrentEpisode)
		}
	}
}

func TestGetProgressNormalizesEpisode(t *testing.T) {
	store := &mockStore{}
	if _, err := New(store).GetProgress(context.Background(), "u1", "movie-1", 0); err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if store.getEpisode != 1 {
		t.Errorf("expected store queried with episode 1, got %d", store.getEpisode)
	}
}

func TestGetProgressAbsentIsZero(t *testing.T) {
	store := &mockStore{}
	progress, err := New(store).GetProgress(context.Background(), "u1", "s1", 2)
	if err != nil {
		t.Fatalf("expected zero projection, got error %v", err)
	}
	if progress.Progress != 0 || progress.Duration != 0 || progress.Completed {
		t.Errorf("expected zero projection, got %+v", progress)
	}
	if progress.LastWatchedAt != nil {
		t.Error("absent record must not carry a watch timestamp")
	}
}

func TestGetProgressProjectsRecord(t *testing.T) {
	watched := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	store := &mockStore{
		record: &models.WatchHistoryRecord{
			ProgressSeconds: 540, DurationSeconds: 600,
			Completed: true, LastWatchedAt: watched,
		},
	}
	progress, err := New(store).GetProgress(context.Background(), "u1", "s1", 3)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if progress.Progress != 540 || !progress.Completed {
		t.Errorf("unexpected projection %+v", progress)
	}
	if progress.LastWatchedAt == nil || !progress.LastWatchedAt.Equal(watched) {
		t.Errorf("expected watch timestamp %v, got %v", watched, progress.LastWatchedAt)
	}
}

func TestDeleteReportsOwnership(t *testing.T) {
	store := &mockStore{deleted: false}
	ok, err := New(store).Delete(context.Background(), "h1", "u1")
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if ok {
		t.Error("expected not-deleted for foreign or missing entry")
	}
}
