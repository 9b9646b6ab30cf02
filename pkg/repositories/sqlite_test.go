package repositories

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/cbodonnell/vibemod/pkg/repositories/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLiteRepository(t *testing.T) Repository {
	t.Helper()
	ctx := context.Background()
	repo, err := NewSQLiteRepository(ctx, filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close(ctx) })
	return repo
}

func TestSQLiteRepository_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	repo := newTestSQLiteRepository(t)

	endedAt := time.UnixMilli(1_700_000_000_000).UTC()
	result := &models.RoundResult{
		Room:    "room-1",
		Round:   2,
		Mode:    "hide-and-seek",
		Reason:  "timeout",
		EndedAt: endedAt,
		Scores: []models.ParticipantScore{
			{ParticipantID: "a", Score: 20},
			{ParticipantID: "b", Score: 0},
		},
	}
	require.NoError(t, repo.SaveRoundResult(ctx, result))
	require.NotEmpty(t, result.ID)

	got, err := repo.GetRoundResult(ctx, result.ID)
	require.NoError(t, err)
	assert.Equal(t, result, got)
}

func TestSQLiteRepository_GetRoundResult_notFound(t *testing.T) {
	repo := newTestSQLiteRepository(t)

	_, err := repo.GetRoundResult(context.Background(), "missing")
	assert.True(t, IsNotFound(err))
}

func TestSQLiteRepository_ListRoundResults(t *testing.T) {
	ctx := context.Background()
	repo := newTestSQLiteRepository(t)

	base := time.UnixMilli(1_700_000_000_000).UTC()
	for i, room := range []string{"a", "b", "a", "a"} {
		require.NoError(t, repo.SaveRoundResult(ctx, &models.RoundResult{
			Room:    room,
			Round:   uint32(i + 1),
			Mode:    "infection",
			Reason:  "condition",
			EndedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	tests := []struct {
		name       string
		room       string
		limit      int
		wantRounds []uint32
	}{
		{name: "all rooms", room: "", limit: 0, wantRounds: []uint32{4, 3, 2, 1}},
		{name: "one room", room: "a", limit: 10, wantRounds: []uint32{4, 3, 1}},
		{name: "limited", room: "a", limit: 2, wantRounds: []uint32{4, 3}},
		{name: "unknown room", room: "z", limit: 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := repo.ListRoundResults(ctx, tt.room, tt.limit)
			require.NoError(t, err)
			var rounds []uint32
			for _, r := range results {
				rounds = append(rounds, r.Round)
				assert.NotNil(t, r.Scores)
			}
			assert.Equal(t, tt.wantRounds, rounds)
		})
	}
}

func TestNewRepositoryFromURL(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	repo, err := NewRepositoryFromURL(ctx, "sqlite://"+filepath.Join(dir, "open.db"))
	require.NoError(t, err)
	require.NoError(t, repo.Close(ctx))

	tests := []string{"mysql://localhost/db", "sqlite://", "::not a url"}
	for _, connStr := range tests {
		t.Run(connStr, func(t *testing.T) {
			_, err := NewRepositoryFromURL(ctx, connStr)
			assert.Error(t, err)
		})
	}
}
