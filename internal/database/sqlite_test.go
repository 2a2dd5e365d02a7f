package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jason-s-yu/farkle/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTempStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "nested", "farkle.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestOpenSQLite_RequiresPath(t *testing.T) {
	_, err := OpenSQLite("  ")
	assert.Error(t, err)
}

func TestUpsertUser_PreservesCreatedAt(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	first := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	store.now = func() time.Time { return first }
	u, err := store.UpsertUser(ctx, models.User{ID: "u1", Username: "dice_fan"})
	require.NoError(t, err)
	assert.Equal(t, "dice_fan", u.DisplayName, "display name falls back to username")
	assert.Equal(t, first, u.CreatedAt)

	later := first.Add(48 * time.Hour)
	store.now = func() time.Time { return later }
	u, err = store.UpsertUser(ctx, models.User{ID: "u1", DisplayName: "Dice Fan", Username: "dice_fan", Avatar: "a.png"})
	require.NoError(t, err)
	assert.Equal(t, first, u.CreatedAt)
	assert.Equal(t, later, u.LastLogin)

	got, err := store.GetUser(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Dice Fan", got.DisplayName)
	assert.Equal(t, "a.png", got.Avatar)

	_, err = store.UpsertUser(ctx, models.User{})
	assert.ErrorIs(t, err, ErrInvalidUser)
}

func TestGetUser_Missing(t *testing.T) {
	store := openTempStore(t)
	got, err := store.GetUser(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRecordGameEndAndLeaderboard(t *testing.T) {
	store := openTempStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c", "idle"} {
		_, err := store.UpsertUser(ctx, models.User{ID: id, DisplayName: "name-" + id})
		require.NoError(t, err)
	}

	require.NoError(t, store.RecordGameEnd(ctx, "a", true, 10500, 1200, 2))
	require.NoError(t, store.RecordGameEnd(ctx, "a", false, 4000, 800, 5))
	require.NoError(t, store.RecordGameEnd(ctx, "b", true, 10050, 2000, 1))
	require.NoError(t, store.RecordGameEnd(ctx, "c", false, 9000, 600, 0))

	board, err := store.GetLeaderboard(ctx, 10)
	require.NoError(t, err)
	require.Len(t, board, 4)

	var ids []string
	for _, e := range board {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"a", "b", "c", "idle"}, ids, "wins then total score, users without stats last")

	assert.Equal(t, models.LeaderboardEntry{
		ID: "a", Name: "name-a", Wins: 1, GamesPlayed: 2, HighestScore: 10500, TotalScore: 14500,
	}, board[0])
	assert.Zero(t, board[3].GamesPlayed)

	top, err := store.GetLeaderboard(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, top, 2)
}

func TestRecordGameEnd_UnknownUserFails(t *testing.T) {
	store := openTempStore(t)
	err := store.RecordGameEnd(context.Background(), "ghost", true, 100, 100, 0)
	assert.Error(t, err, "stats reference an existing user")
}

func TestNopStore(t *testing.T) {
	var s Store = NopStore{}
	ctx := context.Background()

	u, err := s.UpsertUser(ctx, models.User{ID: "x", Username: "x_user"})
	require.NoError(t, err)
	assert.Equal(t, "x_user", u.DisplayName)

	got, err := s.GetUser(ctx, "x")
	assert.NoError(t, err)
	assert.Nil(t, got)

	board, err := s.GetLeaderboard(ctx, 5)
	assert.NoError(t, err)
	assert.NotNil(t, board)
	assert.NoError(t, s.Close())
}
