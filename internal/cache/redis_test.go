// internal/cache/redis_test.go
package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jason-s-yu/farkle/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilClientIsNoop(t *testing.T) {
	var c *Client
	ctx := context.Background()

	assert.NoError(t, c.PublishRoomAction(ctx, RoomActionRecord{RoomCode: "Classic 1"}))
	entries, hit, err := c.GetLeaderboard(ctx, 10)
	assert.NoError(t, err)
	assert.False(t, hit)
	assert.Nil(t, entries)
	assert.NoError(t, c.SetLeaderboard(ctx, 10, nil))
	assert.NoError(t, c.InvalidateLeaderboard(ctx))
	assert.Equal(t, DefaultQueueName, c.QueueName())
	assert.Nil(t, c.Redis())
	assert.NoError(t, c.Close())

	_, err = c.PopRoomAction(ctx, time.Millisecond)
	assert.Error(t, err, "the historian cannot run without redis")
}

// connectTestRedis needs a real Redis; set REDIS_TEST_ADDR to run the integration tests.
func connectTestRedis(t *testing.T) *Client {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	c, err := Connect(context.Background(), Options{
		Addr:           addr,
		QueueName:      "farkle_test_actions_" + time.Now().Format("150405.000000"),
		LeaderboardTTL: time.Minute,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = c.Redis().Del(context.Background(), c.QueueName()).Err()
		_ = c.InvalidateLeaderboard(context.Background())
		_ = c.Close()
	})
	return c
}

func TestQueueRoundTrip(t *testing.T) {
	c := connectTestRedis(t)
	ctx := context.Background()

	rec := RoomActionRecord{
		RoomCode:      "Classic 1",
		ActionIndex:   7,
		ActorID:       "p1",
		ActionType:    "player_bank",
		ActionPayload: map[string]interface{}{"points": float64(350)},
		Timestamp:     time.Now().UnixMilli(),
	}
	require.NoError(t, c.PublishRoomAction(ctx, rec))

	got, err := c.PopRoomAction(ctx, time.Second)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, rec, *got)

	got, err = c.PopRoomAction(ctx, 100*time.Millisecond)
	require.NoError(t, err)
	assert.Nil(t, got, "an empty queue times out")
}

func TestLeaderboardCache(t *testing.T) {
	c := connectTestRedis(t)
	ctx := context.Background()

	entries := []models.LeaderboardEntry{{ID: "a", Name: "Ada", Wins: 3}}
	require.NoError(t, c.SetLeaderboard(ctx, 5, entries))

	got, hit, err := c.GetLeaderboard(ctx, 5)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, entries, got)

	require.NoError(t, c.InvalidateLeaderboard(ctx))
	_, hit, err = c.GetLeaderboard(ctx, 5)
	require.NoError(t, err)
	assert.False(t, hit)
}
