// internal/game/room_test.go
package game

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jason-s-yu/farkle/internal/cache"
	"github.com/jason-s-yu/farkle/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockBroadcaster collects events instead of sending them over WS.
type mockBroadcaster struct {
	mu     sync.Mutex
	events []Event
}

func (mb *mockBroadcaster) broadcastFn(ev Event) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	mb.events = append(mb.events, ev)
}

func (mb *mockBroadcaster) types() []EventType {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	out := make([]EventType, 0, len(mb.events))
	for _, ev := range mb.events {
		out = append(out, ev.Type)
	}
	return out
}

func (mb *mockBroadcaster) last() Event {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	return mb.events[len(mb.events)-1]
}

type mockPublisher struct {
	mu      sync.Mutex
	actions []string
}

func (mp *mockPublisher) PublishRoomAction(_ context.Context, rec cache.RoomActionRecord) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.actions = append(mp.actions, rec.ActionType)
	return nil
}

func (mp *mockPublisher) has(action string) bool {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	for _, a := range mp.actions {
		if a == action {
			return true
		}
	}
	return false
}

func setupTestRoom(t *testing.T, rules RuleConfig, delay time.Duration) (*Room, *mockBroadcaster, *mockPublisher) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	r := NewRoom("Test", rules, logger)
	mb := &mockBroadcaster{}
	mp := &mockPublisher{}
	r.BroadcastFn = mb.broadcastFn
	r.Publisher = mp
	r.FarkleDelay = delay
	t.Cleanup(r.Close)
	return r, mb, mp
}

func TestRoom_JoinBroadcasts(t *testing.T) {
	r, mb, mp := setupTestRoom(t, classicRules(), time.Hour)

	out, snap, err := r.Join("a", false, &models.User{ID: "user-a", Avatar: "a.png"})
	require.NoError(t, err)
	assert.Equal(t, "Player 1", out.Name)
	assert.Equal(t, "user-a", snap.Players[0].UserID)

	_, _, err = r.Join("b", false, nil)
	require.NoError(t, err)

	assert.Equal(t, []EventType{EventGameStateUpdate, EventGameStateUpdate, EventGameStart}, mb.types())
	last := mb.last()
	assert.Equal(t, "Test", last.RoomCode)
	assert.ElementsMatch(t, []string{"a", "b"}, last.Recipients)
	require.NotNil(t, last.State)
	assert.Equal(t, StatusPlaying, last.State.GameStatus)

	assert.Eventually(t, func() bool {
		return mp.has("player_join") && mp.has("game_start")
	}, time.Second, 10*time.Millisecond)

	summary := r.Summary()
	assert.Equal(t, 2, summary.Count)
	assert.Equal(t, MaxPlayers, summary.Max)
	assert.Equal(t, "Classic Rules • 10,000 Pts", summary.RulesSummary)
}

func TestRoom_AttachProfileAfterJoin(t *testing.T) {
	r, mb, mp := setupTestRoom(t, classicRules(), time.Second)
	_, _, err := r.Join("a", false, nil)
	require.NoError(t, err)
	require.Empty(t, r.State().Players[0].UserID)
	sent := len(mb.types())

	assert.True(t, r.AttachProfile("a", models.User{ID: "user-a"}))
	assert.Equal(t, "user-a", r.State().Players[0].UserID)
	assert.True(t, mp.has("player_identify"))
	assert.Len(t, mb.types(), sent+1)

	assert.True(t, r.AttachProfile("a", models.User{ID: "user-a"}))
	assert.Len(t, mb.types(), sent+1, "an unchanged profile is not rebroadcast")
	assert.False(t, r.AttachProfile("ghost", models.User{ID: "user-g"}))
}

func TestRoom_RejectedActionBroadcastsNothing(t *testing.T) {
	r, mb, _ := setupTestRoom(t, classicRules(), time.Hour)
	_, _, _ = r.Join("a", false, nil)
	_, _, _ = r.Join("b", false, nil)
	before := len(mb.types())

	_, err := r.Roll("b", nil, false)
	assert.ErrorIs(t, err, ErrNotYourTurn)
	_, err = r.Bank("b", nil)
	assert.ErrorIs(t, err, ErrNotYourTurn)
	assert.Len(t, mb.types(), before)
}

func TestRoom_DelayedFarkle(t *testing.T) {
	r, mb, _ := setupTestRoom(t, classicRules(), 20*time.Millisecond)
	r.SetRoller(script(farkleSix...))
	_, _, _ = r.Join("a", false, nil)
	_, _, _ = r.Join("b", false, nil)

	out, err := r.Roll("a", nil, false)
	require.NoError(t, err)
	require.True(t, out.Farkle)

	rolled := mb.last()
	assert.Equal(t, EventRollResult, rolled.Type)
	assert.True(t, rolled.Farkle)
	assert.Len(t, rolled.Dice, 6)
	assert.Equal(t, 0, r.State().CurrentPlayerIndex, "the farkle stays on the table first")
	seq := r.State().TurnSeq

	assert.Eventually(t, func() bool {
		return r.State().CurrentPlayerIndex == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, EventGameStateUpdate, mb.last().Type)

	assert.False(t, r.ResolveFarkle(seq), "the timer already resolved this turn")
}

func TestRoom_ResolveFarkleIsIdempotent(t *testing.T) {
	r, mb, _ := setupTestRoom(t, classicRules(), time.Hour)
	r.SetRoller(script(farkleSix...))
	_, _, _ = r.Join("a", false, nil)
	_, _, _ = r.Join("b", false, nil)

	_, err := r.Roll("a", nil, false)
	require.NoError(t, err)
	seq := r.State().TurnSeq

	assert.False(t, r.ResolveFarkle(seq+1))
	assert.True(t, r.ResolveFarkle(seq))
	count := len(mb.types())
	assert.False(t, r.ResolveFarkle(seq))
	assert.Len(t, mb.types(), count)
	assert.Equal(t, 1, r.State().CurrentPlayerIndex)
}

func TestRoom_LeaveDuringPendingFarkle(t *testing.T) {
	r, _, _ := setupTestRoom(t, classicRules(), time.Hour)
	r.SetRoller(script(farkleSix...))
	_, _, _ = r.Join("a", false, nil)
	_, _, _ = r.Join("b", false, nil)
	_, _, _ = r.Join("c", false, nil)

	_, err := r.Roll("a", nil, false)
	require.NoError(t, err)
	seq := r.State().TurnSeq

	require.True(t, r.Leave("a"))
	assert.Equal(t, 1, r.State().CurrentPlayerIndex)
	assert.False(t, r.ResolveFarkle(seq), "the turn already moved on")
	assert.Equal(t, 1, r.State().CurrentPlayerIndex)
}

func TestRoom_ConfirmedSelectionsAreSyncedBeforeBank(t *testing.T) {
	r, _, _ := setupTestRoom(t, classicRules(), time.Hour)
	r.SetRoller(script(1, 1, 1, 2, 3, 4))
	_, _, _ = r.Join("a", false, nil)
	_, _, _ = r.Join("b", false, nil)

	_, err := r.Roll("a", nil, false)
	require.NoError(t, err)

	var ones []string
	for _, d := range r.State().CurrentDice {
		if d.Value == 1 {
			ones = append(ones, d.ID)
		}
	}
	out, err := r.Bank("a", ones)
	require.NoError(t, err)
	assert.Equal(t, 1000, out.Points)
	assert.Equal(t, 1000, r.State().Players[0].Score)
}

func TestRoom_SelectionBroadcasts(t *testing.T) {
	r, mb, _ := setupTestRoom(t, classicRules(), time.Hour)
	r.SetRoller(script(1, 2, 3, 4, 6, 6))

	require.NoError(t, r.ToggleDie("a", "nothing"), "ignored while waiting")
	assert.Empty(t, mb.types())

	_, _, _ = r.Join("a", false, nil)
	_, _, _ = r.Join("b", false, nil)
	_, err := r.Roll("a", nil, false)
	require.NoError(t, err)
	id := r.State().CurrentDice[0].ID

	require.NoError(t, r.ToggleDie("a", id))
	assert.True(t, mb.last().State.CurrentDice[0].Selected)
	require.NoError(t, r.SetSelection("a", nil))
	assert.False(t, mb.last().State.CurrentDice[0].Selected)
	assert.ErrorIs(t, r.SetSelection("b", []string{id}), ErrNotYourTurn)
}

func TestRoom_GameEndAndRestart(t *testing.T) {
	r, mb, mp := setupTestRoom(t, classicRules(), time.Hour)
	ended := make(chan GameState, 1)
	r.OnGameEnd = func(final GameState) { ended <- final }

	_, _, _ = r.Join("a", false, nil)
	_, _, _ = r.Join("b", false, nil)

	r.mu.Lock()
	r.state.Players[1].Score = 10200
	r.state.IsFinalRound = true
	r.state.FinalRoundTriggeredBy = 1
	r.mu.Unlock()

	assert.ErrorIs(t, r.Restart("admin"), ErrNotFinished)
	require.NoError(t, r.ForceNextTurn("admin"))

	select {
	case final := <-ended:
		assert.Equal(t, StatusFinished, final.Status)
		require.NotNil(t, final.Winner)
		assert.Equal(t, "b", final.Winner.Player.ID)
	case <-time.After(time.Second):
		t.Fatal("OnGameEnd was not called")
	}
	assert.Equal(t, EventGameOver, mb.last().Type)
	assert.Eventually(t, func() bool { return mp.has("game_end") }, time.Second, 10*time.Millisecond)

	require.NoError(t, r.Restart("admin"))
	st := r.State()
	assert.Equal(t, StatusPlaying, st.Status)
	assert.Zero(t, st.Players[1].Score)
	assert.Equal(t, EventGameStart, mb.last().Type)
}

func TestRoom_LogsRejections(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	r := NewRoom("Logged", DefaultRules(), logger)
	defer r.Close()

	_, err := r.Roll("ghost", nil, false)
	require.ErrorIs(t, err, ErrGameNotActive)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "Logged", hook.LastEntry().Data["room"])
	assert.Equal(t, "ghost", hook.LastEntry().Data["player"])
}
