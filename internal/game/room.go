// internal/game/room.go
package game

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jason-s-yu/farkle/internal/cache"
	"github.com/jason-s-yu/farkle/internal/models"
	"github.com/sirupsen/logrus"
)

// DefaultFarkleDelay is how long a farkled roll stays on the table before the turn passes.
const DefaultFarkleDelay = 3 * time.Second

// ActionPublisher receives every applied room action, e.g. for the historian queue.
type ActionPublisher interface {
	PublishRoomAction(ctx context.Context, record cache.RoomActionRecord) error
}

// GameEndFunc is invoked once, in its own goroutine, each time a room enters finished.
type GameEndFunc func(final GameState)

// Room owns one GameState. Every intent runs to completion under mu: the pure transition
// is applied, the result committed, the action published and a snapshot broadcast.
type Room struct {
	Code string

	mu          sync.Mutex
	state       GameState
	roller      Roller
	actionIndex int
	farkleTimer *time.Timer

	// FarkleDelay is the pause between a farkled roll and the turn passing.
	FarkleDelay time.Duration

	// BroadcastFn sends events to the room's participants. If nil, no broadcast is done.
	BroadcastFn func(ev Event)

	// OnGameEnd is invoked when the game finishes, e.g. to persist results.
	OnGameEnd GameEndFunc

	// Publisher receives the action log. Optional.
	Publisher ActionPublisher

	log *logrus.Entry
}

// NewRoom builds an empty waiting room with a private copy of rules.
func NewRoom(code string, rules RuleConfig, logger *logrus.Logger) *Room {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Room{
		Code:        code,
		state:       NewGameState(code, rules),
		roller:      RandomRoller{},
		FarkleDelay: DefaultFarkleDelay,
		log:         logger.WithField("room", code),
	}
}

// SetRoller replaces the dice source.
func (r *Room) SetRoller(roller Roller) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.roller = roller
}

// State returns a copy of the current state.
func (r *Room) State() GameState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.clone()
}

// Snapshot returns the current wire view.
func (r *Room) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.Snapshot()
}

// Summary returns the lobby entry for this room.
func (r *Room) Summary() RoomSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	return RoomSummary{
		Name:         r.Code,
		Count:        r.state.ConnectedPlayers(),
		Spectators:   len(r.state.Spectators),
		Max:          MaxPlayers,
		Status:       r.state.Status,
		Category:     r.state.Rules.Category,
		RulesSummary: r.state.Rules.Summary(),
	}
}

// Join seats playerID, or adds it as a spectator. profile, when present, is attached to
// the seat so the game result can be persisted against it.
func (r *Room) Join(playerID string, spectator bool, profile *models.User) (JoinOutcome, Snapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	next, out, err := r.state.Join(playerID, spectator)
	if err != nil {
		r.log.WithField("player", playerID).Debugf("join rejected: %v", err)
		return out, Snapshot{}, err
	}
	if profile != nil && !out.Spectator {
		next = next.AttachProfile(playerID, profile.ID, profile.Avatar)
	}

	r.apply(next, playerID, "player_join", map[string]interface{}{
		"spectator": out.Spectator,
		"rejoin":    out.Rejoined,
		"name":      out.Name,
	}, Event{Type: EventGameStateUpdate})

	if out.Started {
		r.log.WithField("turn", r.state.TurnSeq).Info("game started")
		r.logAction("", "game_start", nil)
		r.broadcast(Event{Type: EventGameStart})
	}
	return out, r.state.Snapshot(), nil
}

// Leave removes playerID from the room. It reports whether anything changed.
func (r *Room) Leave(playerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	next, changed := r.state.Leave(playerID)
	if !changed {
		return false
	}
	r.apply(next, playerID, "player_leave", nil, Event{Type: EventGameStateUpdate})
	return true
}

// AttachProfile links the seat held by playerID to profile so the result of the current
// game is recorded against it. It reports whether playerID holds a seat here.
func (r *Room) AttachProfile(playerID string, profile models.User) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.state.playerIndex(playerID)
	if i < 0 {
		return false
	}
	seat := r.state.Players[i]
	if seat.UserID == profile.ID && seat.Avatar == profile.Avatar {
		return true
	}
	next := r.state.AttachProfile(playerID, profile.ID, profile.Avatar)
	r.apply(next, playerID, "player_identify", map[string]interface{}{
		"userId": profile.ID,
	}, Event{Type: EventGameStateUpdate})
	return true
}

// Roll syncs the confirmed selection, when given, then rolls. A farkle schedules the turn
// to pass after FarkleDelay.
func (r *Room) Roll(playerID string, confirmed []string, useHighStakes bool) (RollOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := r.state
	var err error
	if confirmed != nil {
		if st, err = st.SyncSelections(playerID, confirmed); err != nil {
			return RollOutcome{}, err
		}
	}
	next, out, err := st.Roll(playerID, useHighStakes, r.roller)
	if err != nil {
		r.log.WithField("player", playerID).Debugf("roll rejected: %v", err)
		return RollOutcome{}, err
	}

	r.apply(next, playerID, "player_roll", map[string]interface{}{
		"dice":       models.DieValues(out.Dice),
		"farkle":     out.Farkle,
		"roundScore": out.RoundScore,
		"highStakes": useHighStakes && st.CanHighStakes,
	}, Event{Type: EventRollResult, Dice: out.Dice, Farkle: out.Farkle, HotDice: out.HotDice})

	if out.Farkle {
		r.scheduleFarkle(next.TurnSeq)
	}
	return out, nil
}

// ToggleDie flips the selection of one die.
func (r *Room) ToggleDie(playerID, dieID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state.Status != StatusPlaying {
		return nil
	}
	next, err := r.state.ToggleSelection(playerID, dieID)
	if err != nil {
		return err
	}
	r.apply(next, playerID, "player_toggle_die", map[string]interface{}{"dieId": dieID}, Event{Type: EventGameStateUpdate})
	return nil
}

// SetSelection replaces the selection with dieIDs.
func (r *Room) SetSelection(playerID string, dieIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state.Status != StatusPlaying {
		return nil
	}
	next, err := r.state.SyncSelections(playerID, dieIDs)
	if err != nil {
		return err
	}
	r.apply(next, playerID, "player_set_selection", map[string]interface{}{"dieIds": dieIDs}, Event{Type: EventGameStateUpdate})
	return nil
}

// Bank syncs the confirmed selection, when given, then banks.
func (r *Room) Bank(playerID string, confirmed []string) (BankOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := r.state
	var err error
	if confirmed != nil {
		if st, err = st.SyncSelections(playerID, confirmed); err != nil {
			return BankOutcome{}, err
		}
	}
	next, out, err := st.Bank(playerID)
	if err != nil {
		r.log.WithField("player", playerID).Debugf("bank rejected: %v", err)
		return BankOutcome{}, err
	}

	r.apply(next, playerID, "player_bank", map[string]interface{}{
		"points":     out.Points,
		"welfare":    out.Welfare,
		"recipient":  out.RecipientID,
		"finalRound": out.FinalRound,
	}, Event{Type: EventGameStateUpdate, Message: out.Message})
	return out, nil
}

// ResolveFarkle passes a farkled turn. It reports false when turnSeq is stale or the
// farkle was already resolved.
func (r *Room) ResolveFarkle(turnSeq int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	next, out, ok := r.state.ResolveFarkle(turnSeq)
	if !ok {
		r.log.WithField("turn", turnSeq).Debug("stale farkle resolution ignored")
		return false
	}

	ev := Event{Type: EventGameStateUpdate}
	if out.Penalty > 0 {
		ev.Message = fmt.Sprintf("Three farkles! -%d points", out.Penalty)
	}
	r.apply(next, out.PlayerID, "player_farkle", map[string]interface{}{"penalty": out.Penalty}, ev)
	return true
}

// ForceNextTurn skips the current player.
func (r *Room) ForceNextTurn(actorID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next, err := r.state.ForceNextTurn()
	if err != nil {
		return err
	}
	r.log.WithField("player", actorID).Info("turn forced")
	r.apply(next, actorID, "force_next_turn", nil, Event{Type: EventGameStateUpdate})
	return nil
}

// Restart starts a new game in a finished room.
func (r *Room) Restart(actorID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next, err := r.state.Restart()
	if err != nil {
		return err
	}
	r.stopFarkleTimer()
	r.apply(next, actorID, "game_restart", nil, Event{Type: EventGameStart})
	return nil
}

// Close stops pending timers.
func (r *Room) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopFarkleTimer()
}

// apply commits next, publishes the action and broadcasts ev with the new snapshot.
// Assumes lock is held.
func (r *Room) apply(next GameState, actorID, action string, payload map[string]interface{}, ev Event) {
	ended := r.state.Status != StatusFinished && next.Status == StatusFinished
	r.state = next
	r.logAction(actorID, action, payload)
	r.broadcast(ev)
	if ended {
		r.finish()
	}
}

// finish announces the result and hands the final state to OnGameEnd.
// Assumes lock is held.
func (r *Room) finish() {
	r.stopFarkleTimer()

	payload := map[string]interface{}{"tie": false}
	if w := r.state.Winner; w != nil {
		if w.Tie {
			payload["tie"] = true
		} else if w.Player != nil {
			payload["winner"] = w.Player.ID
		}
	}
	r.log.WithFields(logrus.Fields(payload)).Info("game finished")
	r.logAction("", "game_end", payload)
	r.broadcast(Event{Type: EventGameOver})

	if r.OnGameEnd != nil {
		go r.OnGameEnd(r.state.clone())
	}
}

// scheduleFarkle arms the delayed farkle resolution for turnSeq. The callback re-checks
// the sequence, so a timer that outlives its turn does nothing.
// Assumes lock is held.
func (r *Room) scheduleFarkle(turnSeq int) {
	r.stopFarkleTimer()
	r.farkleTimer = time.AfterFunc(r.FarkleDelay, func() {
		r.ResolveFarkle(turnSeq)
	})
}

func (r *Room) stopFarkleTimer() {
	if r.farkleTimer != nil {
		r.farkleTimer.Stop()
		r.farkleTimer = nil
	}
}

// broadcast fills in the room code, snapshot and recipients and hands ev to BroadcastFn.
// Assumes lock is held.
func (r *Room) broadcast(ev Event) {
	if r.BroadcastFn == nil {
		return
	}
	snap := r.state.Snapshot()
	ev.RoomCode = r.Code
	ev.State = &snap
	ev.Recipients = r.state.Participants()
	r.BroadcastFn(ev)
}

// logAction publishes an action record asynchronously.
// Assumes lock is held.
func (r *Room) logAction(actorID, actionType string, payload map[string]interface{}) {
	r.actionIndex++
	if r.Publisher == nil {
		return
	}
	if payload == nil {
		payload = make(map[string]interface{})
	}
	record := cache.RoomActionRecord{
		RoomCode:      r.Code,
		ActionIndex:   r.actionIndex,
		ActorID:       actorID,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     time.Now().UnixMilli(),
	}
	go func(rec cache.RoomActionRecord) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := r.Publisher.PublishRoomAction(ctx, rec); err != nil {
			r.log.WithError(err).Warnf("failed to publish action %d", rec.ActionIndex)
		}
	}(record)
}
