// internal/game/state.go
package game

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jason-s-yu/farkle/internal/models"
)

// Status is the lifecycle stage of a room.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

const (
	// MaxPlayers is the seat capacity of every room.
	MaxPlayers = 10

	// maxFirstRollAttempts bounds the rerolls granted by the no-farkle-first-roll rule.
	maxFirstRollAttempts = 10

	// toxicTwosCount is the number of twos that turns a roll into a farkle under toxic twos.
	toxicTwosCount = 4
)

// Winner is either a single player or a tie between the top scores.
type Winner struct {
	Tie    bool
	Player *models.Player
}

// MarshalJSON renders a tie as the string "tie" and a single winner as the player object.
func (w Winner) MarshalJSON() ([]byte, error) {
	if w.Tie {
		return json.Marshal("tie")
	}
	return json.Marshal(w.Player)
}

// GameState is the aggregate state of one room. Transitions are value methods: each
// returns the next state and leaves the receiver untouched, so a rejected action simply
// hands back the input.
type GameState struct {
	RoomCode string
	Rules    RuleConfig

	Players    []models.Player
	Spectators []string

	CurrentPlayerIndex    int
	CurrentDice           []models.Die
	RoundAccumulatedScore int
	DiceCountToRoll       int
	FarkleCount           int

	IsFinalRound          bool
	FinalRoundTriggeredBy int // player index, -1 when unset

	PreviousPlayerLeftoverDice int
	CanHighStakes              bool
	HighStakesAttempt          bool

	Status Status
	Winner *Winner

	// TurnSeq increments on every turn change, start and restart. Deferred work carries
	// the value it was scheduled under and is dropped when it no longer matches.
	TurnSeq       int
	PendingFarkle bool
}

// JoinOutcome describes what a join did.
type JoinOutcome struct {
	Name      string
	Spectator bool
	Rejoined  bool
	Started   bool
}

// RollOutcome is the result of a roll.
type RollOutcome struct {
	Dice       []models.Die `json:"dice"`
	Farkle     bool         `json:"farkle"`
	RoundScore int          `json:"roundScore"`
	HotDice    bool         `json:"hotDice"`
	Rerolls    int          `json:"-"`
}

// BankOutcome is the result of a bank.
type BankOutcome struct {
	Points      int
	Welfare     bool
	RecipientID string
	FinalRound  bool
	Message     string
}

// FarkleOutcome is the result of resolving a farkled turn.
type FarkleOutcome struct {
	PlayerID string
	Penalty  int
}

// NewGameState returns an empty waiting room with a private copy of rules.
func NewGameState(roomCode string, rules RuleConfig) GameState {
	return GameState{
		RoomCode:              roomCode,
		Rules:                 rules,
		DiceCountToRoll:       6,
		FinalRoundTriggeredBy: -1,
		Status:                StatusWaiting,
	}
}

func (s GameState) clone() GameState {
	next := s
	next.Players = append([]models.Player(nil), s.Players...)
	next.Spectators = append([]string(nil), s.Spectators...)
	next.CurrentDice = append([]models.Die(nil), s.CurrentDice...)
	if s.Winner != nil {
		w := *s.Winner
		if w.Player != nil {
			p := *w.Player
			w.Player = &p
		}
		next.Winner = &w
	}
	return next
}

func (s *GameState) playerIndex(id string) int {
	for i := range s.Players {
		if s.Players[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *GameState) spectatorIndex(id string) int {
	for i, sp := range s.Spectators {
		if sp == id {
			return i
		}
	}
	return -1
}

// ConnectedPlayers returns the number of players whose connection is live.
func (s GameState) ConnectedPlayers() int {
	n := 0
	for _, p := range s.Players {
		if p.Connected {
			n++
		}
	}
	return n
}

// CurrentPlayer returns the player holding the turn, or nil when there is none.
func (s GameState) CurrentPlayer() *models.Player {
	if s.CurrentPlayerIndex < 0 || s.CurrentPlayerIndex >= len(s.Players) {
		return nil
	}
	p := s.Players[s.CurrentPlayerIndex]
	return &p
}

// checkActor validates that id may act on the current turn.
func (s *GameState) checkActor(id string) error {
	if s.Status != StatusPlaying {
		return ErrGameNotActive
	}
	if s.playerIndex(id) < 0 && s.spectatorIndex(id) >= 0 {
		return ErrSpectatorAction
	}
	cur := s.CurrentPlayer()
	if cur == nil || cur.ID != id {
		return ErrNotYourTurn
	}
	return nil
}

func (s *GameState) selectedDice() []models.Die {
	var sel []models.Die
	for _, d := range s.CurrentDice {
		if d.Selected {
			sel = append(sel, d)
		}
	}
	return sel
}

func (s *GameState) isFarkle(values []int) bool {
	if !HasPossibleMoves(values, s.Rules) {
		return true
	}
	if s.Rules.ToxicTwos {
		twos := 0
		for _, v := range values {
			if v == 2 {
				twos++
			}
		}
		if twos >= toxicTwosCount {
			return true
		}
	}
	return false
}

// start moves a waiting room with enough players into play.
func (s *GameState) start() {
	s.Status = StatusPlaying
	s.CurrentPlayerIndex = 0
	s.TurnSeq++
	s.resetRound()
}

// resetRound clears per-turn state at the start of a turn. High-stakes eligibility is
// recomputed from the dice the previous player left behind.
func (s *GameState) resetRound() {
	s.RoundAccumulatedScore = 0
	s.DiceCountToRoll = 6
	s.CurrentDice = nil
	s.CanHighStakes = false
	s.HighStakesAttempt = false
	s.PendingFarkle = false

	if s.Rules.HighStakes && s.PreviousPlayerLeftoverDice > 0 && s.PreviousPlayerLeftoverDice < 6 {
		s.CanHighStakes = true
	} else {
		s.PreviousPlayerLeftoverDice = 0
	}

	s.FarkleCount = 0
	if cur := s.CurrentPlayer(); cur != nil {
		s.FarkleCount = cur.Farkles
	}
}

// resetEmpty returns the room to waiting once nobody is left connected.
func (s *GameState) resetEmpty() {
	s.Players = nil
	s.Status = StatusWaiting
	s.CurrentPlayerIndex = 0
	s.IsFinalRound = false
	s.FinalRoundTriggeredBy = -1
	s.Winner = nil
	s.PreviousPlayerLeftoverDice = 0
	s.TurnSeq++
	s.resetRound()
}

// nextTurn advances to the next connected player, looking at most one lap ahead. The
// game ends when the final round comes back around to the player who triggered it.
func (s *GameState) nextTurn() {
	n := len(s.Players)
	if n == 0 {
		return
	}

	reachedTrigger := false
	for attempts := 0; attempts < n; {
		s.CurrentPlayerIndex = (s.CurrentPlayerIndex + 1) % n
		attempts++
		if s.IsFinalRound && s.CurrentPlayerIndex == s.FinalRoundTriggeredBy {
			reachedTrigger = true
		}
		if s.Players[s.CurrentPlayerIndex].Connected {
			break
		}
	}

	s.TurnSeq++
	s.resetRound()

	if reachedTrigger {
		s.endGame()
	}
}

// checkWinCondition enters the final round when the current player reaches the target.
func (s *GameState) checkWinCondition() bool {
	p := &s.Players[s.CurrentPlayerIndex]
	if p.Score >= s.Rules.winTarget() && !s.IsFinalRound {
		s.IsFinalRound = true
		s.FinalRoundTriggeredBy = s.CurrentPlayerIndex
		return true
	}
	return false
}

// endGame finishes the game. The winner is the strict top score; equal top scores tie.
func (s *GameState) endGame() {
	s.Status = StatusFinished
	s.PendingFarkle = false
	s.Winner = nil
	if len(s.Players) == 0 {
		return
	}

	order := make([]int, len(s.Players))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return s.Players[order[a]].Score > s.Players[order[b]].Score
	})

	if len(order) > 1 && s.Players[order[0]].Score == s.Players[order[1]].Score {
		s.Winner = &Winner{Tie: true}
		return
	}
	top := s.Players[order[0]]
	s.Winner = &Winner{Player: &top}
}

// Join seats a player, or registers a spectator when spectator is set. A player already
// seated under the same id is reconnected without touching score or turn order. The game
// starts by itself once a waiting room has two players.
func (s GameState) Join(playerID string, spectator bool) (GameState, JoinOutcome, error) {
	next := s.clone()

	if i := next.playerIndex(playerID); i >= 0 {
		next.Players[i].Connected = true
		return next, JoinOutcome{Name: next.Players[i].Name, Rejoined: true}, nil
	}

	if spectator {
		if next.spectatorIndex(playerID) < 0 {
			next.Spectators = append(next.Spectators, playerID)
		}
		return next, JoinOutcome{Spectator: true}, nil
	}

	if len(next.Players) >= MaxPlayers {
		return s, JoinOutcome{}, ErrRoomFull
	}
	if i := next.spectatorIndex(playerID); i >= 0 {
		next.Spectators = append(next.Spectators[:i], next.Spectators[i+1:]...)
	}

	name := NextPlayerName(next.Players)
	next.Players = append(next.Players, models.Player{
		ID:        playerID,
		Name:      name,
		Connected: true,
	})

	out := JoinOutcome{Name: name}
	if next.Status == StatusWaiting && len(next.Players) >= 2 {
		next.start()
		out.Started = true
	}
	return next, out, nil
}

// AttachProfile links a seated player to an identified user profile.
func (s GameState) AttachProfile(playerID, userID, avatar string) GameState {
	i := s.playerIndex(playerID)
	if i < 0 {
		return s
	}
	next := s.clone()
	next.Players[i].UserID = userID
	next.Players[i].Avatar = avatar
	return next
}

// Leave drops a spectator or disconnects a player. Calling it for an unknown or already
// disconnected id changes nothing. A waiting room forgets the player entirely; a room
// with nobody connected resets to an empty waiting room.
func (s GameState) Leave(playerID string) (GameState, bool) {
	next := s.clone()
	changed := false

	if i := next.spectatorIndex(playerID); i >= 0 {
		next.Spectators = append(next.Spectators[:i], next.Spectators[i+1:]...)
		changed = true
	}

	i := next.playerIndex(playerID)
	if i < 0 || !next.Players[i].Connected {
		return next, changed
	}

	wasCurrent := next.Status == StatusPlaying && i == next.CurrentPlayerIndex
	next.Players[i].Connected = false
	if next.Status == StatusWaiting {
		next.Players = append(next.Players[:i], next.Players[i+1:]...)
	}

	if next.ConnectedPlayers() == 0 {
		next.resetEmpty()
		return next, true
	}
	if wasCurrent {
		next.PreviousPlayerLeftoverDice = 0
		next.nextTurn()
	}
	return next, true
}

// Roll rolls for the current player. With dice already on the table the selected dice
// are banked into the round first and the rest are rolled; otherwise a fresh turn rolls
// six dice, or the previous player's leftover dice when high stakes is taken.
func (s GameState) Roll(playerID string, useHighStakes bool, roller Roller) (GameState, RollOutcome, error) {
	if err := s.checkActor(playerID); err != nil {
		return s, RollOutcome{}, err
	}
	if s.PendingFarkle {
		return s, RollOutcome{}, ErrFarklePending
	}

	next := s.clone()
	firstRoll := len(next.CurrentDice) == 0 && next.RoundAccumulatedScore == 0

	if len(next.CurrentDice) > 0 {
		selected := next.selectedDice()
		if len(selected) == 0 {
			return s, RollOutcome{}, ErrNoSelection
		}
		values := models.DieValues(selected)
		if !IsScoringSelection(values, next.Rules) {
			return s, RollOutcome{}, ErrInvalidSelection
		}
		next.RoundAccumulatedScore += CalculateScore(values, next.Rules)

		remaining := len(next.CurrentDice) - len(selected)
		if remaining == 0 {
			next.DiceCountToRoll = 6
			if next.Rules.HotDiceBonus {
				next.RoundAccumulatedScore += next.Rules.HotDiceBonusPoints
			}
		} else {
			next.DiceCountToRoll = remaining
		}
	} else if useHighStakes && next.CanHighStakes {
		next.DiceCountToRoll = next.PreviousPlayerLeftoverDice
		next.RoundAccumulatedScore = 0
		next.HighStakesAttempt = true
	} else {
		next.DiceCountToRoll = 6
		next.HighStakesAttempt = false
	}

	dice := make([]models.Die, next.DiceCountToRoll)
	for i := range dice {
		dice[i] = models.Die{ID: uuid.NewString(), Value: roller.Face()}
	}
	farkle := next.isFarkle(models.DieValues(dice))

	rerolls := 0
	if farkle && firstRoll && next.Rules.NoFarkleFirstRoll {
		for farkle && rerolls < maxFirstRollAttempts {
			for i := range dice {
				dice[i].Value = roller.Face()
			}
			farkle = next.isFarkle(models.DieValues(dice))
			rerolls++
		}
	}
	next.CurrentDice = dice
	next.CanHighStakes = false

	player := &next.Players[next.CurrentPlayerIndex]
	if farkle {
		player.Farkles++
		player.TotalFarkles++
		next.PendingFarkle = true
	} else {
		player.Farkles = 0
		if next.HighStakesAttempt {
			next.RoundAccumulatedScore += next.Rules.HighStakesBonusPoints
			next.HighStakesAttempt = false
		}
	}
	next.FarkleCount = player.Farkles

	return next, RollOutcome{
		Dice:       append([]models.Die(nil), dice...),
		Farkle:     farkle,
		RoundScore: next.RoundAccumulatedScore,
		HotDice:    next.DiceCountToRoll == 6 && !farkle,
		Rerolls:    rerolls,
	}, nil
}

// ToggleSelection flips the selected flag of one die. Scoring legality is only checked
// when the selection is used by Roll or Bank.
func (s GameState) ToggleSelection(playerID, dieID string) (GameState, error) {
	if s.Status != StatusPlaying {
		return s, nil
	}
	if err := s.checkActor(playerID); err != nil {
		return s, err
	}
	next := s.clone()
	for i := range next.CurrentDice {
		if next.CurrentDice[i].ID == dieID {
			next.CurrentDice[i].Selected = !next.CurrentDice[i].Selected
			break
		}
	}
	return next, nil
}

// SyncSelections replaces the whole selection with the given die ids.
func (s GameState) SyncSelections(playerID string, dieIDs []string) (GameState, error) {
	if s.Status != StatusPlaying {
		return s, nil
	}
	if err := s.checkActor(playerID); err != nil {
		return s, err
	}
	want := make(map[string]bool, len(dieIDs))
	for _, id := range dieIDs {
		want[id] = true
	}
	next := s.clone()
	for i := range next.CurrentDice {
		next.CurrentDice[i].Selected = want[next.CurrentDice[i].ID]
	}
	return next, nil
}

// Bank ends the current player's turn, adding the round plus the current selection to
// their score. Under welfare mode a bank that would carry the player past the welfare
// threshold hands the whole round to the lowest scorer instead.
func (s GameState) Bank(playerID string) (GameState, BankOutcome, error) {
	if err := s.checkActor(playerID); err != nil {
		return s, BankOutcome{}, err
	}
	if s.PendingFarkle {
		return s, BankOutcome{}, ErrFarklePending
	}

	next := s.clone()
	selected := next.selectedDice()

	scoreToAdd := 0
	if len(selected) > 0 {
		values := models.DieValues(selected)
		if !IsScoringSelection(values, next.Rules) {
			return s, BankOutcome{}, ErrInvalidSelection
		}
		scoreToAdd = CalculateScore(values, next.Rules)
	} else if len(next.CurrentDice) > 0 && next.RoundAccumulatedScore == 0 {
		return s, BankOutcome{}, ErrCannotBankZero
	}

	potential := next.RoundAccumulatedScore + scoreToAdd
	player := &next.Players[next.CurrentPlayerIndex]

	if !player.HasOpened && potential < next.Rules.OpeningScore {
		return s, BankOutcome{}, fmt.Errorf("%w %d to open.", ErrOpeningScore, next.Rules.OpeningScore)
	}

	threshold := next.Rules.WelfareThreshold
	if threshold <= 0 {
		threshold = 10000
	}
	if next.Rules.WelfareMode && player.Score+potential > threshold {
		// the last of several equal lowest scores takes the round
		lowest := 0
		for i := range next.Players {
			if next.Players[i].Score <= next.Players[lowest].Score {
				lowest = i
			}
		}
		next.Players[lowest].Score += potential
		recipient := next.Players[lowest].ID
		next.RoundAccumulatedScore = 0
		next.PreviousPlayerLeftoverDice = 0
		next.nextTurn()
		return next, BankOutcome{
			Points:      potential,
			Welfare:     true,
			RecipientID: recipient,
			Message:     "Welfare Wipeout! Points given to lowest.",
		}, nil
	}

	next.RoundAccumulatedScore = potential
	player.Score += potential
	player.HasOpened = true
	player.Farkles = 0
	if potential > player.HighestRound {
		player.HighestRound = potential
	}
	next.FarkleCount = 0

	remaining := len(next.CurrentDice) - len(selected)
	if remaining > 0 && remaining < 6 {
		next.PreviousPlayerLeftoverDice = remaining
	} else {
		next.PreviousPlayerLeftoverDice = 0
	}

	out := BankOutcome{Points: potential}
	out.FinalRound = next.checkWinCondition()

	if next.Status != StatusFinished {
		next.nextTurn()
	}
	return next, out, nil
}

// ResolveFarkle ends a farkled turn. It is scheduled after the farkled roll has been
// shown and only applies while the same turn is still pending; anything else is a no-op.
// A third consecutive farkle costs the player the configured penalty.
func (s GameState) ResolveFarkle(turnSeq int) (GameState, FarkleOutcome, bool) {
	if s.Status != StatusPlaying || !s.PendingFarkle || s.TurnSeq != turnSeq {
		return s, FarkleOutcome{}, false
	}
	next := s.clone()
	player := &next.Players[next.CurrentPlayerIndex]
	out := FarkleOutcome{PlayerID: player.ID}

	if player.Farkles >= 3 {
		out.Penalty = next.Rules.penalty()
		player.Score -= out.Penalty
		player.Farkles = 0
	}
	next.FarkleCount = 0
	next.PreviousPlayerLeftoverDice = 0
	next.RoundAccumulatedScore = 0
	next.nextTurn()
	return next, out, true
}

// NextTurn advances the turn regardless of what the current player was doing.
func (s GameState) NextTurn() GameState {
	next := s.clone()
	next.nextTurn()
	return next
}

// ForceNextTurn is the administrative skip. It only applies while playing, and the
// skipped turn leaves no dice behind for high stakes.
func (s GameState) ForceNextTurn() (GameState, error) {
	if s.Status != StatusPlaying {
		return s, ErrGameNotActive
	}
	next := s.clone()
	next.PreviousPlayerLeftoverDice = 0
	next.nextTurn()
	return next, nil
}

// EndGame finishes the game and records the winner.
func (s GameState) EndGame() GameState {
	next := s.clone()
	next.endGame()
	return next
}

// Restart puts a finished room back into play with the same players and rules. The first
// connected seat takes the opening turn.
func (s GameState) Restart() (GameState, error) {
	if s.Status != StatusFinished {
		return s, ErrNotFinished
	}
	if len(s.Players) == 0 {
		return s, ErrNoPlayers
	}
	next := s.clone()
	for i := range next.Players {
		p := &next.Players[i]
		p.Score = 0
		p.Farkles = 0
		p.HasOpened = false
		p.HighestRound = 0
		p.TotalFarkles = 0
	}
	next.IsFinalRound = false
	next.FinalRoundTriggeredBy = -1
	next.Winner = nil
	next.PreviousPlayerLeftoverDice = 0
	next.start()
	for n := 0; n < len(next.Players) && !next.Players[next.CurrentPlayerIndex].Connected; n++ {
		next.CurrentPlayerIndex = (next.CurrentPlayerIndex + 1) % len(next.Players)
	}
	return next, nil
}
