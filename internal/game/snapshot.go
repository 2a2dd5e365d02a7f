// internal/game/snapshot.go
package game

import "github.com/jason-s-yu/farkle/internal/models"

// Snapshot is the full room view sent to every participant. Nothing in a Farkle room is
// hidden, so players and spectators receive the same document.
type Snapshot struct {
	RoomCode              string          `json:"roomCode"`
	Players               []models.Player `json:"players"`
	SpectatorCount        int             `json:"spectatorCount"`
	CurrentPlayerIndex    int             `json:"currentPlayerIndex"`
	RoundAccumulatedScore int             `json:"roundAccumulatedScore"`
	DiceCountToRoll       int             `json:"diceCountToRoll"`
	CurrentDice           []models.Die    `json:"currentDice"`
	GameStatus            Status          `json:"gameStatus"`
	Winner                *Winner         `json:"winner"`
	IsFinalRound          bool            `json:"isFinalRound"`
	CanHighStakes         bool            `json:"canHighStakes"`
	FarkleCount           int             `json:"farkleCount"`
	Turn                  int             `json:"turn"`
	Rules                 RuleConfig      `json:"rules"`
}

// Snapshot copies the state into its wire form.
func (s GameState) Snapshot() Snapshot {
	c := s.clone()
	snap := Snapshot{
		RoomCode:              c.RoomCode,
		Players:               c.Players,
		SpectatorCount:        len(c.Spectators),
		CurrentPlayerIndex:    c.CurrentPlayerIndex,
		RoundAccumulatedScore: c.RoundAccumulatedScore,
		DiceCountToRoll:       c.DiceCountToRoll,
		CurrentDice:           c.CurrentDice,
		GameStatus:            c.Status,
		Winner:                c.Winner,
		IsFinalRound:          c.IsFinalRound,
		CanHighStakes:         c.CanHighStakes,
		FarkleCount:           c.FarkleCount,
		Turn:                  c.TurnSeq,
		Rules:                 c.Rules,
	}
	if snap.Players == nil {
		snap.Players = []models.Player{}
	}
	if snap.CurrentDice == nil {
		snap.CurrentDice = []models.Die{}
	}
	return snap
}

// Participants returns every connection id that should receive room broadcasts.
func (s GameState) Participants() []string {
	ids := make([]string, 0, len(s.Players)+len(s.Spectators))
	for _, p := range s.Players {
		if p.Connected {
			ids = append(ids, p.ID)
		}
	}
	return append(ids, s.Spectators...)
}
