// internal/game/errors.go
package game

import "errors"

// Rejections returned by room transitions. They are soft: the state is left unchanged
// and the message is forwarded to the caller only.
var (
	ErrGameNotActive    = errors.New("Game not active")
	ErrNotYourTurn      = errors.New("Not your turn")
	ErrNoSelection      = errors.New("Must select dice to re-roll")
	ErrInvalidSelection = errors.New("Invalid selection")
	ErrCannotBankZero   = errors.New("Cannot bank 0")
	ErrFarklePending    = errors.New("Farkle! Waiting for the next turn")
	ErrOpeningScore     = errors.New("Must score at least") // wrapped with the threshold
	ErrRoomFull         = errors.New("Room Full")
	ErrRoomNotFound     = errors.New("Room not found")
	ErrSpectatorAction  = errors.New("Spectators cannot play")
	ErrNotFinished      = errors.New("Game is not finished")
	ErrNoPlayers        = errors.New("Room has no players")
)
