// internal/game/events.go
package game

import "github.com/jason-s-yu/farkle/internal/models"

// EventType is an enum-like type for room broadcasts.
type EventType string

const (
	EventGameStateUpdate EventType = "game_state_update"
	EventRollResult      EventType = "roll_result"
	EventGameStart       EventType = "game_start"
	EventGameOver        EventType = "game_over"
)

// Event is a message broadcast to every participant of a room.
type Event struct {
	Type     EventType    `json:"type"`
	RoomCode string       `json:"roomCode"`
	State    *Snapshot    `json:"state,omitempty"`
	Dice     []models.Die `json:"dice,omitempty"`
	Farkle   bool         `json:"farkle,omitempty"`
	HotDice  bool         `json:"hotDice,omitempty"`
	Message  string       `json:"message,omitempty"`

	Payload map[string]interface{} `json:"payload,omitempty"`

	// Recipients are the connection ids the event is addressed to.
	Recipients []string `json:"-"`
}
