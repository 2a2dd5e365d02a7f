// internal/handlers/messages.go
package handlers

import (
	"github.com/jason-s-yu/farkle/internal/game"
	"github.com/jason-s-yu/farkle/internal/models"
)

// ClientMessage is every inbound websocket message. Type selects which fields apply.
type ClientMessage struct {
	Type string `json:"type"`

	User *IdentifyUser `json:"user,omitempty"`

	RoomCode  string `json:"roomCode,omitempty"`
	Spectator bool   `json:"spectator,omitempty"`

	// ConfirmedSelections, when present, replaces the selection before a roll or bank.
	// An absent field leaves the server's selection untouched.
	ConfirmedSelections []string `json:"confirmedSelections,omitempty"`
	UseHighStakes       bool     `json:"useHighStakes,omitempty"`

	DieID  string   `json:"dieId,omitempty"`
	DieIDs []string `json:"dieIds,omitempty"`
}

// IdentifyUser is the profile a client attaches to its connection.
type IdentifyUser struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

type sessionMessage struct {
	Type     string `json:"type"`
	PlayerID string `json:"playerId"`
	Token    string `json:"token"`
}

type roomListMessage struct {
	Type  string             `json:"type"`
	Rooms []game.RoomSummary `json:"rooms"`
}

type joinedMessage struct {
	Type        string        `json:"type"`
	PlayerID    string        `json:"playerId"`
	RoomCode    string        `json:"roomCode"`
	State       game.Snapshot `json:"state"`
	IsSpectator bool          `json:"isSpectator"`
}

type identifiedMessage struct {
	Type string      `json:"type"`
	User models.User `json:"user"`
}

type errorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type pongMessage struct {
	Type string `json:"type"`
}
