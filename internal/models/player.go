package models

// Player is a seat in a room. Players are never deleted while a room has connected
// members; a departed player is only marked disconnected so turn order survives.
type Player struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Score     int    `json:"score"`
	Connected bool   `json:"connected"`
	Farkles   int    `json:"farkles"` // consecutive farkled turns
	HasOpened bool   `json:"hasOpened"`

	// per-game stats reported to storage when the game ends
	HighestRound int `json:"-"`
	TotalFarkles int `json:"-"`

	// UserID and Avatar are set when the client identified itself with a profile.
	UserID string `json:"userId,omitempty"`
	Avatar string `json:"avatar,omitempty"`
}
