package models

import "time"

// User is a stored player profile.
type User struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"displayName"`
	Username    string    `json:"username"`
	Avatar      string    `json:"avatar"`
	CreatedAt   time.Time `json:"createdAt"`
	LastLogin   time.Time `json:"lastLogin"`
}

// LeaderboardEntry is one row of the aggregate standings.
type LeaderboardEntry struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Avatar       string `json:"avatar"`
	Wins         int    `json:"wins"`
	GamesPlayed  int    `json:"gamesPlayed"`
	HighestScore int    `json:"highestScore"`
	TotalScore   int    `json:"totalScore"`
}
