// internal/game/names.go
package game

import (
	"fmt"

	"github.com/jason-s-yu/farkle/internal/models"
)

// NextPlayerName returns the lowest "Player N" not already taken in the roster. It
// returns an empty string once every name up to MaxPlayers is in use.
func NextPlayerName(players []models.Player) string {
	taken := make(map[string]bool, len(players))
	for _, p := range players {
		taken[p.Name] = true
	}
	for i := 1; i <= MaxPlayers; i++ {
		candidate := fmt.Sprintf("Player %d", i)
		if !taken[candidate] {
			return candidate
		}
	}
	return ""
}
