// internal/game/roller.go
package game

import "math/rand"

// Roller produces die faces. Rooms use a uniform random roller; tests script the faces.
type Roller interface {
	Face() int
}

// RandomRoller yields independently uniform faces in [1,6].
type RandomRoller struct{}

func (RandomRoller) Face() int {
	return rand.Intn(6) + 1
}
