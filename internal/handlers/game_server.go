// internal/handlers/game_server.go
package handlers

import (
	"context"
	"time"

	"github.com/jason-s-yu/farkle/internal/auth"
	"github.com/jason-s-yu/farkle/internal/cache"
	"github.com/jason-s-yu/farkle/internal/database"
	"github.com/jason-s-yu/farkle/internal/game"
	"github.com/sirupsen/logrus"
)

// DefaultLeaderboardLimit is used when /leaderboard has no limit parameter.
const DefaultLeaderboardLimit = 20

// GameServer is a high-level struct that ties the rooms to their collaborators: the
// connection hub, storage, the Redis cache and the session issuer.
type GameServer struct {
	Rooms    *game.RoomStore
	Store    database.Store
	Cache    *cache.Client
	Sessions *auth.SessionIssuer
	Hub      *Hub

	// OriginPatterns is passed to the websocket upgrade.
	OriginPatterns []string

	logger *logrus.Logger
}

// NewGameServer wires every room in rooms to the hub, the game-end persistence and,
// when cacheClient is not nil, the action queue.
func NewGameServer(logger *logrus.Logger, rooms *game.RoomStore, store database.Store, cacheClient *cache.Client, sessions *auth.SessionIssuer) *GameServer {
	if store == nil {
		store = database.NopStore{}
	}
	gs := &GameServer{
		Rooms:          rooms,
		Store:          store,
		Cache:          cacheClient,
		Sessions:       sessions,
		Hub:            NewHub(logger),
		OriginPatterns: []string{"*"},
		logger:         logger,
	}
	for _, room := range rooms.Rooms() {
		gs.wireRoom(room)
	}
	return gs
}

func (gs *GameServer) wireRoom(room *game.Room) {
	room.BroadcastFn = func(ev game.Event) {
		gs.Hub.SendMany(ev.Recipients, ev)
	}
	room.OnGameEnd = gs.handleGameEnd
	if gs.Cache != nil {
		room.Publisher = gs.Cache
	}
}

// broadcastRoomList pushes the lobby list to every connection.
func (gs *GameServer) broadcastRoomList() {
	gs.Hub.BroadcastAll(roomListMessage{Type: "room_list", Rooms: gs.Rooms.Summaries()})
}

// leaveAll removes playerID from every room and refreshes the lobby when anything changed.
func (gs *GameServer) leaveAll(playerID string) {
	if left := gs.Rooms.Leave(playerID); len(left) > 0 {
		gs.logger.WithFields(logrus.Fields{"player": playerID, "rooms": left}).Debug("player left rooms")
		gs.broadcastRoomList()
	}
}

// handleGameEnd persists the result for every identified player. Failures are logged and
// never touch the room.
func (gs *GameServer) handleGameEnd(final game.GameState) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log := gs.logger.WithField("room", final.RoomCode)
	var winnerID string
	if final.Winner != nil && !final.Winner.Tie && final.Winner.Player != nil {
		winnerID = final.Winner.Player.ID
	}

	recorded := 0
	for _, p := range final.Players {
		if p.UserID == "" {
			continue
		}
		isWin := winnerID != "" && p.ID == winnerID
		if err := gs.Store.RecordGameEnd(ctx, p.UserID, isWin, p.Score, p.HighestRound, p.TotalFarkles); err != nil {
			log.WithField("user", p.UserID).Warnf("failed to record game end: %v", err)
			continue
		}
		recorded++
	}
	if recorded > 0 {
		if err := gs.Cache.InvalidateLeaderboard(ctx); err != nil {
			log.Warnf("failed to invalidate leaderboard cache: %v", err)
		}
	}
	log.WithField("recorded", recorded).Info("game results persisted")

	gs.broadcastRoomList()
}
