// internal/handlers/game_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/jason-s-yu/farkle/internal/game"
	"github.com/jason-s-yu/farkle/internal/middleware"
	"github.com/jason-s-yu/farkle/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	readLimit    = 32 << 10
	writeTimeout = 5 * time.Second
	pingInterval = 30 * time.Second
)

// GameWSHandler upgrades the HTTP connection to WebSocket. The player id comes from a
// session token when the client presents a valid one, otherwise a new id is minted.
// The handler sends session and room_list, then reads messages until the connection
// closes, at which point the player leaves every room.
func GameWSHandler(logger *logrus.Logger, gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playerID := gs.resolvePlayerID(r)

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: gs.OriginPatterns,
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")
		c.SetReadLimit(readLimit)

		token, err := gs.Sessions.Issue(playerID)
		if err != nil {
			logger.Errorf("failed to issue session for %s: %v", playerID, err)
			c.Close(websocket.StatusInternalError, "session error")
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		client := newClient(playerID, r.RemoteAddr, cancel)
		if old := gs.Hub.Register(client); old != nil {
			old.kick(ReplacedConnectionError, "connection replaced by a newer session")
		}
		middleware.LogWebSocketConnect(logger, r.RemoteAddr, playerID)

		go writePump(ctx, c, client, logger)

		client.enqueue(mustMarshal(sessionMessage{Type: "session", PlayerID: playerID, Token: token}))
		client.enqueue(mustMarshal(roomListMessage{Type: "room_list", Rooms: gs.Rooms.Summaries()}))

		err = readPump(ctx, c, gs, client, logger)

		// A replaced connection leaves its seats to the newer one.
		if gs.Hub.Unregister(client) {
			gs.leaveAll(playerID)
		}
		middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, playerID, err)
	}
}

// resolvePlayerID reclaims the id from a session token, or mints a new one.
func (gs *GameServer) resolvePlayerID(r *http.Request) string {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = extractCookieToken(r.Header.Get("Cookie"), sessionCookieName)
	}
	if token != "" {
		id, err := gs.Sessions.Verify(token)
		if err == nil {
			return id
		}
		gs.logger.WithField("remote", r.RemoteAddr).Debugf("ignoring session token: %v", err)
	}
	return uuid.NewString()
}

// readPump reads client messages until the connection fails or ctx is cancelled.
// Normal closures return nil.
func readPump(ctx context.Context, c *websocket.Conn, gs *GameServer, client *Client, logger *logrus.Logger) error {
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		if typ != websocket.MessageText {
			logger.Warnf("Received non-text message type %d from player %s. Ignoring.", typ, client.ID)
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			logger.Warnf("Invalid JSON received from player %s: %v", client.ID, err)
			sendError(client, "Invalid JSON format.")
			continue
		}

		logger.Tracef("Received '%s' from player %s.", msg.Type, client.ID)
		gs.handleMessage(ctx, client, msg)
	}
}

// writePump drains client.OutChan onto the socket and pings the peer periodically.
func writePump(ctx context.Context, c *websocket.Conn, client *Client, logger *logrus.Logger) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			code, reason := client.closeStatus()
			_ = c.Close(code, reason)
			return
		case data := <-client.OutChan:
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.Warnf("Failed to write to websocket for player %s: %v", client.ID, err)
				client.kick(websocket.StatusGoingAway, "write failed")
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.Debugf("Ping to player %s failed: %v", client.ID, err)
				client.kick(websocket.StatusGoingAway, "ping failed")
				return
			}
		}
	}
}

// handleMessage routes one client message. Rejections are reported to the sender only.
func (gs *GameServer) handleMessage(ctx context.Context, client *Client, msg ClientMessage) {
	playerID := client.ID

	switch msg.Type {
	case "identify":
		gs.handleIdentify(ctx, client, msg.User)

	case "get_room_list":
		client.enqueue(mustMarshal(roomListMessage{Type: "room_list", Rooms: gs.Rooms.Summaries()}))

	case "join_game":
		room, err := gs.Rooms.Resolve(msg.RoomCode)
		if err != nil {
			sendError(client, err.Error())
			return
		}
		out, snap, err := room.Join(playerID, msg.Spectator, client.Profile())
		if err != nil {
			sendError(client, err.Error())
			return
		}
		client.enqueue(mustMarshal(joinedMessage{
			Type:        "joined",
			PlayerID:    playerID,
			RoomCode:    room.Code,
			State:       snap,
			IsSpectator: out.Spectator,
		}))
		gs.broadcastRoomList()

	case "leave_game":
		gs.leaveAll(playerID)

	case "roll":
		gs.withRoom(client, msg.RoomCode, func(room *game.Room) error {
			_, err := room.Roll(playerID, msg.ConfirmedSelections, msg.UseHighStakes)
			return err
		})

	case "toggle_die":
		gs.withRoom(client, msg.RoomCode, func(room *game.Room) error {
			return room.ToggleDie(playerID, msg.DieID)
		})

	case "set_selection":
		gs.withRoom(client, msg.RoomCode, func(room *game.Room) error {
			return room.SetSelection(playerID, msg.DieIDs)
		})

	case "bank":
		gs.withRoom(client, msg.RoomCode, func(room *game.Room) error {
			_, err := room.Bank(playerID, msg.ConfirmedSelections)
			return err
		})

	case "force_next_turn":
		gs.withRoom(client, msg.RoomCode, func(room *game.Room) error {
			return room.ForceNextTurn(playerID)
		})

	case "restart":
		gs.withRoom(client, msg.RoomCode, func(room *game.Room) error {
			if err := room.Restart(playerID); err != nil {
				return err
			}
			gs.broadcastRoomList()
			return nil
		})

	case "ping":
		client.enqueue(mustMarshal(pongMessage{Type: "pong"}))

	default:
		sendError(client, fmt.Sprintf("Unknown message type: %s", msg.Type))
	}
}

// withRoom runs fn against the named room and reports its error to the sender.
func (gs *GameServer) withRoom(client *Client, code string, fn func(room *game.Room) error) {
	room, ok := gs.Rooms.GetRoom(code)
	if !ok {
		sendError(client, game.ErrRoomNotFound.Error())
		return
	}
	if err := fn(room); err != nil {
		sendError(client, err.Error())
	}
}

// handleIdentify stores the profile and attaches it to the connection and to any seat the
// player already holds. A storage failure still attaches the profile as sent.
func (gs *GameServer) handleIdentify(ctx context.Context, client *Client, u *IdentifyUser) {
	if u == nil || u.ID == "" {
		sendError(client, "Missing user id.")
		return
	}
	profile := models.User{ID: u.ID, DisplayName: u.Name, Username: u.Name, Avatar: u.Avatar}

	storeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	stored, err := gs.Store.UpsertUser(storeCtx, profile)
	if err != nil {
		gs.logger.WithField("player", client.ID).Warnf("failed to upsert user %s: %v", u.ID, err)
		stored = profile
	}
	client.setProfile(stored)
	if seated := gs.Rooms.AttachProfile(client.ID, stored); len(seated) > 0 {
		gs.logger.WithFields(logrus.Fields{"player": client.ID, "rooms": seated}).Debug("profile attached to seats")
	}
	client.enqueue(mustMarshal(identifiedMessage{Type: "identified", User: stored}))
}

func sendError(client *Client, message string) {
	client.enqueue(mustMarshal(errorMessage{Type: "error", Message: message}))
}

// mustMarshal encodes the fixed outbound message types, none of which can fail.
func mustMarshal(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("handlers: marshal %T: %v", v, err))
	}
	return data
}
