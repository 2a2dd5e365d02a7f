// internal/handlers/api_server.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jason-s-yu/farkle/internal/middleware"
	"github.com/jason-s-yu/farkle/internal/models"
	"github.com/sirupsen/logrus"
)

const maxLeaderboardLimit = 100

// NewRouter mounts the HTTP API and the game socket.
func NewRouter(logger *logrus.Logger, gs *GameServer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.LogMiddleware(logger))

	r.Get("/healthz", HealthHandler(gs))
	r.Get("/rooms", ListRoomsHandler(gs))
	r.Get("/leaderboard", LeaderboardHandler(gs))
	r.Get("/users/{id}", GetUserHandler(gs))
	r.Get("/ws", GameWSHandler(logger, gs))
	return r
}

// HealthHandler reports liveness and the number of open sockets.
func HealthHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":      "ok",
			"connections": gs.Hub.Count(),
		})
	}
}

// ListRoomsHandler returns the lobby list.
func ListRoomsHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, gs.Rooms.Summaries())
	}
}

// LeaderboardHandler serves the standings, reading through the Redis cache when present.
func LeaderboardHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := DefaultLeaderboardLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 1 || n > maxLeaderboardLimit {
				writeError(w, http.StatusBadRequest, "limit must be between 1 and 100")
				return
			}
			limit = n
		}

		ctx := r.Context()
		log := gs.logger.WithField("request_id", middleware.RequestID(ctx))

		entries, hit, err := gs.Cache.GetLeaderboard(ctx, limit)
		if err != nil {
			log.Warnf("leaderboard cache read failed: %v", err)
		}
		if hit {
			writeJSON(w, http.StatusOK, entries)
			return
		}

		entries, err = gs.Store.GetLeaderboard(ctx, limit)
		if err != nil {
			log.Errorf("failed to load leaderboard: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to load leaderboard")
			return
		}
		if entries == nil {
			entries = []models.LeaderboardEntry{}
		}
		if err := gs.Cache.SetLeaderboard(ctx, limit, entries); err != nil {
			log.Warnf("leaderboard cache write failed: %v", err)
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

// GetUserHandler returns a stored profile.
func GetUserHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		u, err := gs.Store.GetUser(r.Context(), id)
		if err != nil {
			gs.logger.WithField("user", id).Errorf("failed to load user: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to load user")
			return
		}
		if u == nil {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeJSON(w, http.StatusOK, u)
	}
}
