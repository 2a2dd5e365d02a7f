// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jason-s-yu/farkle/internal/auth"
	"github.com/jason-s-yu/farkle/internal/cache"
	"github.com/jason-s-yu/farkle/internal/config"
	"github.com/jason-s-yu/farkle/internal/database"
	"github.com/jason-s-yu/farkle/internal/game"
	"github.com/jason-s-yu/farkle/internal/handlers"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	logger := cfg.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("storage: %v", err)
	}
	defer store.Close()

	var redisClient *cache.Client
	if cfg.RedisAddr != "" {
		redisClient, err = cache.Connect(ctx, cache.Options{
			Addr:           cfg.RedisAddr,
			DB:             cfg.RedisDB,
			QueueName:      cfg.QueueName,
			LeaderboardTTL: cfg.LeaderboardTTL,
		})
		if err != nil {
			// The server is fully playable without Redis.
			logger.Warnf("redis disabled: %v", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	sessions, err := auth.NewSessionIssuer(cfg.TokenTTL())
	if err != nil {
		logger.Fatalf("sessions: %v", err)
	}

	defs := game.DefaultRoomDefinitions()
	if cfg.RoomsFile != "" {
		if defs, err = game.LoadRoomDefinitions(cfg.RoomsFile); err != nil {
			logger.Fatalf("rooms: %v", err)
		}
	}
	rooms := game.NewRoomStore()
	for _, def := range defs {
		room := game.NewRoom(def.Code, def.Rules, logger)
		room.FarkleDelay = cfg.FarkleDelay
		rooms.AddRoom(room)
	}
	defer rooms.Close()

	gs := handlers.NewGameServer(logger, rooms, store, redisClient, sessions)
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handlers.NewRouter(logger, gs),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warnf("shutdown: %v", err)
		}
	}()

	logger.WithField("rooms", len(defs)).Infof("Running on %s", cfg.Addr())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("server exited: %v", err)
	}
	logger.Info("server stopped")
}

func openStore(ctx context.Context, cfg config.Config, logger *logrus.Logger) (database.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		logger.Infof("using postgres store at %s:%d", cfg.PGHost, cfg.PGPort)
		return database.ConnectPostgres(ctx, cfg.PostgresDSN())
	case config.DriverSQLite:
		logger.Infof("using sqlite store at %s", cfg.SQLitePath)
		return database.OpenSQLite(cfg.SQLitePath)
	default:
		logger.Warn("persistence disabled")
		return database.NopStore{}, nil
	}
}
