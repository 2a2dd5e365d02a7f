// cmd/historian/main.go is an asynchronous historian service that pops room actions from
// a Redis queue and persists them to PostgreSQL.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/jason-s-yu/farkle/internal/cache"
	"github.com/jason-s-yu/farkle/internal/config"
	"github.com/jason-s-yu/farkle/internal/database"
	"github.com/jason-s-yu/farkle/internal/historian"
	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	logger := cfg.NewLogger()
	if cfg.RedisAddr == "" {
		logger.Fatal("REDIS_ADDR is required by the historian")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	queue, err := cache.Connect(ctx, cache.Options{
		Addr:      cfg.RedisAddr,
		DB:        cfg.RedisDB,
		QueueName: cfg.QueueName,
	})
	if err != nil {
		logger.Fatalf("redis: %v", err)
	}
	defer queue.Close()

	pg, err := database.ConnectPostgres(ctx, cfg.PostgresDSN())
	if err != nil {
		logger.Fatalf("postgres: %v", err)
	}
	defer pg.Close()

	logger.WithField("queue", queue.QueueName()).Info("farkle-historian connected")
	historian.NewService(queue, pg, cfg.HistorianBatchSize, cfg.FlushDelay(), logger).Run(ctx)
	logger.Info("Historian shutdown complete.")
}
