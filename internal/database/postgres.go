package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/farkle/internal/cache"
	"github.com/jason-s-yu/farkle/internal/models"
)

// PostgresStore persists profiles, stats and archived room actions in Postgres.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// ConnectPostgres opens a pool for connStr, pings it and applies the schema.
func ConnectPostgres(ctx context.Context, connStr string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to parse pgx config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create pgx pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping error: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// Close closes the pool.
func (s *PostgresStore) Close() error {
	if s == nil || s.pool == nil {
		return nil
	}
	s.pool.Close()
	return nil
}

func (s *PostgresStore) UpsertUser(ctx context.Context, user models.User) (models.User, error) {
	u, err := normalizeUser(user)
	if err != nil {
		return u, err
	}

	q := `
	INSERT INTO users (id, display_name, username, avatar, created_at, last_login)
	VALUES ($1, $2, $3, $4, now(), now())
	ON CONFLICT (id) DO UPDATE
	SET display_name = EXCLUDED.display_name,
	    username = EXCLUDED.username,
	    avatar = EXCLUDED.avatar,
	    last_login = EXCLUDED.last_login
	RETURNING id, display_name, username, avatar, created_at, last_login
	`
	var out models.User
	err = pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return tx.QueryRow(ctx, q, u.ID, u.DisplayName, u.Username, u.Avatar).Scan(
			&out.ID, &out.DisplayName, &out.Username, &out.Avatar, &out.CreatedAt, &out.LastLogin,
		)
	})
	if err != nil {
		return models.User{}, fmt.Errorf("failed to upsert user: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	q := `
	SELECT id, display_name, username, avatar, created_at, last_login
	FROM users
	WHERE id=$1
	`
	err := s.pool.QueryRow(ctx, q, id).Scan(
		&u.ID, &u.DisplayName, &u.Username, &u.Avatar, &u.CreatedAt, &u.LastLogin,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

func (s *PostgresStore) RecordGameEnd(ctx context.Context, userID string, isWin bool, score, highestRound, farkles int) error {
	wins := 0
	if isWin {
		wins = 1
	}
	q := `
	INSERT INTO user_stats (user_id, wins, games_played, highest_score, total_score, highest_round, total_farkles)
	VALUES ($1, $2, 1, $3, $4, $5, $6)
	ON CONFLICT (user_id) DO UPDATE
	SET wins = user_stats.wins + EXCLUDED.wins,
	    games_played = user_stats.games_played + 1,
	    highest_score = GREATEST(user_stats.highest_score, EXCLUDED.highest_score),
	    total_score = user_stats.total_score + EXCLUDED.total_score,
	    highest_round = GREATEST(user_stats.highest_round, EXCLUDED.highest_round),
	    total_farkles = user_stats.total_farkles + EXCLUDED.total_farkles
	`
	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, execErr := tx.Exec(ctx, q, userID, wins, score, score, highestRound, farkles)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("failed to record game end for %s: %w", userID, err)
	}
	return nil
}

func (s *PostgresStore) GetLeaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	q := `
	SELECT u.id, COALESCE(NULLIF(u.display_name, ''), u.username), u.avatar,
	       COALESCE(s.wins, 0), COALESCE(s.games_played, 0),
	       COALESCE(s.highest_score, 0), COALESCE(s.total_score, 0)
	FROM users u
	LEFT JOIN user_stats s ON s.user_id = u.id
	ORDER BY s.wins DESC NULLS LAST, s.total_score DESC NULLS LAST, u.id
	LIMIT $1
	`
	rows, err := s.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	entries := []models.LeaderboardEntry{}
	for rows.Next() {
		var e models.LeaderboardEntry
		if err := rows.Scan(&e.ID, &e.Name, &e.Avatar, &e.Wins, &e.GamesPlayed, &e.HighestScore, &e.TotalScore); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read leaderboard: %w", err)
	}
	return entries, nil
}

// InsertRoomActions archives a batch of room actions in one transaction.
func (s *PostgresStore) InsertRoomActions(ctx context.Context, records []cache.RoomActionRecord) error {
	if len(records) == 0 {
		return nil
	}
	q := `
	INSERT INTO room_actions (room_code, action_index, actor_id, action_type, payload, occurred_at)
	VALUES ($1, $2, $3, $4, $5, $6)
	`
	return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, rec := range records {
			payload, err := json.Marshal(rec.ActionPayload)
			if err != nil {
				return fmt.Errorf("failed to marshal payload of action %d: %w", rec.ActionIndex, err)
			}
			batch.Queue(q, rec.RoomCode, rec.ActionIndex, rec.ActorID, rec.ActionType, payload, time.UnixMilli(rec.Timestamp).UTC())
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("failed to insert room actions: %w", err)
		}
		return nil
	})
}
