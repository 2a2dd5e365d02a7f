package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jason-s-yu/farkle/internal/models"
	_ "modernc.org/sqlite"
)

// SQLiteStore is the embedded Store used when no Postgres is configured.
type SQLiteStore struct {
	sqlDB *sql.DB
	now   func() time.Time
}

// OpenSQLite opens (creating when needed) a SQLite database at path and applies the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if dir := filepath.Dir(cleanPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}

	dsn := "file:" + cleanPath + "?" + url.Values{
		"_pragma": []string{"foreign_keys(1)", "busy_timeout(5000)", "journal_mode(WAL)"},
	}.Encode()
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite store: %w", err)
	}
	if _, err := sqlDB.Exec(sqliteSchema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply sqlite schema: %w", err)
	}

	return &SQLiteStore{sqlDB: sqlDB, now: time.Now}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *SQLiteStore) UpsertUser(ctx context.Context, user models.User) (models.User, error) {
	u, err := normalizeUser(user)
	if err != nil {
		return u, err
	}
	now := s.now().UTC().UnixMilli()

	var out models.User
	var created, login int64
	err = s.sqlDB.QueryRowContext(ctx, `
	INSERT INTO users (id, display_name, username, avatar, created_at, last_login)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT (id) DO UPDATE
	SET display_name = excluded.display_name,
	    username = excluded.username,
	    avatar = excluded.avatar,
	    last_login = excluded.last_login
	RETURNING id, display_name, username, avatar, created_at, last_login
	`, u.ID, u.DisplayName, u.Username, u.Avatar, now, now).Scan(
		&out.ID, &out.DisplayName, &out.Username, &out.Avatar, &created, &login,
	)
	if err != nil {
		return models.User{}, fmt.Errorf("failed to upsert user: %w", err)
	}
	out.CreatedAt = time.UnixMilli(created).UTC()
	out.LastLogin = time.UnixMilli(login).UTC()
	return out, nil
}

func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	var created, login int64
	err := s.sqlDB.QueryRowContext(ctx, `
	SELECT id, display_name, username, avatar, created_at, last_login
	FROM users
	WHERE id = ?
	`, id).Scan(&u.ID, &u.DisplayName, &u.Username, &u.Avatar, &created, &login)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	u.CreatedAt = time.UnixMilli(created).UTC()
	u.LastLogin = time.UnixMilli(login).UTC()
	return &u, nil
}

func (s *SQLiteStore) RecordGameEnd(ctx context.Context, userID string, isWin bool, score, highestRound, farkles int) error {
	wins := 0
	if isWin {
		wins = 1
	}
	_, err := s.sqlDB.ExecContext(ctx, `
	INSERT INTO user_stats (user_id, wins, games_played, highest_score, total_score, highest_round, total_farkles)
	VALUES (?1, ?2, 1, ?3, ?3, ?4, ?5)
	ON CONFLICT (user_id) DO UPDATE
	SET wins = user_stats.wins + excluded.wins,
	    games_played = user_stats.games_played + 1,
	    highest_score = MAX(user_stats.highest_score, excluded.highest_score),
	    total_score = user_stats.total_score + excluded.total_score,
	    highest_round = MAX(user_stats.highest_round, excluded.highest_round),
	    total_farkles = user_stats.total_farkles + excluded.total_farkles
	`, userID, wins, score, highestRound, farkles)
	if err != nil {
		return fmt.Errorf("failed to record game end for %s: %w", userID, err)
	}
	return nil
}

func (s *SQLiteStore) GetLeaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
	SELECT u.id, COALESCE(NULLIF(u.display_name, ''), u.username), u.avatar,
	       COALESCE(s.wins, 0), COALESCE(s.games_played, 0),
	       COALESCE(s.highest_score, 0), COALESCE(s.total_score, 0)
	FROM users u
	LEFT JOIN user_stats s ON s.user_id = u.id
	ORDER BY s.wins DESC NULLS LAST, s.total_score DESC NULLS LAST, u.id
	LIMIT ?
	`, limit)
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
