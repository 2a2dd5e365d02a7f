package database

import (
	"context"
	_ "embed"
	"errors"
	"strings"
	"time"

	"github.com/jason-s-yu/farkle/internal/models"
)

//go:embed schema/postgres.sql
var postgresSchema string

//go:embed schema/sqlite.sql
var sqliteSchema string

// ErrInvalidUser is returned when a profile is missing its id.
var ErrInvalidUser = errors.New("user id is required")

// Store is the persistence collaborator of the game server. Callers treat every method as
// best effort: a failure is logged and never rolls back game state.
type Store interface {
	// UpsertUser creates or refreshes a profile. created_at is kept from the first
	// insert; last_login is set to now.
	UpsertUser(ctx context.Context, user models.User) (models.User, error)

	// GetUser returns nil, nil when the user does not exist.
	GetUser(ctx context.Context, id string) (*models.User, error)

	// RecordGameEnd folds one finished game into the user's aggregate stats.
	RecordGameEnd(ctx context.Context, userID string, isWin bool, score, highestRound, farkles int) error

	// GetLeaderboard returns up to limit users ordered by wins then total score, users
	// without stats last.
	GetLeaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)

	Close() error
}

// normalizeUser validates a profile and fills the display name from the username.
func normalizeUser(u models.User) (models.User, error) {
	u.ID = strings.TrimSpace(u.ID)
	if u.ID == "" {
		return u, ErrInvalidUser
	}
	if strings.TrimSpace(u.DisplayName) == "" {
		u.DisplayName = u.Username
	}
	return u, nil
}

// NopStore is used when persistence is disabled.
type NopStore struct{}

func (NopStore) UpsertUser(_ context.Context, user models.User) (models.User, error) {
	u, err := normalizeUser(user)
	if err != nil {
		return u, err
	}
	now := time.Now().UTC()
	u.CreatedAt, u.LastLogin = now, now
	return u, nil
}

func (NopStore) GetUser(context.Context, string) (*models.User, error) { return nil, nil }

func (NopStore) RecordGameEnd(context.Context, string, bool, int, int, int) error { return nil }

func (NopStore) GetLeaderboard(context.Context, int) ([]models.LeaderboardEntry, error) {
	return []models.LeaderboardEntry{}, nil
}

func (NopStore) Close() error { return nil }
