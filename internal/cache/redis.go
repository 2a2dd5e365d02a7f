// internal/cache/redis.go
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jason-s-yu/farkle/internal/models"
	"github.com/redis/go-redis/v9"
)

// DefaultQueueName is the Redis list (queue) name for room action logs.
const DefaultQueueName = "farkle_actions"

const leaderboardKeyPrefix = "farkle:leaderboard:"

// RoomActionRecord holds the minimal info needed by the historian.
type RoomActionRecord struct {
	RoomCode      string                 `json:"room_code"`
	ActionIndex   int                    `json:"action_index"`
	ActorID       string                 `json:"actor_id"`
	ActionType    string                 `json:"action_type"`
	ActionPayload map[string]interface{} `json:"action_payload"`
	Timestamp     int64                  `json:"timestamp"`
}

// Options configures Connect.
type Options struct {
	Addr           string
	DB             int
	QueueName      string
	LeaderboardTTL time.Duration
}

// Client wraps a Redis connection. A nil *Client is valid and turns every call into a
// no-op, so the server runs unchanged without Redis.
type Client struct {
	rdb   *redis.Client
	queue string
	ttl   time.Duration
}

// Connect dials Redis and verifies the connection with a ping.
func Connect(ctx context.Context, opts Options) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: opts.Addr,
		DB:   opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.Addr, err)
	}
	return NewClient(rdb, opts.QueueName, opts.LeaderboardTTL), nil
}

// NewClient wraps an existing redis client.
func NewClient(rdb *redis.Client, queue string, ttl time.Duration) *Client {
	if queue == "" {
		queue = DefaultQueueName
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Client{rdb: rdb, queue: queue, ttl: ttl}
}

// Redis exposes the underlying client for consumers such as the historian.
func (c *Client) Redis() *redis.Client {
	if c == nil {
		return nil
	}
	return c.rdb
}

// QueueName returns the list the action records are pushed to.
func (c *Client) QueueName() string {
	if c == nil {
		return DefaultQueueName
	}
	return c.queue
}

// Close releases the connection.
func (c *Client) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

// PublishRoomAction serializes the given record to JSON, then pushes it to the Redis queue.
func (c *Client) PublishRoomAction(ctx context.Context, record RoomActionRecord) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal RoomActionRecord: %w", err)
	}
	if err := c.rdb.RPush(ctx, c.queue, data).Err(); err != nil {
		return fmt.Errorf("failed to RPush to Redis list '%s': %w", c.queue, err)
	}
	return nil
}

// PopRoomAction blocks up to timeout for the next queued record. It returns nil, nil
// when the queue stayed empty.
func (c *Client) PopRoomAction(ctx context.Context, timeout time.Duration) (*RoomActionRecord, error) {
	if c == nil || c.rdb == nil {
		return nil, errors.New("redis is not configured")
	}
	res, err := c.rdb.BLPop(ctx, timeout, c.queue).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to BLPop from '%s': %w", c.queue, err)
	}
	// res[0] is the queue name and res[1] the payload.
	if len(res) < 2 {
		return nil, nil
	}
	var record RoomActionRecord
	if err := json.Unmarshal([]byte(res[1]), &record); err != nil {
		return nil, fmt.Errorf("invalid action record: %w", err)
	}
	return &record, nil
}

// GetLeaderboard returns the cached leaderboard for limit. ok is false on a miss.
func (c *Client) GetLeaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, bool, error) {
	if c == nil || c.rdb == nil {
		return nil, false, nil
	}
	data, err := c.rdb.Get(ctx, leaderboardKey(limit)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cached leaderboard: %w", err)
	}
	var entries []models.LeaderboardEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached leaderboard: %w", err)
	}
	return entries, true, nil
}

// SetLeaderboard caches entries for limit with the configured TTL.
func (c *Client) SetLeaderboard(ctx context.Context, limit int, entries []models.LeaderboardEntry) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to marshal leaderboard: %w", err)
	}
	if err := c.rdb.Set(ctx, leaderboardKey(limit), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache leaderboard: %w", err)
	}
	return nil
}

// InvalidateLeaderboard drops every cached leaderboard page.
func (c *Client) InvalidateLeaderboard(ctx context.Context) error {
	if c == nil || c.rdb == nil {
		return nil
	}
	iter := c.rdb.Scan(ctx, 0, leaderboardKeyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan leaderboard keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to invalidate leaderboard: %w", err)
	}
	return nil
}

func leaderboardKey(limit int) string {
	return fmt.Sprintf("%s%d", leaderboardKeyPrefix, limit)
}
