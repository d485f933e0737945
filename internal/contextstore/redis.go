package contextstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Store backed by a shared Redis cache. All conversations
// for one persona live in a single hash keyed by the persona key, with the
// hash TTL refreshed on every write, mirroring the in-memory expiry
// behavior. Use it when queue workers run in separate processes.
type RedisStore struct {
	client  *redis.Client
	hashKey string
	maxAge  time.Duration
	logger  *slog.Logger
}

// NewRedisStore creates a Redis-backed store from a redis:// URL. The
// personaKey namespaces the hash so bots with different personas can share
// one Redis instance.
func NewRedisStore(redisURL, personaKey string, maxAge time.Duration, logger *slog.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &RedisStore{
		client:  redis.NewClient(opts),
		hashKey: "context:" + personaKey,
		maxAge:  maxAge,
		logger:  logger,
	}, nil
}

// Get returns the stored history. A missing field or an unreachable
// backend both yield empty context rather than an error, so a cold read
// never blocks the pipeline.
func (s *RedisStore) Get(ctx context.Context, conversationID string) ([]Message, error) {
	raw, err := s.client.HGet(ctx, s.hashKey, conversationID).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		s.logger.Warn("context read failed, starting with empty context",
			"conversation_id", conversationID, "error", err)
		return nil, nil
	}

	var messages []Message
	if err := json.Unmarshal([]byte(raw), &messages); err != nil {
		s.logger.Warn("discarding undecodable context", "conversation_id", conversationID, "error", err)
		return nil, nil
	}
	return messages, nil
}

// Set stores the history and refreshes the hash TTL. Unlike Get, write
// failures propagate so the caller can decide to drop or retry.
func (s *RedisStore) Set(ctx context.Context, conversationID string, messages []Message) error {
	raw, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("encode context: %w", err)
	}
	if err := s.client.HSet(ctx, s.hashKey, conversationID, string(raw)).Err(); err != nil {
		return fmt.Errorf("write context: %w", err)
	}
	if s.maxAge > 0 {
		if err := s.client.Expire(ctx, s.hashKey, s.maxAge).Err(); err != nil {
			return fmt.Errorf("refresh context expiry: %w", err)
		}
	}
	return nil
}

// Delete removes a conversation from the hash.
func (s *RedisStore) Delete(ctx context.Context, conversationID string) error {
	return s.client.HDel(ctx, s.hashKey, conversationID).Err()
}

// PurgeExpired is a no-op: Redis expires the hash itself via its TTL.
func (s *RedisStore) PurgeExpired(ctx context.Context) error {
	return nil
}

// Ping verifies connectivity at startup.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
