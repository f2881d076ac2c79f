// Package session keeps short per-session conversation histories so the
// prompt can carry recent turns. Histories are bounded by message count
// and an estimated token budget; oldest turns fall off first.
//
// Drivers: in-memory (single process) and Redis (shared, TTL-expired).
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/lailabot/laila/internal/config"
	"github.com/lailabot/laila/pkg/contracts"
	"github.com/lailabot/laila/pkg/models"
	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "laila:session:"

// New builds the configured session store. Driver "none" returns
// (nil, nil): the request's session_id is then ignored.
func New(cfg config.SessionConfig) (contracts.SessionStore, error) {
	switch cfg.Driver {
	case "", "none":
		return nil, nil
	case "memory":
		return NewMemoryStore(cfg.MaxMessages, cfg.MaxTokens), nil
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		return NewRedisStore(client, cfg.TTL, cfg.MaxMessages, cfg.MaxTokens), nil
	default:
		return nil, fmt.Errorf("unknown session driver: %s", cfg.Driver)
	}
}

// Truncate bounds a history: message limit first, then the token budget,
// always dropping the oldest turns.
func Truncate(history []models.PromptMessage, maxMessages, maxTokens int) []models.PromptMessage {
	if maxMessages > 0 && len(history) > maxMessages {
		history = history[len(history)-maxMessages:]
	}
	if maxTokens <= 0 {
		return history
	}

	total := 0
	for _, msg := range history {
		total += EstimateTokens(msg.Content)
	}
	for total > maxTokens && len(history) > 0 {
		total -= EstimateTokens(history[0].Content)
		history = history[1:]
	}
	return history
}

// ── In-memory driver ─────────────────────────────────────────

// MemoryStore holds histories in process memory.
type MemoryStore struct {
	mu          sync.RWMutex
	histories   map[string][]models.PromptMessage
	maxMessages int
	maxTokens   int
}

// NewMemoryStore creates an in-memory session store.
func NewMemoryStore(maxMessages, maxTokens int) *MemoryStore {
	return &MemoryStore{
		histories:   make(map[string][]models.PromptMessage),
		maxMessages: maxMessages,
		maxTokens:   maxTokens,
	}
}

func (s *MemoryStore) History(_ context.Context, sessionID string) ([]models.PromptMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	history := s.histories[sessionID]
	out := make([]models.PromptMessage, len(history))
	copy(out, history)
	return out, nil
}

func (s *MemoryStore) Append(_ context.Context, sessionID string, msgs ...models.PromptMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := append(s.histories[sessionID], msgs...)
	s.histories[sessionID] = Truncate(history, s.maxMessages, s.maxTokens)
	return nil
}

func (s *MemoryStore) Close() error { return nil }

// ── Redis driver ─────────────────────────────────────────────

// RedisStore keeps histories as JSON values with a TTL refreshed on
// every write.
type RedisStore struct {
	client      *redis.Client
	ttl         time.Duration
	maxMessages int
	maxTokens   int
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(client *redis.Client, ttl time.Duration, maxMessages, maxTokens int) *RedisStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{client: client, ttl: ttl, maxMessages: maxMessages, maxTokens: maxTokens}
}

func (s *RedisStore) History(ctx context.Context, sessionID string) ([]models.PromptMessage, error) {
	val, err := s.client.Get(ctx, redisKeyPrefix+sessionID).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var history []models.PromptMessage
	if err := json.Unmarshal([]byte(val), &history); err != nil {
		return nil, err
	}
	return history, nil
}

func (s *RedisStore) Append(ctx context.Context, sessionID string, msgs ...models.PromptMessage) error {
	history, err := s.History(ctx, sessionID)
	if err != nil {
		return err
	}
	history = Truncate(append(history, msgs...), s.maxMessages, s.maxTokens)

	val, err := json.Marshal(history)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, redisKeyPrefix+sessionID, val, s.ttl).Err()
}

func (s *RedisStore) Close() error { return s.client.Close() }
