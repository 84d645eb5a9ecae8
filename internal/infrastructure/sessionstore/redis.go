package sessionstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/flight-search/flight-session-orchestrator/internal/domain"
)

const keyPrefix = "flight-session:search:"

// RedisConfig holds the connection settings for the Redis store.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

// RedisStore keeps slots in Redis so a session survives a BFF restart.
// The TTL is refreshed on every write; an idle session's slot expires with it.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects and pings Redis.
func NewRedisStore(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return NewRedisStoreWithClient(client, cfg.TTL), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

// Load implements Store.
func (s *RedisStore) Load(ctx context.Context, sessionID string) (domain.SearchResult, bool, error) {
	data, err := s.client.Get(ctx, slotKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.SearchResult{}, false, nil
	}
	if err != nil {
		return domain.SearchResult{}, false, fmt.Errorf("load search slot: %w", err)
	}

	result, err := decodeResult(data)
	if err != nil {
		return domain.SearchResult{}, false, err
	}
	return result, true, nil
}

// Replace implements Store.
func (s *RedisStore) Replace(ctx context.Context, sessionID string, result domain.SearchResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode search slot: %w", err)
	}
	if err := s.client.Set(ctx, slotKey(sessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save search slot: %w", err)
	}
	return nil
}

// Clear implements Store.
func (s *RedisStore) Clear(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, slotKey(sessionID)).Err()
}

// Close implements Store.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func slotKey(sessionID string) string {
	return keyPrefix + sessionID
}

// decodeResult restores a slot, re-normalising the leg lists.
func decodeResult(data []byte) (domain.SearchResult, error) {
	var result domain.SearchResult
	if err := json.Unmarshal(data, &result); err != nil {
		return domain.SearchResult{}, fmt.Errorf("decode search slot: %w", err)
	}
	if result.Outbound == nil {
		result.Outbound = []domain.FlightOption{}
	}
	if result.Return == nil {
		result.Return = []domain.FlightOption{}
	}
	return result, nil
}
