package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-engine/internal/cart"
	"github.com/redis/go-redis/v9"
)

// SnapshotStore persists a session's cart between processes.
type SnapshotStore interface {
	SaveCart(ctx context.Context, sessionID string, items []cart.LineItem) error
	LoadCart(ctx context.Context, sessionID string) ([]cart.LineItem, error)
	DeleteCart(ctx context.Context, sessionID string) error
}

type kvStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	CartSnapshotKey(sessionID string) string
}

// RedisSnapshotStore keeps cart snapshots as JSON with a TTL.
type RedisSnapshotStore struct {
	client kvStore
	ttl    time.Duration
}

func NewRedisSnapshotStore(client kvStore, ttl time.Duration) (*RedisSnapshotStore, error) {
	if client == nil {
		return nil, errors.New("redis client required for snapshot store")
	}
	return &RedisSnapshotStore{client: client, ttl: ttl}, nil
}

func (s *RedisSnapshotStore) SaveCart(ctx context.Context, sessionID string, items []cart.LineItem) error {
	if len(items) == 0 {
		return s.DeleteCart(ctx, sessionID)
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode cart snapshot: %w", err)
	}
	return s.client.Set(ctx, s.client.CartSnapshotKey(sessionID), string(payload), s.ttl)
}

// LoadCart returns nil without error when no snapshot exists.
func (s *RedisSnapshotStore) LoadCart(ctx context.Context, sessionID string) ([]cart.LineItem, error) {
	raw, err := s.client.Get(ctx, s.client.CartSnapshotKey(sessionID))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var items []cart.LineItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("decode cart snapshot: %w", err)
	}
	return items, nil
}

func (s *RedisSnapshotStore) DeleteCart(ctx context.Context, sessionID string) error {
	return s.client.Del(ctx, s.client.CartSnapshotKey(sessionID))
}
