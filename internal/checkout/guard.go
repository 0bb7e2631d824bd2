package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const defaultSubmitLockTTL = 2 * time.Minute

// SubmitGuard keeps a checkout from being submitted twice across processes.
// Acquire returns a release func when the caller owns the submission.
type SubmitGuard interface {
	Acquire(ctx context.Context, sessionID string) (release func(context.Context) error, ok bool, err error)
}

type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	CompareAndDelete(ctx context.Context, key, expected string) (bool, error)
	SubmitLockKey(sessionID string) string
}

// RedisSubmitGuard implements SubmitGuard with SETNX + TTL.
type RedisSubmitGuard struct {
	client lockStore
	ttl    time.Duration
}

// NewRedisSubmitGuard constructs a redis-backed guard.
func NewRedisSubmitGuard(client lockStore, ttl time.Duration) (*RedisSubmitGuard, error) {
	if client == nil {
		return nil, errors.New("redis client required for submit guard")
	}
	if ttl <= 0 {
		ttl = defaultSubmitLockTTL
	}
	return &RedisSubmitGuard{client: client, ttl: ttl}, nil
}

func (g *RedisSubmitGuard) Acquire(ctx context.Context, sessionID string) (func(context.Context) error, bool, error) {
	key := g.client.SubmitLockKey(sessionID)
	owner := uuid.NewString()
	ok, err := g.client.SetNX(ctx, key, owner, g.ttl)
	if err != nil {
		return nil, false, fmt.Errorf("setnx: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	return func(ctx context.Context) error {
		return g.release(ctx, key, owner)
	}, true, nil
}

// release frees the lock only if this owner still holds it.
func (g *RedisSubmitGuard) release(ctx context.Context, key, owner string) error {
	if _, err := g.client.CompareAndDelete(ctx, key, owner); err != nil {
		return fmt.Errorf("release submit lock: %w", err)
	}
	return nil
}
