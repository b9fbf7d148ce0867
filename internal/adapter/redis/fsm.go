package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/escalopa/tajweed-bot/internal/domain"
)

const (
	stateKeyPrefix = "fsm:state:"
	dataKeyPrefix  = "fsm:data:"
	defaultTTL     = 24 * time.Hour
)

// FSM keeps per-user conversation state and session data in redis
type FSM struct {
	client *redis.Client
	ttl    time.Duration
}

func NewFSM(client *redis.Client) *FSM {
	return &FSM{client: client, ttl: defaultTTL}
}

func stateKey(userID string) string {
	return stateKeyPrefix + userID
}

func dataKey(userID, key string) string {
	return fmt.Sprintf("%s%s:%s", dataKeyPrefix, userID, key)
}

// SetState sets the current state for a user
func (f *FSM) SetState(ctx context.Context, userID string, state domain.State) error {
	return f.client.Set(ctx, stateKey(userID), string(state), f.ttl).Err()
}

// GetState gets the current state for a user, StateStart when none is stored
func (f *FSM) GetState(ctx context.Context, userID string) (domain.State, error) {
	val, err := f.client.Get(ctx, stateKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return domain.StateStart, nil
	}
	if err != nil {
		return "", fmt.Errorf("get state: %w", err)
	}
	return domain.State(val), nil
}

// DeleteState deletes the state for a user
func (f *FSM) DeleteState(ctx context.Context, userID string) error {
	return f.client.Del(ctx, stateKey(userID)).Err()
}

// SetData sets temporary data for a user's current session
func (f *FSM) SetData(ctx context.Context, userID, key, value string) error {
	return f.client.Set(ctx, dataKey(userID, key), value, f.ttl).Err()
}

// GetData gets temporary data for a user's current session.
// Missing data is reported as domain.ErrSessionExpired.
func (f *FSM) GetData(ctx context.Context, userID, key string) (string, error) {
	val, err := f.client.Get(ctx, dataKey(userID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("get %s: %w", key, domain.ErrSessionExpired)
	}
	if err != nil {
		return "", fmt.Errorf("get data: %w", err)
	}
	return val, nil
}

// TakeData reads and deletes session data in one GETDEL round trip.
// Only one of several concurrent callers receives the value, the rest
// get domain.ErrSessionExpired.
func (f *FSM) TakeData(ctx context.Context, userID, key string) (string, error) {
	val, err := f.client.GetDel(ctx, dataKey(userID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("take %s: %w", key, domain.ErrSessionExpired)
	}
	if err != nil {
		return "", fmt.Errorf("take data: %w", err)
	}
	return val, nil
}

// DeleteData deletes temporary data for a user
func (f *FSM) DeleteData(ctx context.Context, userID, key string) error {
	return f.client.Del(ctx, dataKey(userID, key)).Err()
}
