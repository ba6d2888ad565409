package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type Repository interface {
	Load(ctx context.Context, sessionID string) (State, error)
	Save(ctx context.Context, sessionID string, state State) error
	Delete(ctx context.Context, sessionID string) error
	// Update applies fn to the stored cart as one atomic read-modify-write.
	// An error returned by fn aborts the update and is returned unchanged.
	Update(ctx context.Context, sessionID string, fn func(*Store) error) (State, error)
}

// maxUpdateAttempts bounds the optimistic retries of Update. Every failed
// attempt means another writer committed in between.
const maxUpdateAttempts = 100

var ErrUpdateConflict = errors.New("cart update conflict")

// RedisRepository keeps one key per session. Keys have no TTL: a cart is only
// torn down by an explicit clear.
type RedisRepository struct {
	client *redis.Client
}

func NewRedisRepository(client *redis.Client) *RedisRepository {
	return &RedisRepository{client: client}
}

func (r *RedisRepository) Load(ctx context.Context, sessionID string) (State, error) {
	return decodeState(r.client.Get(ctx, cartKey(sessionID)))
}

func decodeState(cmd *redis.StringCmd) (State, error) {
	data, err := cmd.Bytes()
	if errors.Is(err, redis.Nil) {
		return State{}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("redis get cart: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, fmt.Errorf("unmarshal cart: %w", err)
	}
	return state, nil
}

func (r *RedisRepository) Save(ctx context.Context, sessionID string, state State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshal cart: %w", err)
	}
	if err := r.client.Set(ctx, cartKey(sessionID), data, 0).Err(); err != nil {
		return fmt.Errorf("redis set cart: %w", err)
	}
	return nil
}

func (r *RedisRepository) Delete(ctx context.Context, sessionID string) error {
	if err := r.client.Del(ctx, cartKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis delete cart: %w", err)
	}
	return nil
}

// Update watches the cart key, runs fn against the current state and commits
// the result in a MULTI/EXEC. A concurrent write to the same key fails the
// commit with redis.TxFailedErr and fn runs again on the fresh state.
func (r *RedisRepository) Update(ctx context.Context, sessionID string, fn func(*Store) error) (State, error) {
	key := cartKey(sessionID)

	var result State
	txf := func(tx *redis.Tx) error {
		state, err := decodeState(tx.Get(ctx, key))
		if err != nil {
			return err
		}

		store := NewStore(state)
		dirty := false
		unsubscribe := store.Subscribe(func(State) { dirty = true })
		defer unsubscribe()

		if err := fn(store); err != nil {
			return err
		}
		result = store.Snapshot()
		if !dirty {
			return nil
		}

		data, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("marshal cart: %w", err)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, 0)
			return nil
		})
		return err
	}

	for range maxUpdateAttempts {
		err := r.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return State{}, err
		}
		return result, nil
	}
	return State{}, fmt.Errorf("session %s: %w", sessionID, ErrUpdateConflict)
}

func cartKey(sessionID string) string {
	return "cart:" + sessionID
}
