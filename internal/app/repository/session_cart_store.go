package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/madness-store/madness-backend/internal/app/model"
	"github.com/madness-store/madness-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const (
	sessionCartPrefix = "cart:session:"
	sessionLockPrefix = "cart:lock:"
	sessionLockTTL    = 10 * time.Second
	sessionLockWait   = 2 * time.Second
	sessionLockPoll   = 20 * time.Millisecond
)

// unlockScript deletes the lock only if we still own it.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// sessionCartStore keeps anonymous carts as JSON blobs in redis, expiring
// together with the visitor's session.
type sessionCartStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewSessionCartStore(rdb *redis.Client, ttl time.Duration) CartStore {
	return &sessionCartStore{rdb: rdb, ttl: ttl}
}

func (s *sessionCartStore) Load(ctx context.Context, owner model.CartOwner) (*model.Cart, error) {
	data, err := s.rdb.Get(ctx, sessionCartPrefix+owner.SessionID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		logger.Error("Failed to load session cart", err, map[string]interface{}{
			"owner": owner.String(),
		})
		return nil, err
	}

	var cart model.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, fmt.Errorf("decode session cart: %w", err)
	}
	return &cart, nil
}

func (s *sessionCartStore) Mutate(ctx context.Context, owner model.CartOwner, create bool, fn CartMutation) (*model.Cart, error) {
	unlock, err := s.lock(ctx, owner.SessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	cart, err := s.Load(ctx, owner)
	if errors.Is(err, ErrCartNotFound) && create {
		cart, err = &model.Cart{Items: []model.CartItem{}, CreatedAt: time.Now()}, nil
	}
	if err != nil {
		return nil, err
	}

	if err := fn(ctx, cart); err != nil {
		return nil, err
	}
	cart.UpdatedAt = time.Now()

	data, err := json.Marshal(cart)
	if err != nil {
		return nil, fmt.Errorf("encode session cart: %w", err)
	}
	if err := s.rdb.Set(ctx, sessionCartPrefix+owner.SessionID, data, s.ttl).Err(); err != nil {
		logger.Error("Failed to save session cart", err, map[string]interface{}{
			"owner": owner.String(),
		})
		return nil, err
	}
	return cart, nil
}

func (s *sessionCartStore) Delete(ctx context.Context, owner model.CartOwner) error {
	n, err := s.rdb.Del(ctx, sessionCartPrefix+owner.SessionID).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrCartNotFound
	}
	return nil
}

// lock takes the per-session mutation lock, waiting briefly for a holder to
// finish. The lock expires on its own if the holder dies.
func (s *sessionCartStore) lock(ctx context.Context, sessionID string) (func(), error) {
	key := sessionLockPrefix + sessionID
	token := uuid.NewString()
	deadline := time.Now().Add(sessionLockWait)

	for {
		ok, err := s.rdb.SetNX(ctx, key, token, sessionLockTTL).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			logger.Warn("Session cart lock wait timed out", map[string]interface{}{
				"session_id": sessionID,
			})
			return nil, ErrCartBusy
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(sessionLockPoll):
		}
	}

	return func() {
		// Release on a fresh context so a cancelled request still unlocks.
		releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := unlockScript.Run(releaseCtx, s.rdb, []string{key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			logger.Warn("Failed to release session cart lock", map[string]interface{}{
				"session_id": sessionID,
				"error":      err.Error(),
			})
		}
	}, nil
}
