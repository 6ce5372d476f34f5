package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// pendingMarker holds a claimed key until the task id is known.
const pendingMarker = "pending"

// claimAttempts bounds the SETNX/GET loop when a key expires between the two
// calls.
const claimAttempts = 3

// swapIfScript replaces KEYS[1] with ARGV[2] (PX ARGV[3]) only while it still
// holds ARGV[1]. An empty ARGV[2] deletes the key instead.
var swapIfScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) ~= ARGV[1] then
	return 0
end
if ARGV[2] == "" then
	return redis.call("DEL", KEYS[1])
end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
return 1
`)

// IdempotencyStore maps a client supplied Idempotency-Key to the task it
// created. Keys are scoped per owner.
// Key format: idem:task:<owner_id>:<key>
type IdempotencyStore struct {
	client *redis.Client
}

func NewIdempotencyStore(client *redis.Client) *IdempotencyStore {
	return &IdempotencyStore{client: client}
}

// Claim reserves key for ownerID with SETNX. When the key is already taken it
// returns the task id stored there, or "" while the holder is still pending.
func (s *IdempotencyStore) Claim(ctx context.Context, ownerID, key string, ttl time.Duration) (bool, string, error) {
	k := s.key(ownerID, key)

	for i := 0; i < claimAttempts; i++ {
		ok, err := s.client.SetNX(ctx, k, pendingMarker, ttl).Result()
		if err != nil {
			return false, "", fmt.Errorf("idempotency claim: %w", err)
		}
		if ok {
			return true, "", nil
		}

		val, err := s.client.Get(ctx, k).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return false, "", fmt.Errorf("idempotency claim: %w", err)
		}
		if val == pendingMarker {
			return false, "", nil
		}
		return false, val, nil
	}
	return false, "", nil
}

// Reclaim marks key pending again if it still points at staleTaskID.
func (s *IdempotencyStore) Reclaim(ctx context.Context, ownerID, key, staleTaskID string, ttl time.Duration) (bool, error) {
	n, err := swapIfScript.Run(ctx, s.client, []string{s.key(ownerID, key)},
		staleTaskID, pendingMarker, ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("idempotency reclaim: %w", err)
	}
	return n == 1, nil
}

// Remember records taskID under key for ttl, replacing the pending marker.
func (s *IdempotencyStore) Remember(ctx context.Context, ownerID, key, taskID string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.key(ownerID, key), taskID, ttl).Err(); err != nil {
		return fmt.Errorf("idempotency remember: %w", err)
	}
	return nil
}

// Release deletes key if it is still pending. A recorded task id is kept.
func (s *IdempotencyStore) Release(ctx context.Context, ownerID, key string) error {
	if err := swapIfScript.Run(ctx, s.client, []string{s.key(ownerID, key)}, pendingMarker, "", 0).Err(); err != nil {
		return fmt.Errorf("idempotency release: %w", err)
	}
	return nil
}

func (s *IdempotencyStore) key(ownerID, key string) string {
	return fmt.Sprintf("idem:task:%s:%s", ownerID, key)
}
