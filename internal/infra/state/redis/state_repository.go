// Package redisstate is the Shared Cache Adapter: a thin, opaque
// getJson/setJson/pushLog binding over go-redis, used to mirror runtime game
// state, engagement momentum, story-director state, and taunt social state.
package redisstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"ludobackend/internal/repository"
)

// StateRepository is the Shared Cache Adapter's capability set, per §6:
// opaque key→string mapping with TTL, list push/trim, and a rate-limit
// primitive used by the HTTP rate-limit middleware.
type StateRepository struct {
	client    *redis.Client
	keyPrefix string
}

func NewStateRepository(client *redis.Client, keyPrefix string) *StateRepository {
	if client == nil {
		panic("redis client cannot be nil for StateRepository")
	}
	if keyPrefix == "" {
		keyPrefix = "ludo:"
	}
	return &StateRepository{client: client, keyPrefix: keyPrefix}
}

func (r *StateRepository) key(parts ...string) string {
	key := r.keyPrefix
	for i, p := range parts {
		if i > 0 {
			key += ":"
		}
		key += p
	}
	return key
}

func (r *StateRepository) RoomStateKey(roomID string) string {
	return r.key("room", roomID, "state")
}

func (r *StateRepository) RoomMovesKey(roomID string) string {
	return r.key("room", roomID, "moves")
}

func (r *StateRepository) MomentumKey(roomID, seatID string) string {
	return r.key("engagement", roomID, "player", seatID, "momentum")
}

func (r *StateRepository) ForceStateKey(roomID string) string {
	return r.key("engagement", roomID, "force-state")
}

func (r *StateRepository) StoryDirectorKey(roomID string) string {
	return r.key("engagement", roomID, "story-director")
}

func (r *StateRepository) TauntStateKey(roomID string) string {
	return r.key("taunt", roomID, "state")
}

// GetJSON unmarshals the value stored at key into dst. Returns
// repository.ErrNotFound on a cache miss.
func (r *StateRepository) GetJSON(ctx context.Context, key string, dst interface{}) error {
	raw, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return repository.ErrNotFound
		}
		return fmt.Errorf("redis: get %s: %w", key, err)
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("redis: unmarshal %s: %w", key, err)
	}
	return nil
}

// SetJSON marshals v and stores it at key with the given TTL (0 = no expiry).
func (r *StateRepository) SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("redis: marshal %s: %w", key, err)
	}
	if err := r.client.Set(ctx, key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set %s: %w", key, err)
	}
	return nil
}

// Delete removes key, used on room eviction.
func (r *StateRepository) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis: delete %v: %w", keys, err)
	}
	return nil
}

// PushLog appends entry (JSON-encoded) to the bounded list at key, trims to
// maxItems newest entries, and refreshes the TTL.
func (r *StateRepository) PushLog(ctx context.Context, key string, entry interface{}, maxItems int, ttl time.Duration) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("redis: marshal log entry for %s: %w", key, err)
	}
	pipe := r.client.Pipeline()
	pipe.RPush(ctx, key, payload)
	pipe.LTrim(ctx, key, int64(-maxItems), -1)
	if ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: push log to %s: %w", key, err)
	}
	return nil
}

// ListLog returns up to limit newest entries from the bounded list at key,
// each still JSON-encoded.
func (r *StateRepository) ListLog(ctx context.Context, key string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 100
	}
	entries, err := r.client.LRange(ctx, key, int64(-limit), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list log %s: %w", key, err)
	}
	return entries, nil
}

// CheckRateLimit atomically increments the counter at key and refreshes its
// TTL, reporting whether the post-increment count exceeds limit. Used by
// the HTTP rate-limit middleware.
func (r *StateRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	pipe := r.client.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("redis: rate-limit pipeline for %s: %w", key, err)
	}
	count, err := incr.Result()
	if err != nil {
		return false, fmt.Errorf("redis: rate-limit incr result for %s: %w", key, err)
	}
	return count > int64(limit), nil
}

// IncrementRevision atomically increments and returns the room's revision
// counter, used for warm-recovery cross-checks against the in-memory state.
func (r *StateRepository) IncrementRevision(ctx context.Context, roomID string) (uint64, error) {
	key := r.key("room", roomID, "revision")
	v, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis: increment revision for room %s: %w", roomID, err)
	}
	return uint64(v), nil
}
