package cleanup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisClient is the subset of go-redis client methods used by RedisLedger.
// Keeping it as an interface enables mocking in tests.
type RedisClient interface {
	HSet(ctx context.Context, key string, values ...any) *redis.IntCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	HDel(ctx context.Context, key string, fields ...string) *redis.IntCmd
}

// RedisLedger stores entries as JSON values in one hash keyed by asset id.
type RedisLedger struct {
	client RedisClient
	key    string
}

// NewRedisLedger returns a ledger using the hash "<prefix>assets".
func NewRedisLedger(client RedisClient, prefix string) *RedisLedger {
	return &RedisLedger{client: client, key: prefix + "assets"}
}

func (r *RedisLedger) Add(ctx context.Context, p Pending) error {
	if p.AssetID == "" {
		return errors.New("cleanup: empty asset id")
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("cleanup: marshal pending asset: %w", err)
	}
	if err := r.client.HSet(ctx, r.key, p.AssetID, string(data)).Err(); err != nil {
		return fmt.Errorf("cleanup: redis hset: %w", err)
	}
	return nil
}

func (r *RedisLedger) List(ctx context.Context) ([]Pending, error) {
	vals, err := r.client.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("cleanup: redis hgetall: %w", err)
	}
	out := make([]Pending, 0, len(vals))
	for id, raw := range vals {
		var p Pending
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			// Keep the id so the asset is still retried.
			p = Pending{AssetID: id, LastError: "unreadable ledger entry"}
		}
		out = append(out, p)
	}
	sortPending(out)
	return out, nil
}

func (r *RedisLedger) Remove(ctx context.Context, assetID string) error {
	n, err := r.client.HDel(ctx, r.key, assetID).Result()
	if err != nil {
		return fmt.Errorf("cleanup: redis hdel: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
