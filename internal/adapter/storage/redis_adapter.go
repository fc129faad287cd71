package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/pharma-supply/internal/core/domain"
)

const claimKeyPrefix = "alert-claim:"

// releaseIfOwnerScript deletes a claim only while it still names the alert
// that took it, so a rollback never drops a newer claim.
var releaseIfOwnerScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// RedisAdapter keeps alert claims in Redis. Claims do not expire unless a TTL
// is configured; they are released when the subject recovers.
type RedisAdapter struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisAdapter(client *redis.Client, ttl time.Duration) *RedisAdapter {
	return &RedisAdapter{client: client, ttl: ttl}
}

func claimKey(key domain.ClaimKey) string {
	return claimKeyPrefix + key.String()
}

func (r *RedisAdapter) Claim(ctx context.Context, key domain.ClaimKey, alertID string) (bool, error) {
	ok, err := r.client.SetNX(ctx, claimKey(key), alertID, r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim alert: %w", err)
	}

	return ok, nil
}

func (r *RedisAdapter) Release(ctx context.Context, keys ...domain.ClaimKey) error {
	if len(keys) == 0 {
		return nil
	}
	redisKeys := make([]string, len(keys))
	for i, k := range keys {
		redisKeys[i] = claimKey(k)
	}
	return r.client.Del(ctx, redisKeys...).Err()
}

// Unclaim removes a claim only while alertID still holds it.
func (r *RedisAdapter) Unclaim(ctx context.Context, key domain.ClaimKey, alertID string) error {
	if err := releaseIfOwnerScript.Run(ctx, r.client, []string{claimKey(key)}, alertID).Err(); err != nil {
		return fmt.Errorf("unclaim alert: %w", err)
	}
	return nil
}

func (r *RedisAdapter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
