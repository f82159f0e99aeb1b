package blocklist

import (
	"context"
	"time"

	"github.com/nakgoalgo/nakgo/internal/common"
	"github.com/nakgoalgo/nakgo/internal/dbx"
	"github.com/nakgoalgo/nakgo/internal/timex"
	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces blocklist keys. Keys carry the SHA-256 of the token
// rather than the token itself.
const keyPrefix = "blocklist:"

// RedisRepository keeps blocked tokens as Redis keys whose TTL matches the
// token expiry, so Redis removes them on its own.
type RedisRepository struct {
	client redis.UniversalClient
	now    timex.Clock
}

// NewRedisRepository uses now to derive key TTLs. A nil clock means the
// system clock.
func NewRedisRepository(client redis.UniversalClient, now timex.Clock) *RedisRepository {
	if now == nil {
		now = timex.SystemClock
	}
	return &RedisRepository{client: client, now: now}
}

func key(token string) string {
	return keyPrefix + common.HashSHA256Hex(token)
}

func (r *RedisRepository) Insert(ctx context.Context, token string, expiresAt time.Time) (bool, error) {
	ttl := expiresAt.Sub(r.now())
	if ttl <= 0 {
		// Already past its expiry, so verification rejects it anyway.
		return false, nil
	}
	ok, err := r.client.SetNX(ctx, key(token), expiresAt.Unix(), ttl).Result()
	if err != nil {
		return false, dbx.StoreError(err)
	}
	return ok, nil
}

func (r *RedisRepository) Exists(ctx context.Context, token string) (bool, error) {
	n, err := r.client.Exists(ctx, key(token)).Result()
	if err != nil {
		return false, dbx.StoreError(err)
	}
	return n > 0, nil
}

// DeleteExpired is a no-op: expired keys are evicted by Redis.
func (r *RedisRepository) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}
