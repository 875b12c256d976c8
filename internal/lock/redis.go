// internal/lock/redis.go
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultTTL = 30 * time.Second
	keyPrefix  = "allocation:run:"
)

// ErrLockLost is returned on release when the key expired or was taken over.
var ErrLockLost = errors.New("RUN_LOCK_LOST")

// Deletes the key only while it still holds our token.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`

// RedisLocker is a per-game advisory lock taken with SET NX PX.
type RedisLocker struct {
	client   *redis.Client
	ttl      time.Duration
	newToken func() string
}

func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisLocker{
		client:   client,
		ttl:      ttl,
		newToken: func() string { return uuid.New().String() },
	}
}

func Key(gameID string) string {
	return keyPrefix + gameID
}

// Acquire takes the lock for gameID. acquired is false when another holder
// owns it; the returned release func is nil in that case.
func (l *RedisLocker) Acquire(ctx context.Context, gameID string) (func(context.Context) error, bool, error) {
	key := Key(gameID)
	token := l.newToken()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis setnx %s: %w", key, err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func(ctx context.Context) error {
		deleted, err := l.client.Eval(ctx, releaseScript, []string{key}, token).Int64()
		if err != nil {
			return fmt.Errorf("redis release %s: %w", key, err)
		}
		if deleted == 0 {
			return fmt.Errorf("%w: %s", ErrLockLost, key)
		}
		return nil
	}
	return release, true, nil
}
