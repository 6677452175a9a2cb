package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/rl1809/store-inventory/internal/port"
)

const (
	lockKeyPrefix        = "lock:store:"
	defaultLockTTL       = 5 * time.Second
	defaultRetryInterval = 10 * time.Millisecond
)

// releaseScript deletes the lock only if it still carries our token, so an
// expired lock that someone else re-acquired is left alone.
var releaseScript = redis.NewScript(`
local key = KEYS[1]
local token = ARGV[1]

if redis.call('GET', key) == token then
	return redis.call('DEL', key)
end

return 0
`)

// RedisLocker serializes work on a key across processes. The TTL bounds how
// long a crashed holder can block others.
type RedisLocker struct {
	client        *redis.Client
	ttl           time.Duration
	retryInterval time.Duration
}

func NewRedisLocker(client *redis.Client, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &RedisLocker{client: client, ttl: ttl, retryInterval: defaultRetryInterval}
}

func (r *RedisLocker) Lock(ctx context.Context, key string) (func(), error) {
	redisKey := lockKeyPrefix + key
	token := uuid.NewString()

	for {
		ok, err := r.client.SetNX(ctx, redisKey, token, r.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %s: %v", port.ErrLockNotAcquired, key, ctx.Err())
			}
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %v", port.ErrLockNotAcquired, key, ctx.Err())
		case <-time.After(r.retryInterval):
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := releaseScript.Run(releaseCtx, r.client, []string{redisKey}, token).Err(); err != nil {
				log.Warn().Err(err).Str("key", key).Msg("Failed to release store lock")
			}
		})
	}, nil
}
