package drawlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

const lockReleaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

const defaultRetryInterval = 50 * time.Millisecond

// RedisLocker holds a key with SET NX PX and releases it only if the token
// still matches, so an expired holder cannot delete its successor's lock.
type RedisLocker struct {
	client        *redis.Client
	script        *redis.Script
	retryInterval time.Duration
}

func NewRedisLocker(client *redis.Client) *RedisLocker {
	return &RedisLocker{
		client:        client,
		script:        redis.NewScript(lockReleaseScript),
		retryInterval: defaultRetryInterval,
	}
}

func (l *RedisLocker) Backend() string { return "redis" }

func (l *RedisLocker) Acquire(ctx context.Context, key string, wait, lease time.Duration) (Unlock, error) {
	if l == nil || l.client == nil {
		return nil, errors.New("lock client not configured")
	}
	if err := validate(key, wait, lease); err != nil {
		return nil, err
	}

	waitCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	// Every attempt runs on the caller's context; the wait only bounds the
	// pauses between attempts, so a zero wait still tries once.
	limiter := rate.NewLimiter(rate.Every(l.retryInterval), 1)
	token := uuid.NewString()
	for {
		ok, err := l.client.SetNX(ctx, key, token, lease).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("redis lock %s: %w", key, err)
		}
		if ok {
			return l.release(key, token), nil
		}
		if wait == 0 {
			return nil, ErrNotAcquired
		}
		if err := limiter.Wait(waitCtx); err != nil {
			return nil, waitFailed(ctx)
		}
	}
}

func (l *RedisLocker) release(key, token string) Unlock {
	return func(ctx context.Context) error {
		return l.script.Run(ctx, l.client, []string{key}, token).Err()
	}
}
