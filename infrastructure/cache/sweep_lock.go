package cache

import (
	"context"
	"time"

	"blog-publisher/domain/repository"
	"blog-publisher/infrastructure/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const sweepLockKey = "blog-publisher:sweep:lock"

// releaseScript deletes the lock only if this holder still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

type SweepLock struct {
	client *redis.Client
	key    string
}

func NewSweepLock(client *redis.Client) repository.ISweepLock {
	return &SweepLock{client: client, key: sweepLockKey}
}

func (l *SweepLock) Acquire(ctx context.Context, ttl time.Duration) (func(), bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.key, token, ttl).Result()
	if err != nil || !ok {
		return func() {}, false, err
	}
	release := func() {
		// the caller's context may already be done when the sweep ends
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Err(); err != nil {
			logger.GetLogger().WithField("error", err).Warn("release sweep lock failed")
		}
	}
	return release, true, nil
}
