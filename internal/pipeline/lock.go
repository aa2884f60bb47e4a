package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/cuongbtq/content-i18n/internal/domain"
)

// Locker guards a sync run. TryLock never waits: a held lock yields
// domain.ErrSyncInProgress.
type Locker interface {
	TryLock(ctx context.Context) (unlock func(), err error)
}

// LocalLock serialises runs within one process
type LocalLock struct {
	mu sync.Mutex
}

// NewLocalLock creates a new LocalLock
func NewLocalLock() *LocalLock {
	return &LocalLock{}
}

// TryLock acquires the lock if it is free
func (l *LocalLock) TryLock(_ context.Context) (func(), error) {
	if !l.mu.TryLock() {
		return nil, domain.ErrSyncInProgress
	}
	return l.mu.Unlock, nil
}

// redisClient is the subset of the go-redis API the lock needs
type redisClient interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...any) *redis.Cmd
}

// releaseScript deletes the key only if it still holds our token, so an
// expired lock taken over by another process is left alone.
const releaseScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`

// RedisLock serialises runs across processes
type RedisLock struct {
	client redisClient
	key    string
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisLock creates a lock on key that expires after ttl if never released
func NewRedisLock(client redisClient, key string, ttl time.Duration, logger *slog.Logger) *RedisLock {
	if key == "" {
		key = "content-i18n:sync-lock"
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	return &RedisLock{
		client: client,
		key:    key,
		ttl:    ttl,
		logger: logger,
	}
}

// TryLock sets the lock key with a fresh token if it is absent
func (l *RedisLock) TryLock(ctx context.Context) (func(), error) {
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire sync lock: %w", err)
	}
	if !ok {
		return nil, domain.ErrSyncInProgress
	}

	return func() {
		// Release must run even if the run's context was cancelled.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := l.client.Eval(ctx, releaseScript, []string{l.key}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
			l.logger.Warn("Failed to release sync lock",
				slog.String("key", l.key),
				slog.Any("error", err),
			)
		}
	}, nil
}
