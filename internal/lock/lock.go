// Package lock serializes the check-then-append sequence per message SID.
// Exists and Append are two separate network calls against the sheet, so
// concurrent redeliveries of the same message could both pass the existence
// check; holding a short-lived lock keyed by SID across the sequence closes
// that window when Redis is available.
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "sluice:lock:sid:"

// retryInterval is how long Acquire waits before re-attempting a held lock.
const retryInterval = 50 * time.Millisecond

// Locker acquires a mutual-exclusion section for a key. The returned release
// function must be called when the section ends.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
	Close() error
}

type redisLocker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLocker connects to Redis and verifies the connection.
func NewRedisLocker(redisURL string, ttl time.Duration) (Locker, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &redisLocker{client: client, ttl: ttl}, nil
}

// releaseScript deletes the lock only when it still holds our token, so an
// expired lock reacquired by another instance is never released by us.
const releaseScript = `
	if redis.call('GET', KEYS[1]) == ARGV[1] then
		return redis.call('DEL', KEYS[1])
	end
	return 0
`

// Acquire blocks until the lock for key is held or ctx is done. The TTL
// bounds how long a crashed holder can block other instances.
func (l *redisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	redisKey := keyPrefix + key
	token := uuid.New().String()

	for {
		ok, err := l.client.SetNX(ctx, redisKey, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryInterval):
		}
	}

	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		l.client.Eval(ctx, releaseScript, []string{redisKey}, token)
	}
	return release, nil
}

func (l *redisLocker) Close() error {
	return l.client.Close()
}

// NoOpLocker performs no locking. It keeps the accepted idempotency gap of
// the lockless design when Redis is disabled.
type NoOpLocker struct{}

func (NoOpLocker) Acquire(ctx context.Context, key string) (func(), error) {
	return func() {}, nil
}

func (NoOpLocker) Close() error {
	return nil
}
