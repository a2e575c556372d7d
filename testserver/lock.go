package testserver

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultLockTTL bounds how long a crashed holder can block a ticket.
const DefaultLockTTL = 5 * time.Second

// Locker is a per-ticket mutual exclusion lock owned by a user.
type Locker interface {
	// TryLock acquires key for owner without waiting. It reports false when
	// someone else holds the lock.
	TryLock(ctx context.Context, key, owner string) (bool, error)
	// Unlock releases key only if owner still holds it.
	Unlock(ctx context.Context, key, owner string) error
}

// unlockScript deletes the key only when it still carries the caller's
// value, so an expired lock re-acquired by someone else is left alone.
var unlockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`)

// RedisLocker implements Locker with SET NX and a TTL.
type RedisLocker struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewRedisLocker(client redis.UniversalClient, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &RedisLocker{client: client, ttl: ttl}
}

func (l *RedisLocker) TryLock(ctx context.Context, key, owner string) (bool, error) {
	ok, err := l.client.SetNX(ctx, key, owner, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis SETNX %s: %w", key, err)
	}
	return ok, nil
}

func (l *RedisLocker) Unlock(ctx context.Context, key, owner string) error {
	if err := unlockScript.Run(ctx, l.client, []string{key}, owner).Err(); err != nil && err != redis.Nil {
		return fmt.Errorf("redis unlock %s: %w", key, err)
	}
	return nil
}

// MemoryLocker is an in-process Locker with the same owner semantics as
// RedisLocker, minus expiry.
type MemoryLocker struct {
	mu     sync.Mutex
	owners map[string]string
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{owners: make(map[string]string)}
}

func (l *MemoryLocker) TryLock(_ context.Context, key, owner string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, held := l.owners[key]; held {
		return false, nil
	}
	l.owners[key] = owner
	return true, nil
}

func (l *MemoryLocker) Unlock(_ context.Context, key, owner string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.owners[key] == owner {
		delete(l.owners, key)
	}
	return nil
}
