package persistence

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld is returned when another holder owns the lock.
var ErrLockHeld = errors.New("lock held by another holder")

// Locker serializes critical sections across instances.
type Locker interface {
	// Acquire takes the named lock and returns its release function.
	Acquire(ctx context.Context, name string) (func(), error)
}

const unlockScript = `
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end`

// RedisLocker implements Locker with SET NX PX and a compare-and-delete
// release. Acquire polls until the lock frees up or ctx ends.
type RedisLocker struct {
	client *redis.Client
	prefix string
	expiry time.Duration
	poll   time.Duration
}

// NewRedisLocker builds a locker whose keys live under prefix.
func NewRedisLocker(client *redis.Client, prefix string, expiry time.Duration) *RedisLocker {
	if expiry <= 0 {
		expiry = 10 * time.Second
	}
	return &RedisLocker{client: client, prefix: prefix, expiry: expiry, poll: 50 * time.Millisecond}
}

func (l *RedisLocker) Acquire(ctx context.Context, name string) (func(), error) {
	key := l.prefix + name
	value := uuid.NewString()
	for {
		ok, err := l.client.SetNX(ctx, key, value, l.expiry).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", name, err)
		}
		if ok {
			return func() {
				// The lock expires on its own if the release fails.
				_ = l.client.Eval(context.Background(), unlockScript, []string{key}, value).Err()
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s", ErrLockHeld, name)
		case <-time.After(l.poll):
		}
	}
}

// LocalLocker is an in-process Locker for single-instance deployments.
type LocalLocker struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{locks: make(map[string]chan struct{})}
}

func (l *LocalLocker) Acquire(ctx context.Context, name string) (func(), error) {
	l.mu.Lock()
	ch, ok := l.locks[name]
	if !ok {
		ch = make(chan struct{}, 1)
		l.locks[name] = ch
	}
	l.mu.Unlock()

	select {
	case ch <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-ch }) }, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %s", ErrLockHeld, name)
	}
}
