// Copyright (c) 2025 AccelByte Inc. All Rights Reserved.
// This is licensed software from AccelByte Inc, for limitations
// and restrictions contact your company contract manager.

package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultLockTTL bounds how long a crashed holder can block a lock
	DefaultLockTTL = 10 * time.Minute
)

var (
	// ErrLocked is returned when the lock is held by someone else.
	ErrLocked = errors.New("lock already held")
	// ErrLockLost is returned when a held lock expired or was taken over.
	ErrLockLost = errors.New("lock no longer held")
)

// releaseScript deletes the key only if it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// extendScript resets the TTL only if the key still carries our token.
var extendScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0
`)

// Locker hands out exclusive named locks backed by Redis.
type Locker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewLocker creates a locker. A non-positive ttl uses DefaultLockTTL.
func NewLocker(client *redis.Client, ttl time.Duration) *Locker {
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &Locker{client: client, ttl: ttl}
}

// Lock is a held lock.
type Lock struct {
	client *redis.Client
	key    string
	token  string
	ttl    time.Duration
}

// Acquire takes the named lock or fails with ErrLocked.
func (l *Locker) Acquire(ctx context.Context, name string) (*Lock, error) {
	key := makeKey(name)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock %s: %w", name, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, name)
	}

	logrus.Debugf("acquired lock %s", name)
	return &Lock{client: l.client, key: key, token: token, ttl: l.ttl}, nil
}

// Release drops the lock if it is still ours.
func (k *Lock) Release(ctx context.Context) error {
	n, err := releaseScript.Run(ctx, k.client, []string{k.key}, k.token).Int()
	if err != nil {
		return fmt.Errorf("failed to release lock %s: %w", k.key, err)
	}
	if n == 0 {
		logrus.Warnf("lock %s expired before release", k.key)
	}
	return nil
}

// Extend resets the lock's TTL. It fails with ErrLockLost once the lock has
// expired or another holder took it.
func (k *Lock) Extend(ctx context.Context) error {
	n, err := extendScript.Run(ctx, k.client, []string{k.key}, k.token, k.ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("failed to extend lock %s: %w", k.key, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrLockLost, k.key)
	}
	return nil
}

// KeepAlive extends the lock every third of its TTL until stop is called.
// stop returns once the renewal goroutine has exited.
func (k *Lock) KeepAlive(ctx context.Context) (stop func()) {
	quit := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(k.ttl / 3)
		defer ticker.Stop()
		for {
			select {
			case <-quit:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := k.Extend(ctx); err != nil {
					logrus.Errorf("lock renewal stopped: %v", err)
					if errors.Is(err, ErrLockLost) {
						return
					}
				}
			}
		}
	}()

	return func() {
		close(quit)
		<-done
	}
}

// Key returns the Redis key of the lock.
func (k *Lock) Key() string {
	return k.key
}

// RunLockName is the lock serializing one recompute kind.
func RunLockName(kind string) string {
	return "run:" + kind
}

// PlayerLockName is the lock serializing per-player work of one kind.
func PlayerLockName(kind string, playerID int64) string {
	return fmt.Sprintf("player:%s:%d", kind, playerID)
}
