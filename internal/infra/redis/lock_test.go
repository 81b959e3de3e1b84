//go:build !integration

package redis

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRedisLocker(t *testing.T) {
	ctx := context.Background()

	t.Run("should grant the lock once until released", func(t *testing.T) {
		// Arrange
		locker := NewLocker(newMemRedis())

		// Act
		token, err := locker.TryLock(ctx, "story:start:s1", time.Second)

		// Assert
		if err != nil || token == "" {
			t.Fatalf("expected a token, got %q %v", token, err)
		}
		if _, err := locker.TryLock(ctx, "story:start:s1", time.Second); !errors.Is(err, ErrLockHeld) {
			t.Fatalf("expected ErrLockHeld, got %v", err)
		}
		if err := locker.Unlock(ctx, "story:start:s1", token); err != nil {
			t.Fatalf("unlock: %v", err)
		}
		if _, err := locker.TryLock(ctx, "story:start:s1", time.Second); err != nil {
			t.Errorf("expected lock to be free again, got %v", err)
		}
	})

	t.Run("should not release a lock owned by another token", func(t *testing.T) {
		mem := newMemRedis()
		locker := NewLocker(mem)
		token, _ := locker.TryLock(ctx, "k", time.Second)

		_ = locker.Unlock(ctx, "k", "someone-else")

		if v, _ := mem.Get(ctx, "k"); v != token {
			t.Errorf("expected lock to be kept, got %q", v)
		}
	})

	t.Run("should surface redis errors after retries", func(t *testing.T) {
		mem := newMemRedis()
		calls := 0
		mem.SetNXFn = func(ctx context.Context, key string) (bool, error) {
			calls++
			return false, errors.New("connection refused")
		}
		locker := NewLocker(mem)

		_, err := locker.TryLock(ctx, "k", time.Second)

		if err == nil || errors.Is(err, ErrLockHeld) {
			t.Fatalf("expected the redis error, got %v", err)
		}
		if calls != lockAttempts {
			t.Errorf("expected %d attempts, got %d", lockAttempts, calls)
		}
	})
}
