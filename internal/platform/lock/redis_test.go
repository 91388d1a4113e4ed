package lock

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"judge_mirror/internal/common"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

func testRedis(t *testing.T) string {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	return addr
}

func TestRedisLock(t *testing.T) {
	addr := testRedis(t)
	ctx := context.Background()
	rdb, err := ConnectRedis(ctx, addr, "", 0)
	if err != nil {
		t.Fatal(err)
	}
	defer rdb.Close()

	key := "judge_mirror:test:" + uuid.NewString()
	t.Cleanup(func() { rdb.Del(context.Background(), key) })

	first := NewRedisLock(rdb, key, 5*time.Second, zerolog.Nop())
	second := NewRedisLock(rdb, key, 5*time.Second, zerolog.Nop())

	if err := first.Acquire(ctx); err != nil {
		t.Fatalf("first Acquire: %v", err)
	}
	if err := second.Acquire(ctx); !errors.Is(err, common.ErrLockHeld) {
		t.Fatalf("second Acquire = %v, want ErrLockHeld", err)
	}
	if err := second.Refresh(ctx); err == nil {
		t.Error("Refresh by a non-owner should fail")
	}
	if err := first.Refresh(ctx); err != nil {
		t.Errorf("Refresh: %v", err)
	}

	// A non-owner release must not free the lock.
	if err := second.Release(ctx); err != nil {
		t.Fatal(err)
	}
	if got, _ := rdb.Get(ctx, key).Result(); got != first.Token() {
		t.Fatalf("lock value = %q, want first token", got)
	}

	if err := first.Release(ctx); err != nil {
		t.Fatal(err)
	}
	if err := second.Acquire(ctx); err != nil {
		t.Errorf("Acquire after release: %v", err)
	}
}
