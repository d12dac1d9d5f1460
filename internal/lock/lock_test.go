package redlock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) redis.UniversalClient {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestLockAndUnlock(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()

	locker := NewLocker(client, "seller:sel_1:payout", "holder-a")
	assert.NoError(t, locker.Lock(ctx, time.Minute))

	// Second holder cannot take the same key.
	other := NewLocker(client, "seller:sel_1:payout", "holder-b")
	assert.Error(t, other.Lock(ctx, time.Minute))

	// Non-holder cannot unlock.
	assert.Error(t, other.Unlock(ctx))
	assert.NoError(t, locker.Unlock(ctx))

	// Key is free again.
	assert.NoError(t, other.Lock(ctx, time.Minute))
}

func TestWaitLockAcquiresAfterRelease(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()

	first := NewLocker(client, "seller:sel_2:payout", "holder-a")
	require.NoError(t, first.Lock(ctx, time.Minute))

	done := make(chan error, 1)
	go func() {
		second := NewLocker(client, "seller:sel_2:payout", "holder-b")
		done <- second.WaitLock(ctx, time.Minute, 2*time.Second)
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, first.Unlock(ctx))

	assert.NoError(t, <-done)
}

func TestWaitLockTimesOut(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()

	first := NewLocker(client, "seller:sel_3:payout", "holder-a")
	require.NoError(t, first.Lock(ctx, time.Minute))

	second := NewLocker(client, "seller:sel_3:payout", "holder-b")
	err := second.WaitLock(ctx, time.Minute, 200*time.Millisecond)
	assert.Error(t, err)
}

func TestExtendLock(t *testing.T) {
	client := newTestRedis(t)
	ctx := context.Background()

	locker := NewLocker(client, "seller:sel_4:payout", "holder-a")
	assert.NoError(t, locker.Lock(ctx, time.Second))
	assert.NoError(t, locker.ExtendLock(ctx, time.Minute))

	other := NewLocker(client, "seller:sel_4:payout", "holder-b")
	assert.Error(t, other.ExtendLock(ctx, time.Minute))
}
