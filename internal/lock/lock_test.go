package redlock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func newTestClient(t *testing.T) redis.UniversalClient {
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestLockAndUnlock(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	locker := NewLocker(client, "acct:0123456789", "holder-1")
	assert.NoError(t, locker.Lock(ctx, time.Minute))

	// A second holder must not get the same key.
	other := NewLocker(client, "acct:0123456789", "holder-2")
	assert.Error(t, other.Lock(ctx, time.Minute))

	// Nor may it unlock someone else's lock.
	assert.Error(t, other.Unlock(ctx))

	assert.NoError(t, locker.Unlock(ctx))
	assert.NoError(t, other.Lock(ctx, time.Minute))
}

func TestWaitLockTimesOut(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	held := NewLocker(client, "acct:busy", "holder-1")
	assert.NoError(t, held.Lock(ctx, time.Minute))

	waiter := NewLocker(client, "acct:busy", "holder-2")
	start := time.Now()
	err := waiter.WaitLock(ctx, time.Minute, 300*time.Millisecond)
	assert.Error(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 300*time.Millisecond)
}
