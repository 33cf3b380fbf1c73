//go:build integration

package lock

import (
	"context"
	"testing"
	"time"

	"octofit/tracker/internal/testsupport"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisLocker(t *testing.T) {
	ctx := context.Background()
	_, addr := testsupport.StartRedis(ctx, t)

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	locker := NewRedisLocker(client, 2*time.Second, 100*time.Millisecond)

	release, err := locker.Acquire(ctx, "rankings")
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, "rankings")
	assert.ErrorIs(t, err, ErrLockTimeout)

	require.NoError(t, release(ctx))

	again, err := locker.Acquire(ctx, "rankings")
	require.NoError(t, err)
	require.NoError(t, again(ctx))
}

func TestRedisLockerStaleReleaseKeepsNewHolder(t *testing.T) {
	ctx := context.Background()
	_, addr := testsupport.StartRedis(ctx, t)

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	locker := NewRedisLocker(client, 100*time.Millisecond, time.Second)

	stale, err := locker.Acquire(ctx, "rankings")
	require.NoError(t, err)
	time.Sleep(200 * time.Millisecond)

	current, err := locker.Acquire(ctx, "rankings")
	require.NoError(t, err)

	require.NoError(t, stale(ctx))
	exists, err := client.Exists(ctx, keyPrefix+"rankings").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), exists)

	require.NoError(t, current(ctx))
}
