package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/easyyaml/pkg/adapters/redis"
	"github.com/aretw0/easyyaml/pkg/session"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisLocker_LockUnlock(t *testing.T) {
	mr, err := miniredis.Run()
	assert.NoError(t, err)
	defer mr.Close()

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	locker := redis.NewLocker(client, "test:lock:")
	ctx := context.Background()
	key := "resource1"

	// 1. Acquire Lock
	unlock, err := locker.Lock(ctx, key, 5*time.Second)
	assert.NoError(t, err)
	assert.NotNil(t, unlock)

	assert.True(t, mr.Exists("test:lock:lock:resource1"), "Lock key should be set in Redis")

	// 2. Release Lock
	err = unlock(ctx)
	assert.NoError(t, err)

	assert.False(t, mr.Exists("test:lock:lock:resource1"), "Lock key should be removed after unlock")
}

func TestRedisLocker_Contention(t *testing.T) {
	mr, err := miniredis.Run()
	assert.NoError(t, err)
	defer mr.Close()

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	locker1 := redis.NewLocker(client, "test:lock:")
	locker2 := redis.NewLocker(client, "test:lock:") // Same prefix -> contention
	ctx := context.Background()
	key := "shared-resource"

	// 1. Client 1 acquires lock
	unlock1, err := locker1.Lock(ctx, key, 5*time.Second)
	assert.NoError(t, err)
	assert.NotNil(t, unlock1)

	// 2. Client 2 polls until its context times out
	ctxTimeout, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = locker2.Lock(ctxTimeout, key, 5*time.Second)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.WithinDuration(t, start.Add(500*time.Millisecond), time.Now(), 150*time.Millisecond, "Should block until timeout")

	// 3. Client 1 unlocks
	err = unlock1(ctx)
	assert.NoError(t, err)

	// 4. Client 2 tries again (should succeed)
	unlock2, err := locker2.Lock(ctx, key, 5*time.Second)
	assert.NoError(t, err)
	defer unlock2(ctx)

	assert.True(t, mr.Exists("test:lock:lock:shared-resource"))
}

func TestRedisLocker_StaleUnlockKeepsNewOwner(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	unlock1, err := locker.Lock(ctx, "doc", time.Second)
	require.NoError(t, err)

	// The first lock expires and another replica takes over.
	mr.FastForward(2 * time.Second)
	_, err = locker.Lock(ctx, "doc", 5*time.Second)
	require.NoError(t, err)

	require.NoError(t, unlock1(ctx))
	assert.True(t, mr.Exists("test:lock:doc"), "a stale unlock must not release the new owner's lock")
}

func TestRedis_WithSessionManager(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	store := redis.NewFromClient(client)
	m := session.NewManager(
		session.WithDraftStore(store),
		session.WithLocker(redis.NewLocker(client, redis.DefaultPrefix), time.Second),
	)
	ctx := context.Background()

	s, err := m.Open(ctx, "doc", "doc.yaml", "a: 1\n")
	require.NoError(t, err)
	require.NoError(t, s.SetText("a: 2\n"))
	require.NoError(t, m.Persist(ctx, "doc"))
	assert.False(t, mr.Exists(redis.DefaultPrefix+"lock:doc"), "lock released after persist")

	d, err := store.Load(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, "a: 2\n", d.Text)
	assert.True(t, d.Dirty)
}
