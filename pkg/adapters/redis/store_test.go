package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/easyyaml/pkg/adapters/redis"
	"github.com/aretw0/easyyaml/pkg/domain"
	"github.com/aretw0/easyyaml/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestRedisDraftStore_Contract(t *testing.T) {
	// Setup miniredis
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	defer mr.Close()

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})

	store := redis.NewFromClient(client)
	ports.RunDraftStoreContract(t, store)
}

func TestRedisDraftStore_TTL_Expiration(t *testing.T) {
	mr, err := miniredis.Run()
	assert.NoError(t, err)
	defer mr.Close()

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})

	// Create store with 1s TTL
	store := redis.NewFromClient(client, redis.WithTTL(1*time.Second))
	ctx := context.Background()
	id := "draft-ttl"

	// 1. Save
	err = store.Save(ctx, id, &domain.Draft{ID: id, Text: "a: 1\n"})
	assert.NoError(t, err)

	// 2. Verify List (immediately)
	ids, err := store.List(ctx)
	assert.NoError(t, err)
	assert.Contains(t, ids, id)

	// 3. Fast Forward time in miniredis (for Key Expiration)
	mr.FastForward(2 * time.Second)

	// 4. Verify Load (should fail)
	_, err = store.Load(ctx, id)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	// 5. The index is pruned against the wall clock, so wait past the TTL.
	time.Sleep(1200 * time.Millisecond)

	ids, err = store.List(ctx)
	assert.NoError(t, err)
	assert.Empty(t, ids)
}

func TestRedisDraftStore_Prefix(t *testing.T) {
	mr, err := miniredis.Run()
	assert.NoError(t, err)
	defer mr.Close()

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})

	store := redis.NewFromClient(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()
	id := "my-draft"

	err = store.Save(ctx, id, &domain.Draft{ID: id})
	assert.NoError(t, err)

	assert.True(t, mr.Exists("custom:app:my-draft"), "Expected key with custom prefix to exist")
	assert.True(t, mr.Exists("custom:app:index"), "Expected index with custom prefix to exist")

	list, err := store.List(ctx)
	assert.NoError(t, err)
	assert.Contains(t, list, id)
}
