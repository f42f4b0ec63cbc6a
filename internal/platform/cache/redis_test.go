package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		_ = client.Close()
		mr.Close()
	})
	return client, mr
}

func TestRedisStore_RoundTripAndTTL(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()
	store := NewRedisStore(client, time.Hour, "kqsx:")

	require.NoError(t, store.Set(ctx, "draws:mb:2024-10-01", []byte(`[{"id":1}]`)))
	assert.True(t, mr.Exists("kqsx:draws:mb:2024-10-01"))

	got, ok, err := store.Get(ctx, "draws:mb:2024-10-01")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `[{"id":1}]`, string(got))

	mr.FastForward(2 * time.Hour)
	_, ok, err = store.Get(ctx, "draws:mb:2024-10-01")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_Delete(t *testing.T) {
	client, _ := setupTestRedis(t)
	ctx := context.Background()
	store := NewRedisStore(client, time.Hour, "")

	require.NoError(t, store.Set(ctx, "a", []byte("1")))
	require.NoError(t, store.Delete(ctx, "a", "missing"))

	_, ok, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)
}
