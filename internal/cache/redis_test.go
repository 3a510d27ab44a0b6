package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := NewRedisStore(RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestRedisStore_RoundTrip(t *testing.T) {
	store, _ := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "k1", goodResult("Alpha"), time.Hour))

	got, ok, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Alpha", got.Papers[0].Title)

	_, ok, err = store.Get(ctx, "absent")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_ExpiryDelegatedToServer(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "k1", goodResult("Alpha"), time.Minute))

	mr.FastForward(2 * time.Minute)
	_, ok, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisStore_KeysAreNamespaced(t *testing.T) {
	store, mr := newTestRedisStore(t)

	require.NoError(t, store.Put(context.Background(), "k1", goodResult("Alpha"), time.Hour))
	assert.True(t, mr.Exists(redisKeyPrefix+"k1"))
}

func TestRedisStore_CorruptPayloadIsMissAndDropped(t *testing.T) {
	store, mr := newTestRedisStore(t)
	require.NoError(t, mr.Set(redisKeyPrefix+"bad", "{not json"))

	_, ok, err := store.Get(context.Background(), "bad")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, mr.Exists(redisKeyPrefix+"bad"))
}

func TestRedisStore_Delete(t *testing.T) {
	store, mr := newTestRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "k1", goodResult("Alpha"), time.Hour))
	require.NoError(t, store.Delete(ctx, "k1"))
	assert.False(t, mr.Exists(redisKeyPrefix+"k1"))
}
