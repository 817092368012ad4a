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

type payload struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

func newRedisStore(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedis(client, "geotrack:"), mr
}

func TestStores_RoundTripAndDelete(t *testing.T) {
	redisStore, _ := newRedisStore(t)
	stores := map[string]Store{
		"memory": NewMemory(time.Minute),
		"redis":  redisStore,
	}

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			var got payload
			assert.ErrorIs(t, store.Get(ctx, "missing", &got), ErrMiss)

			require.NoError(t, store.Set(ctx, "key", payload{Name: "склад", Value: 1.5}, time.Minute))
			require.NoError(t, store.Get(ctx, "key", &got))
			assert.Equal(t, payload{Name: "склад", Value: 1.5}, got)

			require.NoError(t, store.Delete(ctx, "key"))
			assert.ErrorIs(t, store.Get(ctx, "key", &got), ErrMiss)
			assert.NoError(t, store.Delete(ctx, "key"))
		})
	}
}

func TestMemory_Expires(t *testing.T) {
	store := NewMemory(time.Minute)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "key", 1, 20*time.Millisecond))
	time.Sleep(50 * time.Millisecond)

	var got int
	assert.ErrorIs(t, store.Get(ctx, "key", &got), ErrMiss)
}

func TestRedis_ExpiresAndUsesPrefix(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "key", 1, time.Minute))
	assert.True(t, mr.Exists("geotrack:key"))

	mr.FastForward(2 * time.Minute)

	var got int
	assert.ErrorIs(t, store.Get(ctx, "key", &got), ErrMiss)
}

func TestRedis_UnavailableIsNotMiss(t *testing.T) {
	store, mr := newRedisStore(t)
	mr.Close()

	var got int
	err := store.Get(context.Background(), "key", &got)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrMiss)
}
