package cache_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/drivemini/pkg/cache"
	"github.com/yeisme/drivemini/pkg/internal/storage/kv"
)

type entry struct {
	Name string `json:"name"`
	Size int64  `json:"size"`
}

func TestCache_SetGet(t *testing.T) {
	ctx := context.Background()
	c := cache.NewCache(kv.NewMemoryKV(nil), cache.WithPrefix("rc/"))

	require.NoError(t, cache.Set(ctx, c, "a", entry{Name: "a.txt", Size: 3}, time.Minute))

	got, err := cache.Get[entry](ctx, c, "a")
	require.NoError(t, err)
	assert.Equal(t, entry{Name: "a.txt", Size: 3}, got)

	_, err = cache.Get[entry](ctx, c, "missing")
	require.ErrorIs(t, err, kv.ErrKeyNotFound)
}

func TestCache_PrefixIsApplied(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryKV(nil)
	c := cache.NewCache(store, cache.WithPrefix("rc/"))

	require.NoError(t, cache.Set(ctx, c, "k", 1, 0))

	ok, err := store.Exists(ctx, "rc/k")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCache_TTL(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClock()
	c := cache.NewCache(kv.NewMemoryKV(clock))

	require.NoError(t, cache.Set(ctx, c, "k", "v", time.Second))
	clock.Advance(2 * time.Second)

	ok, err := c.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetOrSet(t *testing.T) {
	ctx := context.Background()
	c := cache.NewCache(kv.NewMemoryKV(nil))
	calls := 0

	getter := func() (entry, error) {
		calls++
		return entry{Name: "computed"}, nil
	}

	for range 3 {
		v, err := cache.GetOrSet(ctx, c, "k", getter, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, "computed", v.Name)
	}

	assert.Equal(t, 1, calls)
}

func TestGetOrSet_GetterError(t *testing.T) {
	ctx := context.Background()
	c := cache.NewCache(kv.NewMemoryKV(nil))
	boom := errors.New("boom")

	_, err := cache.GetOrSet(ctx, c, "k", func() (int, error) { return 0, boom }, time.Minute)
	require.ErrorIs(t, err, boom)

	ok, err := c.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_ClearOnlyOwnPrefix(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryKV(nil)
	rc := cache.NewCache(store, cache.WithPrefix("rc/"))

	for i := range 5 {
		require.NoError(t, cache.Set(ctx, rc, fmt.Sprintf("%d", i), i, 0))
	}

	require.NoError(t, store.Set(ctx, "search/history", []byte("[]"), 0))

	n, err := rc.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	ok, err := store.Exists(ctx, "search/history")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCache_Delete(t *testing.T) {
	ctx := context.Background()
	c := cache.NewCache(kv.NewMemoryKV(nil))

	require.NoError(t, cache.Set(ctx, c, "k", "v", 0))
	require.NoError(t, c.Delete(ctx, "k"))

	_, err := cache.Get[string](ctx, c, "k")
	require.ErrorIs(t, err, kv.ErrKeyNotFound)
}

func BenchmarkCache_Get(b *testing.B) {
	ctx := context.Background()
	c := cache.NewCache(kv.NewMemoryKV(nil))
	_ = cache.Set(ctx, c, "k", entry{Name: "bench", Size: 42}, 0)

	for b.Loop() {
		if _, err := cache.Get[entry](ctx, c, "k"); err != nil {
			b.Fatal(err)
		}
	}
}
