package quota_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/drivemini/pkg/internal/quota"
	"github.com/yeisme/drivemini/pkg/internal/quota/quotatest"
)

type computerFunc func(ctx context.Context) (quota.UsageSnapshot, error)

func (f computerFunc) Estimate(ctx context.Context) (quota.UsageSnapshot, error) { return f(ctx) }

func counting(calls *atomic.Int32, used int64) computerFunc {
	return func(context.Context) (quota.UsageSnapshot, error) {
		calls.Add(1)
		return quota.NewSnapshot(used, 1000, time.Time{}), nil
	}
}

func TestSnapshotCache_FreshHit(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cache := quota.NewSnapshotCache(time.Minute, clock)

	var calls atomic.Int32

	first, err := cache.GetOrCompute(context.Background(), counting(&calls, 100))
	require.NoError(t, err)

	clock.Advance(time.Minute - time.Second)

	second, err := cache.GetOrCompute(context.Background(), counting(&calls, 999))
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, first, second)
}

func TestSnapshotCache_ExpiresAtTTL(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cache := quota.NewSnapshotCache(time.Minute, clock)

	var calls atomic.Int32

	_, err := cache.GetOrCompute(context.Background(), counting(&calls, 100))
	require.NoError(t, err)

	clock.Advance(time.Minute)

	snap, err := cache.GetOrCompute(context.Background(), counting(&calls, 200))
	require.NoError(t, err)

	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, int64(200), snap.UsedBytes)
}

func TestSnapshotCache_FailureKeepsPreviousEntry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cache := quota.NewSnapshotCache(time.Minute, clock)

	var calls atomic.Int32

	_, err := cache.GetOrCompute(context.Background(), counting(&calls, 100))
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)

	boom := errors.New("store offline")
	_, err = cache.GetOrCompute(context.Background(), computerFunc(func(context.Context) (quota.UsageSnapshot, error) {
		return quota.UsageSnapshot{}, boom
	}))
	require.ErrorIs(t, err, boom)

	snap, fresh := cache.Peek()
	require.NotNil(t, snap)
	assert.False(t, fresh)
	assert.Equal(t, int64(100), snap.UsedBytes)
}

func TestSnapshotCache_FailedRefreshStillServesFreshEntry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cache := quota.NewSnapshotCache(time.Minute, clock)

	gw := quotatest.NewFakeGateway().AddObject("uploads/a", 64)
	est := quota.NewEstimator(gw, quota.WithCache(cache), quota.WithClock(clock), quota.WithTotalBytes(1000))

	_, err := est.Estimate(context.Background())
	require.NoError(t, err)

	gw.FailList("uploads/", errors.New("gone"))

	_, err = est.Estimate(context.Background())
	require.ErrorIs(t, err, quota.ErrRootListing)

	snap, err := cache.GetOrCompute(context.Background(), est)
	require.NoError(t, err)
	assert.Equal(t, int64(64), snap.UsedBytes)
}

func TestSnapshotCache_ConcurrentCallersShareOneWalk(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cache := quota.NewSnapshotCache(time.Minute, clock)

	var calls atomic.Int32

	gate := make(chan struct{})
	entered := make(chan struct{}, 1)

	slow := computerFunc(func(context.Context) (quota.UsageSnapshot, error) {
		if calls.Add(1) == 1 {
			entered <- struct{}{}
		}

		<-gate

		return quota.NewSnapshot(300, 1000, time.Time{}), nil
	})

	const callers = 8

	var wg sync.WaitGroup

	results := make([]quota.UsageSnapshot, callers)
	errs := make([]error, callers)

	for i := range callers {
		wg.Add(1)

		go func() {
			defer wg.Done()
			results[i], errs[i] = cache.GetOrCompute(context.Background(), slow)
		}()
	}

	<-entered
	time.Sleep(20 * time.Millisecond)
	close(gate)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())

	for i := range callers {
		require.NoError(t, errs[i])
		assert.Equal(t, int64(300), results[i].UsedBytes)
	}
}

func TestSnapshotCache_CancelledCallerDoesNotAbortSharedWalk(t *testing.T) {
	cache := quota.NewSnapshotCache(time.Minute, clockwork.NewFakeClock())

	gate := make(chan struct{})
	entered := make(chan struct{})

	slow := computerFunc(func(ctx context.Context) (quota.UsageSnapshot, error) {
		close(entered)

		select {
		case <-gate:
		case <-ctx.Done():
			return quota.UsageSnapshot{}, ctx.Err()
		}

		return quota.NewSnapshot(300, 1000, time.Time{}), nil
	})

	ctx, cancel := context.WithCancel(context.Background())

	firstErr := make(chan error, 1)

	go func() {
		_, err := cache.GetOrCompute(ctx, slow)
		firstErr <- err
	}()

	<-entered

	type result struct {
		snap quota.UsageSnapshot
		err  error
	}

	second := make(chan result, 1)

	go func() {
		snap, err := cache.GetOrCompute(context.Background(), slow)
		second <- result{snap, err}
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	require.ErrorIs(t, <-firstErr, context.Canceled)

	close(gate)

	got := <-second
	require.NoError(t, got.err)
	assert.Equal(t, int64(300), got.snap.UsedBytes)

	snap, fresh := cache.Peek()
	require.NotNil(t, snap)
	assert.True(t, fresh)
}

func TestSnapshotCache_PeekEmpty(t *testing.T) {
	cache := quota.NewSnapshotCache(0, nil)

	snap, fresh := cache.Peek()
	assert.Nil(t, snap)
	assert.False(t, fresh)
	assert.Equal(t, quota.DefaultCacheTTL, cache.TTL())
}
