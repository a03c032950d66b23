package quota_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/drivemini/pkg/internal/quota"
	"github.com/yeisme/drivemini/pkg/internal/quota/quotatest"
)

func newEstimator(gw quota.Gateway, opts ...quota.Option) *quota.Estimator {
	base := []quota.Option{quota.WithTotalBytes(1000), quota.WithClock(clockwork.NewFakeClock())}
	return quota.NewEstimator(gw, append(base, opts...)...)
}

func TestEstimate_SumsVisibleObjects(t *testing.T) {
	gw := quotatest.NewFakeGateway().
		AddObject("uploads/a.txt", 10).
		AddObject("uploads/b.txt", 20).
		AddObject("uploads/docs/c.md", 30).
		AddObject("uploads/docs/old/d.md", 40)

	snap, err := newEstimator(gw).Estimate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(100), snap.UsedBytes)
	assert.Equal(t, int64(900), snap.RemainingBytes)
	assert.InDelta(t, 10.0, snap.PercentUsed, 1e-9)
	assert.Equal(t, 4, snap.Stats.Objects)
	assert.Equal(t, 3, snap.Stats.Folders)
	assert.Zero(t, snap.Stats.Skipped)
}

func TestEstimate_DepthBound(t *testing.T) {
	gw := quotatest.NewFakeGateway().
		AddObject("uploads/r.bin", 1).
		AddObject("uploads/a/x.bin", 10).
		AddObject("uploads/a/b/y.bin", 100).
		AddObject("uploads/a/b/c/z.bin", 1000)

	snap, err := newEstimator(gw, quota.WithTotalBytes(10_000)).Estimate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(111), snap.UsedBytes, "objects below depth 2 are not visited")
	assert.Equal(t, 3, gw.ListCalls())
}

func TestEstimate_ObjectCapKeepsListingOrder(t *testing.T) {
	gw := quotatest.NewFakeGateway()

	var want int64

	for i := range 150 {
		size := int64(i + 1)
		gw.AddObject(fmt.Sprintf("uploads/f%03d", i), size)

		if i < quota.DefaultMaxObjects {
			want += size
		}
	}

	snap, err := newEstimator(gw, quota.WithTotalBytes(1<<20)).Estimate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, want, snap.UsedBytes)
	assert.Equal(t, quota.DefaultMaxObjects, gw.MetaCalls(), "truncation happens before any metadata fetch")
	assert.Equal(t, 50, snap.Stats.TruncatedObjects)
}

func TestEstimate_FolderCap(t *testing.T) {
	gw := quotatest.NewFakeGateway()
	for i := range 25 {
		gw.AddObject(fmt.Sprintf("uploads/d%02d/obj", i), 1)
	}

	snap, err := newEstimator(gw).Estimate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(quota.DefaultMaxFolders), snap.UsedBytes)
	assert.Equal(t, 5, snap.Stats.TruncatedFolders)
	assert.Equal(t, 1+quota.DefaultMaxFolders, gw.ListCalls())
}

func TestEstimate_CustomLimits(t *testing.T) {
	gw := quotatest.NewFakeGateway().
		AddObject("uploads/a", 1).
		AddObject("uploads/b", 2).
		AddObject("uploads/sub/c", 4)

	snap, err := newEstimator(gw, quota.WithLimits(quota.Limits{
		MaxDepth:            0,
		MaxObjectsPerFolder: 1,
		MaxFoldersPerFolder: 1,
	})).Estimate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(1), snap.UsedBytes)
	assert.Equal(t, 1, gw.ListCalls())
}

func TestEstimate_MetadataFailureIsSkipped(t *testing.T) {
	gw := quotatest.NewFakeGateway().
		AddObject("uploads/ok.txt", 10).
		AddObject("uploads/broken.txt", 500).
		FailMeta("uploads/broken.txt", errors.New("timeout"))

	snap, err := newEstimator(gw).Estimate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(10), snap.UsedBytes)
	require.Equal(t, 1, snap.Stats.Skipped)
	assert.Equal(t, quota.ReasonMetadata, snap.Stats.Skips[0].Reason)
	assert.Equal(t, "uploads/broken.txt", snap.Stats.Skips[0].Path)
	assert.Equal(t, quota.OutcomeSkipped, snap.Stats.Skips[0].Kind)
}

func TestEstimate_SubfolderListingFailureIsSkipped(t *testing.T) {
	gw := quotatest.NewFakeGateway().
		AddObject("uploads/top.txt", 5).
		AddObject("uploads/private/secret.txt", 300).
		AddObject("uploads/public/readme.txt", 7).
		FailList("uploads/private/", errors.New("access denied"))

	snap, err := newEstimator(gw).Estimate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(12), snap.UsedBytes)
	require.Equal(t, 1, snap.Stats.Skipped)
	assert.Equal(t, quota.ReasonListing, snap.Stats.Skips[0].Reason)
}

func TestEstimate_NotFoundListingIsEmpty(t *testing.T) {
	gw := quotatest.NewFakeGateway().
		AddObject("uploads/top.txt", 5).
		AddFolder("uploads/gone/").
		FailList("uploads/gone/", quota.ErrNotFound)

	snap, err := newEstimator(gw).Estimate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(5), snap.UsedBytes)
	assert.Zero(t, snap.Stats.Skipped)
}

func TestEstimate_RootListingFailure(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cache := quota.NewSnapshotCache(time.Minute, clock)
	gw := quotatest.NewFakeGateway().
		AddObject("uploads/a", 1).
		FailList("uploads/", errors.New("connection refused"))

	_, err := newEstimator(gw, quota.WithCache(cache)).Estimate(context.Background())
	require.ErrorIs(t, err, quota.ErrRootListing)

	snap, _ := cache.Peek()
	assert.Nil(t, snap, "cache must stay untouched")
}

func TestEstimate_EmptyRoot(t *testing.T) {
	snap, err := newEstimator(quotatest.NewFakeGateway()).Estimate(context.Background())
	require.NoError(t, err)

	assert.Zero(t, snap.UsedBytes)
	assert.Equal(t, int64(1000), snap.RemainingBytes)
}

func TestEstimate_CancelledContext(t *testing.T) {
	gw := quotatest.NewFakeGateway().AddObject("uploads/a", 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newEstimator(gw).Estimate(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestEstimate_CancelDuringWalk(t *testing.T) {
	gate := make(chan struct{})
	defer close(gate)

	gw := quotatest.NewFakeGateway().AddObject("uploads/a", 1).Block(gate)

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	_, err := newEstimator(gw).Estimate(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestEstimate_WritesAttachedCache(t *testing.T) {
	clock := clockwork.NewFakeClock()
	cache := quota.NewSnapshotCache(time.Minute, clock)
	gw := quotatest.NewFakeGateway().AddObject("uploads/a", 42)

	_, err := newEstimator(gw, quota.WithCache(cache)).Estimate(context.Background())
	require.NoError(t, err)

	snap, fresh := cache.Peek()
	require.NotNil(t, snap)
	assert.True(t, fresh)
	assert.Equal(t, int64(42), snap.UsedBytes)
}

// peakGateway 记录 GetMetadata 的最大并发数.
type peakGateway struct {
	quota.Gateway
	inflight atomic.Int64
	peak     atomic.Int64
}

func (p *peakGateway) GetMetadata(ctx context.Context, path string) (quota.ObjectMeta, error) {
	n := p.inflight.Add(1)
	defer p.inflight.Add(-1)

	for {
		old := p.peak.Load()
		if n <= old || p.peak.CompareAndSwap(old, n) {
			break
		}
	}

	time.Sleep(time.Millisecond)

	return p.Gateway.GetMetadata(ctx, path)
}

func TestEstimate_ConcurrencyBound(t *testing.T) {
	fake := quotatest.NewFakeGateway()
	for i := range 40 {
		fake.AddObject(fmt.Sprintf("uploads/f%02d", i), 1)
	}

	gw := &peakGateway{Gateway: fake}

	snap, err := newEstimator(gw, quota.WithConcurrency(4)).Estimate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(40), snap.UsedBytes)
	assert.LessOrEqual(t, gw.peak.Load(), int64(4))
}

func TestNewSnapshot_Clamps(t *testing.T) {
	snap := quota.NewSnapshot(2000, 1000, time.Time{})

	assert.InDelta(t, 100.0, snap.PercentUsed, 1e-9)
	assert.Zero(t, snap.RemainingBytes)
	assert.Equal(t, int64(2000), snap.UsedBytes)
}

func BenchmarkEstimate(b *testing.B) {
	gw := quotatest.NewFakeGateway()
	for i := range 20 {
		for j := range 20 {
			gw.AddObject(fmt.Sprintf("uploads/d%02d/f%02d", i, j), 1)
		}
	}

	est := quota.NewEstimator(gw)

	for b.Loop() {
		if _, err := est.Estimate(context.Background()); err != nil {
			b.Fatal(err)
		}
	}
}
