package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/yeisme/drivemini/pkg/internal/quota"
	"github.com/yeisme/drivemini/pkg/internal/quota/quotatest"
	"github.com/yeisme/drivemini/pkg/internal/service"
	"github.com/yeisme/drivemini/pkg/queue"
)

func newHistory(t *testing.T) *service.UsageHistory {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "usage.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	h := service.NewUsageHistory(db)
	require.NoError(t, h.Migrate(context.Background()))

	return h
}

type usageFixture struct {
	svc   *service.UsageService
	gw    *quotatest.FakeGateway
	pub   *recordingPublisher
	clock clockwork.FakeClock
}

func newUsage(t *testing.T, gw *quotatest.FakeGateway, history *service.UsageHistory) usageFixture {
	t.Helper()

	clock := clockwork.NewFakeClockAt(modTime)
	cache := quota.NewSnapshotCache(time.Minute, clock)
	est := quota.NewEstimator(gw,
		quota.WithTotalBytes(1000),
		quota.WithClock(clock),
		quota.WithCache(cache),
	)
	events, pub := newEmitter()

	return usageFixture{
		svc:   service.NewUsageService(est, cache, history, events),
		gw:    gw,
		pub:   pub,
		clock: clock,
	}
}

func TestUsage_CurrentIsCached(t *testing.T) {
	gw := quotatest.NewFakeGateway().AddObject("uploads/a.bin", 300)
	f := newUsage(t, gw, nil)
	ctx := context.Background()

	first, err := f.svc.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(300), first.UsedBytes)
	assert.Equal(t, quota.LevelLow, first.Recommendation.Level)
	assert.True(t, first.Fresh)

	gw.AddObject("uploads/b.bin", 600)

	second, err := f.svc.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(300), second.UsedBytes, "served from cache inside the TTL")
	assert.Equal(t, 1, gw.ListCalls())

	refreshed, err := f.svc.Refresh(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(900), refreshed.UsedBytes)
	assert.Equal(t, quota.LevelHigh, refreshed.Recommendation.Level)

	cached := f.svc.Cached()
	require.NotNil(t, cached)
	assert.Equal(t, int64(900), cached.UsedBytes, "refresh overwrites the cache")

	f.clock.Advance(time.Minute)
	assert.False(t, f.svc.Cached().Fresh)
}

func TestUsage_CachedBeforeFirstEstimate(t *testing.T) {
	f := newUsage(t, quotatest.NewFakeGateway(), nil)
	assert.Nil(t, f.svc.Cached())
}

func TestUsage_EventsAndStorageFull(t *testing.T) {
	gw := quotatest.NewFakeGateway().AddObject("uploads/huge.bin", 990)
	f := newUsage(t, gw, nil)

	snap, err := f.svc.Estimate(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 99.0, snap.PercentUsed, 1e-9)

	assert.Equal(t, 1, f.pub.count(queue.TopicUsageComputed))
	assert.Equal(t, 1, f.pub.count(queue.TopicStorageFull))
}

func TestUsage_NoStorageFullBelowThreshold(t *testing.T) {
	gw := quotatest.NewFakeGateway().AddObject("uploads/a.bin", 950)
	f := newUsage(t, gw, nil)

	_, err := f.svc.Estimate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, f.pub.count(queue.TopicUsageComputed))
	assert.Zero(t, f.pub.count(queue.TopicStorageFull), "exactly 95% does not alert")
}

func TestUsage_Validate(t *testing.T) {
	gw := quotatest.NewFakeGateway().AddObject("uploads/a.bin", 700)
	f := newUsage(t, gw, nil)
	ctx := context.Background()

	d := f.svc.Validate(ctx, []int64{100, 100})
	assert.True(t, d.Allowed)
	assert.Equal(t, quota.SignalAdvisory, d.Signal)

	d = f.svc.Validate(ctx, []int64{400})
	assert.False(t, d.Allowed)
	assert.Equal(t, int64(100), d.ShortfallBytes)
}

func TestUsage_ValidateWithoutSnapshotIsUnknown(t *testing.T) {
	gw := quotatest.NewFakeGateway().FailList("uploads/", errors.New("s3 down"))
	f := newUsage(t, gw, nil)

	d := f.svc.Validate(context.Background(), []int64{1 << 40})
	assert.True(t, d.Allowed)
	assert.Equal(t, quota.SignalUnknown, d.Signal)
}

func TestUsage_HistoryAndPrune(t *testing.T) {
	history := newHistory(t)
	gw := quotatest.NewFakeGateway().AddObject("uploads/a.bin", 100)
	f := newUsage(t, gw, history)
	ctx := context.Background()

	_, err := f.svc.Estimate(ctx)
	require.NoError(t, err)

	f.clock.Advance(time.Hour)
	gw.AddObject("uploads/b.bin", 50)

	_, err = f.svc.Estimate(ctx)
	require.NoError(t, err)

	resp, err := f.svc.History(ctx, 10)
	require.NoError(t, err)
	require.Len(t, resp.Items, 2)
	assert.Equal(t, int64(150), resp.Items[0].UsedBytes, "newest first")
	assert.Equal(t, int64(100), resp.Items[1].UsedBytes)

	one, err := f.svc.History(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, one.Items, 1)

	n, err := f.svc.PruneHistory(ctx, 0)
	require.NoError(t, err)
	assert.Zero(t, n)

	// 记录时间远早于当前真实时间
	n, err = f.svc.PruneHistory(ctx, 30)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestUsage_HistoryDisabled(t *testing.T) {
	f := newUsage(t, quotatest.NewFakeGateway(), nil)

	resp, err := f.svc.History(context.Background(), 0)
	require.NoError(t, err)
	assert.NotNil(t, resp.Items)
	assert.Empty(t, resp.Items)
}
