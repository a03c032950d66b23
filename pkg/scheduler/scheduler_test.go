package scheduler_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/drivemini/pkg/scheduler"
)

func newScheduler(t *testing.T) *scheduler.Scheduler {
	t.Helper()

	s, err := scheduler.NewScheduler()
	require.NoError(t, err)

	s.Start()
	t.Cleanup(func() { _ = s.Shutdown() })

	return s
}

func TestAddCron_Duplicate(t *testing.T) {
	s := newScheduler(t)
	ctx := context.Background()
	noop := func(context.Context) error { return nil }

	require.NoError(t, s.AddCron(ctx, "usage-refresh", "0 0 * * *", noop))
	require.Error(t, s.AddCron(ctx, "usage-refresh", "0 0 * * *", noop))

	infos := s.GetJobInfos()
	require.Len(t, infos, 1)
	assert.Equal(t, "usage-refresh", infos[0].Name)
	assert.Equal(t, scheduler.StatusScheduled, infos[0].Status)
}

func TestAddCron_InvalidExpr(t *testing.T) {
	s := newScheduler(t)
	err := s.AddCron(context.Background(), "bad", "not a cron", func(context.Context) error { return nil })
	require.Error(t, err)
}

func TestRunNow_RecordsOutcome(t *testing.T) {
	s := newScheduler(t)
	ctx := context.Background()

	var calls atomic.Int32

	require.NoError(t, s.AddCron(ctx, "ok", "0 0 1 1 *", func(context.Context) error {
		calls.Add(1)
		return nil
	}))
	require.NoError(t, s.AddCron(ctx, "fails", "0 0 1 1 *", func(context.Context) error {
		return errors.New("boom")
	}))

	require.NoError(t, s.RunNow("ok"))
	require.NoError(t, s.RunNow("fails"))

	require.Eventually(t, func() bool {
		info, err := s.GetJobInfoByName("ok")
		return err == nil && info.Runs == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		info, err := s.GetJobInfoByName("fails")
		return err == nil && info.Status == scheduler.StatusError && info.Error == "boom"
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, int32(1), calls.Load())

	require.Error(t, s.RunNow("missing"))
}

func TestRemoveJobByName(t *testing.T) {
	s := newScheduler(t)
	require.NoError(t, s.AddCron(context.Background(), "prune", "30 3 * * *", func(context.Context) error { return nil }))

	require.NoError(t, s.RemoveJobByName("prune"))
	require.Error(t, s.RemoveJobByName("prune"))
	assert.Empty(t, s.GetJobInfos())
}

func TestJobNotFound(t *testing.T) {
	s := newScheduler(t)

	_, err := s.GetJobInfoByName("nope")
	require.ErrorIs(t, err, scheduler.ErrJobNotFound)
	require.ErrorIs(t, s.RunNow("nope"), scheduler.ErrJobNotFound)
}

func TestRunNow_RecoversPanic(t *testing.T) {
	s := newScheduler(t)
	require.NoError(t, s.AddCron(context.Background(), "explode", "0 0 1 1 *", func(context.Context) error {
		panic("kaboom")
	}))

	require.NoError(t, s.RunNow("explode"))

	require.Eventually(t, func() bool {
		info, err := s.GetJobInfoByName("explode")
		return err == nil && info.Status == scheduler.StatusError && info.Runs == 1
	}, 2*time.Second, 10*time.Millisecond)

	info, err := s.GetJobInfoByName("explode")
	require.NoError(t, err)
	assert.Contains(t, info.Error, "kaboom")
}
