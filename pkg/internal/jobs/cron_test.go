package jobs_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeisme/drivemini/pkg/configs"
	"github.com/yeisme/drivemini/pkg/internal/jobs"
	"github.com/yeisme/drivemini/pkg/internal/quota"
	"github.com/yeisme/drivemini/pkg/internal/types"
	"github.com/yeisme/drivemini/pkg/scheduler"
)

type fakeUsage struct {
	refreshes  atomic.Int32
	pruneDays  atomic.Int32
	refreshErr error
}

func (f *fakeUsage) Refresh(context.Context) (*types.UsageResponse, error) {
	f.refreshes.Add(1)

	if f.refreshErr != nil {
		return nil, f.refreshErr
	}

	return &types.UsageResponse{UsageSnapshot: quota.NewSnapshot(10, 100, time.Now())}, nil
}

func (f *fakeUsage) PruneHistory(_ context.Context, days int) (int64, error) {
	f.pruneDays.Store(int32(days))
	return 3, nil
}

func newScheduler(t *testing.T) *scheduler.Scheduler {
	t.Helper()

	s, err := scheduler.NewScheduler()
	require.NoError(t, err)

	s.Start()
	t.Cleanup(func() { _ = s.Shutdown() })

	return s
}

func quotaConfig() configs.QuotaConfig {
	return configs.QuotaConfig{
		RefreshCron:          configs.DefaultQuotaRefreshCron,
		HistoryPruneCron:     configs.DefaultQuotaHistoryPruneCron,
		HistoryRetentionDays: 30,
	}
}

func TestRegisterCronJobs(t *testing.T) {
	s := newScheduler(t)
	usage := &fakeUsage{}

	require.NoError(t, jobs.RegisterCronJobs(context.Background(), s, usage, quotaConfig()))

	infos := s.GetJobInfos()
	require.Len(t, infos, 2)
	assert.Equal(t, jobs.JobHistoryPrune, infos[0].Name)
	assert.Equal(t, jobs.JobUsageRefresh, infos[1].Name)

	require.NoError(t, s.RunNow(jobs.JobUsageRefresh))
	require.NoError(t, s.RunNow(jobs.JobHistoryPrune))

	require.Eventually(t, func() bool {
		return usage.refreshes.Load() == 1 && usage.pruneDays.Load() == 30
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRegisterCronJobs_SkipsDisabled(t *testing.T) {
	s := newScheduler(t)

	cfg := quotaConfig()
	cfg.RefreshCron = ""
	cfg.HistoryRetentionDays = 0

	require.NoError(t, jobs.RegisterCronJobs(context.Background(), s, &fakeUsage{}, cfg))
	assert.Empty(t, s.GetJobInfos())
}

func TestRegisterCronJobs_RefreshFailureIsRecorded(t *testing.T) {
	s := newScheduler(t)
	usage := &fakeUsage{refreshErr: errors.New("root listing failed")}

	require.NoError(t, jobs.RegisterCronJobs(context.Background(), s, usage, quotaConfig()))
	require.NoError(t, s.RunNow(jobs.JobUsageRefresh))

	require.Eventually(t, func() bool {
		info, err := s.GetJobInfoByName(jobs.JobUsageRefresh)
		return err == nil && info.Status == scheduler.StatusError
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRegisterCronJobs_Errors(t *testing.T) {
	require.Error(t, jobs.RegisterCronJobs(context.Background(), nil, &fakeUsage{}, quotaConfig()))

	s := newScheduler(t)
	require.Error(t, jobs.RegisterCronJobs(context.Background(), s, nil, quotaConfig()))

	cfg := quotaConfig()
	cfg.RefreshCron = "every minute please"
	require.Error(t, jobs.RegisterCronJobs(context.Background(), s, &fakeUsage{}, cfg))
}
