// Package jobs 负责注册与实现业务定时任务（基于 scheduler）.
package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/yeisme/drivemini/pkg/configs"
	"github.com/yeisme/drivemini/pkg/internal/types"
	"github.com/yeisme/drivemini/pkg/log"
	"github.com/yeisme/drivemini/pkg/scheduler"
)

// UsageJobs 定时任务依赖的用量操作，*service.UsageService 实现了它.
type UsageJobs interface {
	Refresh(ctx context.Context) (*types.UsageResponse, error)
	PruneHistory(ctx context.Context, retentionDays int) (int64, error)
}

// RegisterCronJobs 配置业务定时任务，cron 表达式为空的任务不注册：
//   - quota.refresh_cron 预热用量快照缓存
//   - quota.history_prune_cron 清理超过保留天数的用量历史
func RegisterCronJobs(ctx context.Context, sched *scheduler.Scheduler, usage UsageJobs, cfg configs.QuotaConfig) error {
	if sched == nil {
		return errors.New("scheduler is nil")
	}

	if usage == nil {
		return errors.New("usage service is nil")
	}

	if cfg.RefreshCron != "" {
		if err := sched.AddCron(ctx, JobUsageRefresh, cfg.RefreshCron, func(ctx context.Context) error {
			return runUsageRefresh(ctx, usage)
		}); err != nil {
			return fmt.Errorf("register %s: %w", JobUsageRefresh, err)
		}
	}

	if cfg.HistoryPruneCron != "" && cfg.HistoryRetentionDays > 0 {
		if err := sched.AddCron(ctx, JobHistoryPrune, cfg.HistoryPruneCron, func(ctx context.Context) error {
			return runHistoryPrune(ctx, usage, cfg.HistoryRetentionDays)
		}); err != nil {
			return fmt.Errorf("register %s: %w", JobHistoryPrune, err)
		}
	}

	return nil
}

// runUsageRefresh 重新估算用量并写入缓存.
func runUsageRefresh(ctx context.Context, usage UsageJobs) error {
	l := log.Component("jobs").With().Str("job", JobUsageRefresh).Logger()

	resp, err := usage.Refresh(ctx)
	if err != nil {
		l.Error().Err(err).Msg("usage refresh failed")
		return err
	}

	l.Info().
		Int64("used_bytes", resp.UsedBytes).
		Float64("percent", resp.PercentUsed).
		Int("skipped", resp.Stats.Skipped).
		Msg("usage refreshed")

	return nil
}

// runHistoryPrune 删除超过保留天数的用量历史.
func runHistoryPrune(ctx context.Context, usage UsageJobs, days int) error {
	l := log.Component("jobs").With().Str("job", JobHistoryPrune).Logger()

	n, err := usage.PruneHistory(ctx, days)
	if err != nil {
		l.Error().Err(err).Msg("prune usage history failed")
		return err
	}

	if n > 0 {
		l.Info().Int64("deleted", n).Int("retention_days", days).Msg("pruned usage history")
	}

	return nil
}
