package service

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/yeisme/drivemini/pkg/internal/quota"
	"github.com/yeisme/drivemini/pkg/internal/types"
	"github.com/yeisme/drivemini/pkg/log"
	"github.com/yeisme/drivemini/pkg/queue"
)

// storageFullPercent 超过该使用率时发布 drive.storage.full.
const storageFullPercent = 95.0

// UsageService 组合估算器、快照缓存、历史与事件.
// est 应通过 quota.WithCache 绑定到同一个 cache，Refresh 才会覆盖缓存.
type UsageService struct {
	est     *quota.Estimator
	cache   *quota.SnapshotCache
	history *UsageHistory
	events  *queue.Emitter
	clock   clockwork.Clock
	logger  zerolog.Logger
}

// NewUsageService 创建用量服务，history 与 events 可为 nil.
func NewUsageService(est *quota.Estimator, cache *quota.SnapshotCache, history *UsageHistory, events *queue.Emitter) *UsageService {
	return &UsageService{
		est:     est,
		cache:   cache,
		history: history,
		events:  events,
		clock:   clockwork.NewRealClock(),
		logger:  log.Component("usage"),
	}
}

// Estimate 执行一次完整估算，成功后写历史并发布事件；实现 quota.Computer.
func (s *UsageService) Estimate(ctx context.Context) (quota.UsageSnapshot, error) {
	snap, err := s.est.Estimate(ctx)
	if err != nil {
		return quota.UsageSnapshot{}, err
	}

	if err := s.history.Record(ctx, snap); err != nil {
		s.logger.Warn().Err(err).Msg("record usage history failed")
	}

	if err := s.events.UsageComputed(ctx, queue.UsageComputedPayload{
		UsedBytes:      snap.UsedBytes,
		TotalBytes:     snap.TotalBytes,
		RemainingBytes: snap.RemainingBytes,
		PercentUsed:    snap.PercentUsed,
		ObjectsCounted: snap.Stats.Objects,
		Skipped:        snap.Stats.Skipped,
		ComputedAt:     snap.ComputedAt,
	}); err != nil {
		s.logger.Warn().Err(err).Msg("publish usage computed failed")
	}

	if snap.PercentUsed > storageFullPercent {
		if err := s.events.StorageFull(ctx, queue.StorageFullPayload{
			PercentUsed:    snap.PercentUsed,
			RemainingBytes: snap.RemainingBytes,
			Level:          string(quota.Recommend(snap.PercentUsed).Level),
		}); err != nil {
			s.logger.Warn().Err(err).Msg("publish storage full failed")
		}
	}

	s.logger.Debug().
		Int64("used_bytes", snap.UsedBytes).
		Float64("percent", snap.PercentUsed).
		Int("objects", snap.Stats.Objects).
		Int("skipped", snap.Stats.Skipped).
		Msg("usage computed")

	return snap, nil
}

// Current 返回缓存中的快照，过期时重新估算.
func (s *UsageService) Current(ctx context.Context) (*types.UsageResponse, error) {
	snap, err := s.cache.GetOrCompute(ctx, s)
	if err != nil {
		return nil, err
	}

	return report(snap, true), nil
}

// Refresh 跳过缓存重新估算.
func (s *UsageService) Refresh(ctx context.Context) (*types.UsageResponse, error) {
	snap, err := s.Estimate(ctx)
	if err != nil {
		return nil, err
	}

	return report(snap, true), nil
}

// Cached 返回缓存中的快照，不触发估算；从未计算过时返回 nil.
func (s *UsageService) Cached() *types.UsageResponse {
	snap, fresh := s.cache.Peek()
	if snap == nil {
		return nil
	}

	return report(*snap, fresh)
}

// Validate 以当前快照检查一批文件，快照不可用时按未知处理.
func (s *UsageService) Validate(ctx context.Context, sizes []int64) quota.Decision {
	var snap *quota.UsageSnapshot

	if cur, err := s.cache.GetOrCompute(ctx, s); err != nil {
		s.logger.Warn().Err(err).Msg("usage unavailable for capacity check")
	} else {
		snap = &cur
	}

	return quota.ValidateUpload(sizes, snap)
}

// History 返回持久化的快照.
func (s *UsageService) History(ctx context.Context, limit int) (*types.UsageHistoryResponse, error) {
	recs, err := s.history.List(ctx, limit)
	if err != nil {
		return nil, err
	}

	resp := &types.UsageHistoryResponse{Items: make([]types.UsageHistoryItem, 0, len(recs))}
	for _, r := range recs {
		resp.Items = append(resp.Items, types.UsageHistoryItem{
			UsedBytes:   r.UsedBytes,
			TotalBytes:  r.TotalBytes,
			PercentUsed: r.PercentUsed,
			Objects:     r.Objects,
			Skipped:     r.Skipped,
			ComputedAt:  r.ComputedAt,
		})
	}

	return resp, nil
}

// PruneHistory 删除超过 retentionDays 天的历史，retentionDays<=0 时不删除.
func (s *UsageService) PruneHistory(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	before := s.clock.Now().Add(-time.Duration(retentionDays) * 24 * time.Hour)

	return s.history.Prune(ctx, before)
}

func report(snap quota.UsageSnapshot, fresh bool) *types.UsageResponse {
	return &types.UsageResponse{
		UsageSnapshot:  snap,
		Recommendation: quota.Recommend(snap.PercentUsed),
		FilesRemaining: quota.FilesRemaining(snap.RemainingBytes),
		Fresh:          fresh,
	}
}
