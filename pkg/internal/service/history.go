package service

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yeisme/drivemini/pkg/internal/model"
	"github.com/yeisme/drivemini/pkg/internal/quota"
)

// DefaultHistoryLimit 历史查询默认条数.
const DefaultHistoryLimit = 50

// UsageHistory 把用量快照写入数据库，db 为 nil（数据库未启用）时各操作均为空操作.
type UsageHistory struct {
	db *gorm.DB
}

// NewUsageHistory 创建历史存储.
func NewUsageHistory(db *gorm.DB) *UsageHistory {
	return &UsageHistory{db: db}
}

// Enabled 是否有可用的数据库.
func (h *UsageHistory) Enabled() bool { return h != nil && h.db != nil }

// Migrate 创建或更新表结构.
func (h *UsageHistory) Migrate(ctx context.Context) error {
	if !h.Enabled() {
		return nil
	}

	if err := h.db.WithContext(ctx).AutoMigrate(&model.UsageRecord{}); err != nil {
		return fmt.Errorf("migrate usage history: %w", err)
	}

	return nil
}

// Record 保存一条快照.
func (h *UsageHistory) Record(ctx context.Context, snap quota.UsageSnapshot) error {
	if !h.Enabled() {
		return nil
	}

	rec := model.UsageRecord{
		UsedBytes:        snap.UsedBytes,
		TotalBytes:       snap.TotalBytes,
		PercentUsed:      snap.PercentUsed,
		Objects:          snap.Stats.Objects,
		Skipped:          snap.Stats.Skipped,
		TruncatedObjects: snap.Stats.TruncatedObjects,
		TruncatedFolders: snap.Stats.TruncatedFolders,
		ComputedAt:       snap.ComputedAt,
	}

	if err := h.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("record usage: %w", err)
	}

	return nil
}

// List 按时间倒序返回最近 limit 条记录.
func (h *UsageHistory) List(ctx context.Context, limit int) ([]model.UsageRecord, error) {
	if !h.Enabled() {
		return nil, nil
	}

	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	var recs []model.UsageRecord

	err := h.db.WithContext(ctx).
		Order("computed_at DESC").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("list usage history: %w", err)
	}

	return recs, nil
}

// Prune 删除 before 之前的记录，返回删除条数.
func (h *UsageHistory) Prune(ctx context.Context, before time.Time) (int64, error) {
	if !h.Enabled() {
		return 0, nil
	}

	res := h.db.WithContext(ctx).Where("computed_at < ?", before).Delete(&model.UsageRecord{})
	if res.Error != nil {
		return 0, fmt.Errorf("prune usage history: %w", res.Error)
	}

	return res.RowsAffected, nil
}
