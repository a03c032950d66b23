package types

import (
	"time"

	"github.com/yeisme/drivemini/pkg/internal/quota"
)

// UsageResponse 当前用量及建议.
type UsageResponse struct {
	quota.UsageSnapshot

	Recommendation quota.Recommendation `json:"recommendation"`
	// FilesRemaining 按平均 10 MiB 估算的可上传文件数
	FilesRemaining int64 `json:"files_remaining"`
	Fresh          bool  `json:"fresh"`
}

// ValidateUploadRequest 上传前容量检查请求.
type ValidateUploadRequest struct {
	Sizes []int64 `json:"sizes" rule:"required,max=1000,dive,min=0,max=1099511627776"`
}

// UsageHistoryQuery 历史查询参数.
type UsageHistoryQuery struct {
	Limit int `form:"limit" rule:"omitempty,min=1,max=500"`
}

// UsageHistoryItem 一条持久化的用量快照.
type UsageHistoryItem struct {
	UsedBytes   int64     `json:"used_bytes"`
	TotalBytes  int64     `json:"total_bytes"`
	PercentUsed float64   `json:"percent_used"`
	Objects     int       `json:"objects"`
	Skipped     int       `json:"skipped"`
	ComputedAt  time.Time `json:"computed_at"`
}

// UsageHistoryResponse 用量历史.
type UsageHistoryResponse struct {
	Items []UsageHistoryItem `json:"items"`
}
