// Package model 定义持久化到数据库的模型.
package model

import "time"

// UsageRecord 一次成功估算的用量快照.
type UsageRecord struct {
	ID               uint      `gorm:"primaryKey"         json:"id"`
	UsedBytes        int64     `gorm:"not null"           json:"used_bytes"`
	TotalBytes       int64     `gorm:"not null"           json:"total_bytes"`
	PercentUsed      float64   `gorm:"not null"           json:"percent_used"`
	Objects          int       `json:"objects"`
	Skipped          int       `json:"skipped"`
	TruncatedObjects int       `json:"truncated_objects"`
	TruncatedFolders int       `json:"truncated_folders"`
	ComputedAt       time.Time `gorm:"index;not null"     json:"computed_at"`
	CreatedAt        time.Time `json:"created_at"`
}
