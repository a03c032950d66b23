package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultQuotaRootPath             = "uploads/"       // 估算与浏览的根路径
	DefaultQuotaTotalBytes           = int64(5) << 30   // 套餐容量 5 GiB
	DefaultQuotaCacheTTL             = 60 * time.Second // 用量快照缓存有效期
	DefaultQuotaMaxDepth             = 2                // 根目录之下最多递归两层
	DefaultQuotaMaxObjectsPerFolder  = 100              // 每个目录最多统计的对象数
	DefaultQuotaMaxFoldersPerFolder  = 20               // 每个目录最多递归的子目录数
	DefaultQuotaConcurrency          = 16               // 元数据请求并发上限
	DefaultQuotaRefreshCron          = "*/5 * * * *"    // 后台预热缓存
	DefaultQuotaHistoryRetentionDays = 30               // 用量历史保留天数
	DefaultQuotaHistoryPruneCron     = "30 3 * * *"     // 历史清理时间
)

// QuotaConfig 用量估算配置.
type QuotaConfig struct {
	RootPath             string        `mapstructure:"root_path"              rule:"required,endswith=/"`
	TotalBytes           int64         `mapstructure:"total_bytes"            rule:"gt=0"`
	CacheTTL             time.Duration `mapstructure:"cache_ttl"              rule:"gt=0"`
	MaxDepth             int           `mapstructure:"max_depth"              rule:"min=0,max=16"`
	MaxObjectsPerFolder  int           `mapstructure:"max_objects_per_folder" rule:"min=1"`
	MaxFoldersPerFolder  int           `mapstructure:"max_folders_per_folder" rule:"min=0"`
	Concurrency          int           `mapstructure:"concurrency"            rule:"min=1,max=256"`
	RefreshCron          string        `mapstructure:"refresh_cron"`
	HistoryRetentionDays int           `mapstructure:"history_retention_days" rule:"min=0"`
	HistoryPruneCron     string        `mapstructure:"history_prune_cron"`
}

func (c *QuotaConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("quota.root_path", DefaultQuotaRootPath)
	v.SetDefault("quota.total_bytes", DefaultQuotaTotalBytes)
	v.SetDefault("quota.cache_ttl", DefaultQuotaCacheTTL)
	v.SetDefault("quota.max_depth", DefaultQuotaMaxDepth)
	v.SetDefault("quota.max_objects_per_folder", DefaultQuotaMaxObjectsPerFolder)
	v.SetDefault("quota.max_folders_per_folder", DefaultQuotaMaxFoldersPerFolder)
	v.SetDefault("quota.concurrency", DefaultQuotaConcurrency)
	v.SetDefault("quota.refresh_cron", DefaultQuotaRefreshCron)
	v.SetDefault("quota.history_retention_days", DefaultQuotaHistoryRetentionDays)
	v.SetDefault("quota.history_prune_cron", DefaultQuotaHistoryPruneCron)
}
