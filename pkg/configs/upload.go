package configs

import (
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultUploadMaxFileBytes = int64(32) << 20 // 单文件上限 32 MiB
	DefaultUploadConcurrency  = 4               // 并行上传数
	DefaultUploadTaskTTL      = time.Hour       // 上传任务状态保留时间
)

// UploadConfig 上传管线配置.
type UploadConfig struct {
	MaxFileBytes int64         `mapstructure:"max_file_bytes" rule:"gt=0"`
	Concurrency  int           `mapstructure:"concurrency"    rule:"min=1,max=64"`
	TaskTTL      time.Duration `mapstructure:"task_ttl"       rule:"gt=0"`
}

func (c *UploadConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("upload.max_file_bytes", DefaultUploadMaxFileBytes)
	v.SetDefault("upload.concurrency", DefaultUploadConcurrency)
	v.SetDefault("upload.task_ttl", DefaultUploadTaskTTL)
}
