package configs

import "github.com/spf13/viper"

// DefaultLogLevel 未配置或配置非法时使用的级别.
const DefaultLogLevel = "info"

// LogConfig 日志配置.
type LogConfig struct {
	Level string `mapstructure:"level"  rule:"omitempty,oneof=trace debug info warn error fatal panic disabled"`
	// Format 为 console 时输出彩色文本，json 时每行一个事件
	Format string        `mapstructure:"format" rule:"omitempty,oneof=console json"`
	File   LogFileConfig `mapstructure:"file"`
}

// LogFileConfig 滚动日志文件，交给 lumberjack 处理.
type LogFileConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Path       string `mapstructure:"path"         rule:"required_if=Enabled true"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"  rule:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups"  rule:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" rule:"gte=0"`
	Compress   bool   `mapstructure:"compress"`
}

func (l *LogConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file.enabled", false)
	v.SetDefault("log.file.path", "logs/"+AppName+".log")
	v.SetDefault("log.file.max_size_mb", 100)
	v.SetDefault("log.file.max_backups", 7)
	v.SetDefault("log.file.max_age_days", 28)
	v.SetDefault("log.file.compress", true)
}
