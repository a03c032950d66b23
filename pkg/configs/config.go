// Package configs 管理应用程序配置，包括对象存储、用量估算、KV、数据库与消息队列的配置信息.
// configs 包支持多种配置格式（YAML、JSON、TOML、dotenv）并启用热重载.
//
// Example:
//
//	err := configs.InitConfig("./")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	config := configs.GetConfig()
//	fmt.Println(config.Server.Port)
//
// Example accessing quota config:
//
//	q := configs.GetConfig().Quota
//	fmt.Println("root:", q.RootPath, "ttl:", q.CacheTTL)
//
// Example accessing S3 config:
//
//	s3Config := configs.GetConfig().S3
//	endpoint := s3Config.GetEndpointURL()
//	fmt.Println("S3 Endpoint:", endpoint)
package configs

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/yeisme/drivemini/pkg/rule"
)

const (
	// AppName 应用名称，同时作为环境变量前缀.
	AppName = "drivemini"
	// AppVersion 应用版本.
	AppVersion = "0.3.0"
	// EnvPrefix 环境变量前缀，例如 DRIVEMINI_SERVER_PORT.
	EnvPrefix = "DRIVEMINI"
)

type (
	// AppConfig 全局应用程序配置.
	AppConfig struct {
		Server         ServerConfig         `mapstructure:"server"`          // ServerConfig 服务器配置，端口、调试模式等
		Log            LogConfig            `mapstructure:"log"`             // LogConfig 日志相关配置
		S3             S3Config             `mapstructure:"s3"`              // S3Config 对象存储配置
		Quota          QuotaConfig          `mapstructure:"quota"`           // QuotaConfig 用量估算与容量配置
		Upload         UploadConfig         `mapstructure:"upload"`          // UploadConfig 上传管线配置
		Search         SearchConfig         `mapstructure:"search"`          // SearchConfig 搜索配置
		Note           NoteConfig           `mapstructure:"note"`            // NoteConfig 共享笔记配置
		KV             KVConfig             `mapstructure:"kv"`              // KVConfig 键值存储配置
		DB             DBConfig             `mapstructure:"db"`              // DBConfig 数据库配置（用量历史）
		MQ             MQConfig             `mapstructure:"mq"`              // MQConfig 消息队列配置
		Events         EventsConfig         `mapstructure:"events"`          // EventsConfig 事件开关
		Metrics        MetricsConfig        `mapstructure:"metrics"`         // MetricsConfig 监控配置
		Tracing        TracingConfig        `mapstructure:"tracing"`         // TracingConfig 链路追踪配置
		RateLimit      RateLimitConfig      `mapstructure:"rate_limit"`      // RateLimitConfig 限流配置
		CircuitBreaker CircuitBreakerConfig `mapstructure:"circuit_breaker"` // CircuitBreakerConfig 熔断配置
	}
)

var (
	// globalConfig 全局配置实例.
	globalConfig AppConfig
	// appViper 全局 Viper 实例.
	appViper *viper.Viper
	// mu 保护热重载期间的并发读写.
	mu sync.RWMutex
)

// InitConfig 加载应用程序配置，支持多种格式(yaml、json、toml、dotenv)并启用热重载.
// path 为空或不存在配置文件时只使用默认值与环境变量.
func InitConfig(path string) error {
	v := viper.New()
	setAllDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	found := locateConfigFile(v, path)
	if found {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := rule.ValidateStruct(&cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	mu.Lock()
	globalConfig = cfg
	appViper = v
	mu.Unlock()

	if found {
		reloadConfigs(v, cfg.Server.ReloadConfig)
	}

	return nil
}

// locateConfigFile 根据 path 设置 viper 的配置文件，返回是否找到配置文件.
func locateConfigFile(v *viper.Viper, path string) bool {
	if path == "" {
		return false
	}

	// 是文件，使用SetConfigFile，Viper会自动检测类型
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		v.SetConfigFile(path)
		return true
	}

	exts := []string{"yaml", "yml", "json", "toml", "env", "dotenv"}
	for _, dir := range []string{path, filepath.Join(path, "configs")} {
		for _, ext := range exts {
			cfg := filepath.Join(dir, "config."+ext)
			if _, err := os.Stat(cfg); err == nil {
				v.SetConfigFile(cfg)
				return true
			}
		}
	}

	return false
}

// setAllDefaults 设置所有配置的默认值.
func setAllDefaults(v *viper.Viper) {
	var cfg AppConfig

	cfg.Server.setDefaults(v)
	cfg.Log.setDefaults(v)
	cfg.S3.setDefaults(v)
	cfg.Quota.setDefaults(v)
	cfg.Upload.setDefaults(v)
	cfg.Search.setDefaults(v)
	cfg.Note.setDefaults(v)
	cfg.KV.setDefaults(v)
	cfg.DB.setDefaults(v)
	cfg.MQ.setDefaults(v)
	cfg.Events.setDefaults(v)
	cfg.Metrics.setDefaults(v)
	cfg.Tracing.setDefaults(v)
	cfg.RateLimit.setDefaults(v)
	cfg.CircuitBreaker.setDefaults(v)
}

func reloadConfigs(v *viper.Viper, isHotReload bool) {
	if !isHotReload {
		return
	}
	// 启用配置热重载
	v.OnConfigChange(func(e fsnotify.Event) {
		fmt.Println("Config file changed:", e.Name)

		var cfg AppConfig
		if err := v.Unmarshal(&cfg); err != nil {
			fmt.Printf("Error reloading config: %v\n", err)
			return
		}

		if err := rule.ValidateStruct(&cfg); err != nil {
			fmt.Printf("Ignoring invalid config: %v\n", err)
			return
		}

		mu.Lock()
		globalConfig = cfg
		mu.Unlock()
	})
	v.WatchConfig()
}

// GetConfig 返回全局配置实例的快照.
func GetConfig() *AppConfig {
	mu.RLock()
	defer mu.RUnlock()

	cfg := globalConfig

	return &cfg
}

// GetViper 返回全局 Viper 实例，未初始化时为 nil.
func GetViper() *viper.Viper {
	mu.RLock()
	defer mu.RUnlock()

	return appViper
}

// SetConfig 直接替换全局配置，主要用于测试与命令行覆盖.
func SetConfig(cfg AppConfig) {
	mu.Lock()
	globalConfig = cfg
	mu.Unlock()
}

// ValidateConfig 按 rule 标签校验当前全局配置.
func ValidateConfig() error {
	return rule.ValidateStruct(GetConfig())
}
