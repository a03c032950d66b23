package configs

import "github.com/spf13/viper"

// MetricsConfig Prometheus 指标配置.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// Path 指标路由，挂在 API 同一个 engine 上
	Path           string `mapstructure:"path"            rule:"omitempty,startswith=/"`
	RuntimeMetrics bool   `mapstructure:"runtime_metrics"`
	Pprof          bool   `mapstructure:"pprof"`
}

func (c *MetricsConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.runtime_metrics", true)
	v.SetDefault("metrics.pprof", false)
}
