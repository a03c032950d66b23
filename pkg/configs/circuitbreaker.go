package configs

import (
	"time"

	"github.com/spf13/viper"
)

// CircuitBreakerConfig 熔断器配置，同时用于 HTTP 入口与对象存储网关.
type CircuitBreakerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// FailureRate 统计窗口内失败占比达到该值即打开
	FailureRate       float64 `mapstructure:"failure_rate"         rule:"gte=0,lte=1"`
	MinRequests       uint32  `mapstructure:"min_requests"`
	IntervalSeconds   int     `mapstructure:"interval_seconds"     rule:"gte=0"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds"      rule:"gte=0"`
	MaxRequestsInHalf uint32  `mapstructure:"max_requests_in_half"`
}

// Interval 统计窗口，0 表示闭合状态下不清零.
func (c CircuitBreakerConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// Timeout 打开状态持续多久后进入半开.
func (c CircuitBreakerConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// ShouldTrip 请求数达到 MinRequests 且失败率不低于 FailureRate 时返回 true.
func (c CircuitBreakerConfig) ShouldTrip(requests, failures uint32) bool {
	if requests == 0 || requests < c.MinRequests {
		return false
	}

	return float64(failures)/float64(requests) >= c.FailureRate
}

func (c *CircuitBreakerConfig) setDefaults(v *viper.Viper) {
	for k, val := range map[string]any{
		"enabled":              false,
		"failure_rate":         0.5,
		"min_requests":         20,
		"interval_seconds":     60,
		"timeout_seconds":      30,
		"max_requests_in_half": 5,
	} {
		v.SetDefault("circuit_breaker."+k, val)
	}
}
