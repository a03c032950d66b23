package configs

import (
	"strings"

	"github.com/spf13/viper"
)

// 限流维度.
const (
	RateLimitGlobal = "global"
	RateLimitIP     = "ip"
	RateLimitHeader = "header"
)

// RateLimitConfig 令牌桶限流配置.
type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"     rule:"gte=0"`
	Burst   int     `mapstructure:"burst"   rule:"gte=0"`
	// Key 取 global、ip 或 header:<Name>
	Key string `mapstructure:"key"`
}

// KeyMode 解析 Key，返回维度以及 header 维度下的请求头名，未知取值按 ip 处理.
func (c RateLimitConfig) KeyMode() (mode, header string) {
	k := strings.TrimSpace(c.Key)

	if name, ok := strings.CutPrefix(strings.ToLower(k), RateLimitHeader+":"); ok && name != "" {
		return RateLimitHeader, k[len(RateLimitHeader)+1:]
	}

	switch strings.ToLower(k) {
	case "", RateLimitGlobal:
		return RateLimitGlobal, ""
	default:
		return RateLimitIP, ""
	}
}

func (c *RateLimitConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("rate_limit.enabled", false)
	v.SetDefault("rate_limit.rps", 50.0)
	v.SetDefault("rate_limit.burst", 100)
	v.SetDefault("rate_limit.key", RateLimitIP)
}
