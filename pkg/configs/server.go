package configs

import (
	"net"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig HTTP 服务配置.
type ServerConfig struct {
	Host string `mapstructure:"host" rule:"omitempty,ip"`
	Port int    `mapstructure:"port" rule:"min=1,max=65535"`
	// ReloadConfig 配置文件变化时重新加载
	ReloadConfig bool `mapstructure:"reload_config"`
	Debug        bool `mapstructure:"debug"`
	// Timeout 读取请求头的超时，单位秒
	Timeout   int `mapstructure:"timeout"    rule:"min=1,max=300"`
	GzipLevel int `mapstructure:"gzip_level" rule:"min=-1,max=9"`
	// AllowOrigins 为空时允许任意来源
	AllowOrigins []string `mapstructure:"allow_origins" rule:"dive,url"`
}

// Addr 返回监听地址.
func (s *ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// GetTimeoutDuration 返回超时时间作为time.Duration.
func (s *ServerConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(s.Timeout) * time.Second
}

func (s *ServerConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.reload_config", true)
	v.SetDefault("server.debug", false)
	v.SetDefault("server.timeout", 30)
	v.SetDefault("server.gzip_level", 5)
	v.SetDefault("server.allow_origins", []string{})
}
