package configs

import (
	"github.com/spf13/viper"
)

// MQType 消息队列类型.
type MQType string

const (
	// MQTypeMemory 进程内消息队列（watermill gochannel）.
	MQTypeMemory MQType = "memory"
	// MQTypeNATS NATS / JetStream 消息队列.
	MQTypeNATS MQType = "nats"

	DefaultMQURL         = "nats://localhost:4222"
	DefaultMaxReconnects = 5               // 默认最大重连次数.
	DefaultReconnectWait = 5               // 默认重连等待时间（秒）.
	DefaultMQClientID    = "drivemini-app" // 默认客户端ID
	DefaultMaxPingsOut   = 3               // 默认最大ping输出次数
	DefaultPingInterval  = 20              // 默认ping间隔 (秒)
	DefaultBufferSize    = 32768           // 默认缓冲区大小 (32KB)
	DefaultMemoryBuffer  = 64              // 默认进程内订阅缓冲
)

// MQConfig 消息队列配置.
type MQConfig struct {
	Type          MQType         `mapstructure:"type"           rule:"oneof=memory nats"`
	EnableMetrics bool           `mapstructure:"enable_metrics"`
	Memory        MQMemoryConfig `mapstructure:"memory"`
	NATS          MQNATSConfig   `mapstructure:"nats"`
}

// MQMemoryConfig 进程内 MQ 配置.
type MQMemoryConfig struct {
	OutputBuffer int64 `mapstructure:"output_buffer" rule:"min=0"`
	Persistent   bool  `mapstructure:"persistent"`
}

// MQNATSConfig NATS MQ 配置.
type MQNATSConfig struct {
	URL                    string   `mapstructure:"url"`
	ClusterURLs            []string `mapstructure:"cluster_urls"`
	User                   string   `mapstructure:"user"`
	Password               string   `mapstructure:"password"`
	JWT                    string   `mapstructure:"jwt"`
	NKey                   string   `mapstructure:"nkey"`
	ClientID               string   `mapstructure:"client_id"`
	MaxReconnects          int      `mapstructure:"max_reconnects"           rule:"min=0,max=100"`
	ReconnectWait          int      `mapstructure:"reconnect_wait"           rule:"min=1,max=300"`
	MaxPingsOut            int      `mapstructure:"max_pings_out"            rule:"min=1,max=10"`
	PingInterval           int      `mapstructure:"ping_interval"            rule:"min=1,max=300"`
	BufferSize             int      `mapstructure:"buffer_size"              rule:"min=1024,max=1048576"`
	JetStreamEnabled       bool     `mapstructure:"jetstream_enabled"`
	JetStreamAutoProvision bool     `mapstructure:"jetstream_auto_provision"`
	JetStreamTrackMsgID    bool     `mapstructure:"jetstream_track_msg_id"`
	JetStreamAckAsync      bool     `mapstructure:"jetstream_ack_async"`
	JetStreamDurablePrefix string   `mapstructure:"jetstream_durable_prefix"`
}

// GetMQType 返回当前配置的消息队列类型.
func (c *MQConfig) GetMQType() MQType {
	return c.Type
}

// setDefaults 设置MQ配置的默认值.
func (c *MQConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("mq.type", MQTypeMemory)
	v.SetDefault("mq.enable_metrics", false)

	v.SetDefault("mq.memory.output_buffer", DefaultMemoryBuffer)
	v.SetDefault("mq.memory.persistent", false)

	// NATS 默认值
	v.SetDefault("mq.nats.url", DefaultMQURL)
	v.SetDefault("mq.nats.cluster_urls", []string{})
	v.SetDefault("mq.nats.user", "")
	v.SetDefault("mq.nats.password", "")
	v.SetDefault("mq.nats.jwt", "")
	v.SetDefault("mq.nats.nkey", "")
	v.SetDefault("mq.nats.client_id", DefaultMQClientID)
	v.SetDefault("mq.nats.max_reconnects", DefaultMaxReconnects)
	v.SetDefault("mq.nats.reconnect_wait", DefaultReconnectWait)
	v.SetDefault("mq.nats.max_pings_out", DefaultMaxPingsOut)
	v.SetDefault("mq.nats.ping_interval", DefaultPingInterval)
	v.SetDefault("mq.nats.buffer_size", DefaultBufferSize)
	v.SetDefault("mq.nats.jetstream_enabled", true)
	v.SetDefault("mq.nats.jetstream_auto_provision", true)
	v.SetDefault("mq.nats.jetstream_track_msg_id", true)
	v.SetDefault("mq.nats.jetstream_ack_async", false)
	v.SetDefault("mq.nats.jetstream_durable_prefix", "drivemini-durable")
}
