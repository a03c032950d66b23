package configs

import "github.com/spf13/viper"

// KVConfig 键值存储配置，只有 Type 对应的子配置生效.
// 共享笔记、搜索历史、上传任务与响应缓存都存放在这里.
type KVConfig struct {
	Type       string             `mapstructure:"type"       rule:"oneof=memory redis nats groupcache badger"`
	Redis      RedisKVConfig      `mapstructure:"redis"`
	NATS       NATSKVConfig       `mapstructure:"nats"`
	Groupcache GroupcacheKVConfig `mapstructure:"groupcache"`
	Badger     BadgerKVConfig     `mapstructure:"badger"`
}

type RedisKVConfig struct {
	Addr     string `mapstructure:"addr"     rule:"hostname_port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"       rule:"min=0,max=15"`
}

// NATSKVConfig JetStream KeyValue 桶.
type NATSKVConfig struct {
	URL      string `mapstructure:"url"      rule:"required"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Bucket   string `mapstructure:"bucket"   rule:"required"`
}

// GroupcacheKVConfig 本地写入、对等节点只读.
type GroupcacheKVConfig struct {
	Name       string   `mapstructure:"name"        rule:"required"`
	CacheBytes int64    `mapstructure:"cache_bytes" rule:"min=1048576"`
	Peers      []string `mapstructure:"peers"`
	Self       string   `mapstructure:"self"        rule:"omitempty,url"`
}

// BadgerKVConfig InMemory 为 true 时忽略 Dir.
type BadgerKVConfig struct {
	Dir      string `mapstructure:"dir"`
	InMemory bool   `mapstructure:"in_memory"`
}

// Backend 返回 Type 对应子配置的指针，memory 返回 nil.
func (c *KVConfig) Backend() any {
	switch c.Type {
	case "redis":
		return &c.Redis
	case "nats":
		return &c.NATS
	case "groupcache":
		return &c.Groupcache
	case "badger":
		return &c.Badger
	}

	return nil
}

func (c *KVConfig) setDefaults(v *viper.Viper) {
	v.SetDefault("kv.type", "memory")

	v.SetDefault("kv.redis.addr", "localhost:6379")
	v.SetDefault("kv.redis.db", 0)

	v.SetDefault("kv.nats.url", "nats://localhost:4222")
	v.SetDefault("kv.nats.bucket", AppName+"-kv")

	v.SetDefault("kv.groupcache.name", AppName+"-cache")
	v.SetDefault("kv.groupcache.cache_bytes", 64<<20)
	v.SetDefault("kv.groupcache.peers", []string{})
	v.SetDefault("kv.groupcache.self", "http://localhost:8080")

	v.SetDefault("kv.badger.dir", "data/kv")
	v.SetDefault("kv.badger.in_memory", false)
}
