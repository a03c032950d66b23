// Package kv 提供用于键值存储的接口和实现.
//
// 支持的后端：memory（默认，进程内）、redis、nats（JetStream KV）、groupcache、badger（嵌入式持久化）.
// 所有实现对缺失或已过期的键返回 ErrKeyNotFound.
package kv

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"path"
	"slices"
	"time"

	"github.com/yeisme/drivemini/pkg/configs"
)

// ErrKeyNotFound 键不存在或已过期.
var ErrKeyNotFound = errors.New("kv: key not found")

// Client 当前启用的 KV 后端.
type Client struct {
	KVStore

	Type KVType
}

// KVStore 键值存储，ttl<=0 表示永不过期，Keys 的 pattern 为 glob，空串匹配全部.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Keys(ctx context.Context, pattern string) ([]string, error)
	Close() error
}

// KVType 键值存储类型.
type KVType string

const (
	KVTypeMemory     KVType = "memory"
	KVTypeRedis      KVType = "redis"
	KVTypeNATS       KVType = "nats"
	KVTypeGroupcache KVType = "groupcache"
	KVTypeBadger     KVType = "badger"
)

// KVFactory 由对应的子配置创建后端，config 的具体类型见 configs.KVConfig.Backend.
type KVFactory func(ctx context.Context, config any) (KVStore, error)

var kvFactories = map[KVType]KVFactory{}

// RegisterKVFactory 在 init 中注册后端.
func RegisterKVFactory(kvType KVType, factory KVFactory) {
	kvFactories[kvType] = factory
}

// GetRegisteredKVTypes 返回已注册的类型，按名称排序.
func GetRegisteredKVTypes() []KVType {
	return slices.Sorted(maps.Keys(kvFactories))
}

// NewKVStore 根据类型创建 KVStore 实例.
func NewKVStore(ctx context.Context, kvType KVType, config any) (KVStore, error) {
	factory, exists := kvFactories[kvType]
	if !exists {
		return nil, fmt.Errorf("unsupported KV type: %s", kvType)
	}

	return factory(ctx, config)
}

// NewKVClient 按 cfg.Type 选择对应子配置并创建 KV 客户端.
func NewKVClient(ctx context.Context, cfg configs.KVConfig) (*Client, error) {
	kvType := KVType(cfg.Type)

	store, err := NewKVStore(ctx, kvType, cfg.Backend())
	if err != nil {
		return nil, err
	}

	return &Client{KVStore: store, Type: kvType}, nil
}

// notFound 包装 ErrKeyNotFound 并附带键名.
func notFound(key string) error {
	return fmt.Errorf("%w: %s", ErrKeyNotFound, key)
}

// matchPattern 以 glob 语义匹配键，空模式或 "*" 匹配全部.
func matchPattern(pattern, key string) bool {
	if pattern == "" || pattern == "*" {
		return true
	}

	ok, err := path.Match(pattern, key)

	return err == nil && ok
}
