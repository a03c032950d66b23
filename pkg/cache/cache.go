// Package cache 提供基于键值存储的泛型缓存.
//
// 值使用 sonic 序列化为 JSON，键统一加上前缀以便按命名空间清理.
//
// 基本用法:
//
//	c := cache.NewCache(kvClient, cache.WithPrefix("rc/"))
//
//	err := cache.Set(ctx, c, "listing", entries, time.Minute)
//	entries, err := cache.Get[[]Entry](ctx, c, "listing")
//
//	v, err := cache.GetOrSet(ctx, c, "k", func() (Entry, error) { ... }, time.Minute)
//
// 缓存未命中返回 kv.ErrKeyNotFound.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/yeisme/drivemini/pkg/internal/storage/kv"
)

// Cache 基于 KV 存储的缓存.
type Cache struct {
	kvStore kv.KVStore
	prefix  string
}

// Option 配置 Cache.
type Option func(*Cache)

// WithPrefix 设置键前缀，前缀中不应包含 glob 元字符.
func WithPrefix(prefix string) Option {
	return func(c *Cache) { c.prefix = prefix }
}

// NewCache 创建缓存实例.
func NewCache(kvStore kv.KVStore, opts ...Option) *Cache {
	c := &Cache{kvStore: kvStore}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Prefix 返回键前缀.
func (c *Cache) Prefix() string { return c.prefix }

func (c *Cache) key(k string) string {
	return c.prefix + k
}

// Get 泛型获取缓存值.
func Get[T any](ctx context.Context, c *Cache, key string) (T, error) {
	var zero T

	data, err := c.kvStore.Get(ctx, c.key(key))
	if err != nil {
		return zero, err
	}

	var value T
	if err := sonic.Unmarshal(data, &value); err != nil {
		return zero, fmt.Errorf("unmarshal cache value %s: %w", key, err)
	}

	return value, nil
}

// Set 泛型设置缓存值.
func Set[T any](ctx context.Context, c *Cache, key string, value T, ttl time.Duration) error {
	data, err := sonic.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value %s: %w", key, err)
	}

	return c.kvStore.Set(ctx, c.key(key), data, ttl)
}

// Delete 删除缓存键.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.kvStore.Delete(ctx, c.key(key))
}

// Exists 检查缓存键是否存在.
func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	return c.kvStore.Exists(ctx, c.key(key))
}

// GetOrSet 获取缓存值，未命中时调用 getter 并写回；写回失败不影响返回值.
func GetOrSet[T any](ctx context.Context, c *Cache, key string, getter func() (T, error), ttl time.Duration) (T, error) {
	if value, err := Get[T](ctx, c, key); err == nil {
		return value, nil
	}

	value, err := getter()
	if err != nil {
		var zero T
		return zero, err
	}

	_ = Set(ctx, c, key, value, ttl)

	return value, nil
}

// Clear 删除本前缀下的全部键，返回删除数量.
func (c *Cache) Clear(ctx context.Context) (int, error) {
	keys, err := c.kvStore.Keys(ctx, c.prefix+"*")
	if err != nil {
		return 0, err
	}

	n := 0

	for _, key := range keys {
		if !strings.HasPrefix(key, c.prefix) {
			continue
		}

		if err := c.kvStore.Delete(ctx, key); err != nil {
			return n, err
		}

		n++
	}

	return n, nil
}
