package kv

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang/groupcache"

	"github.com/yeisme/drivemini/pkg/configs"
)

// ErrGroupExists 同名 groupcache 组已在本进程注册，组的 getter 无法替换.
var ErrGroupExists = errors.New("groupcache kv: group already registered")

// groupcache 的组和 HTTPPool 都是进程级注册，只能创建一次.
var (
	gcMu     sync.Mutex
	poolMade bool
)

// GroupcacheKV 本地数据保存在 MemoryKV 中（支持 TTL），
// 本地未命中时通过 groupcache 向对等节点只读加载.
type GroupcacheKV struct {
	local *MemoryKV
	group *groupcache.Group
	pool  *groupcache.HTTPPool
}

// NewGroupcacheKV 创建 groupcache KV，Peers 为空时退化为单机内存存储.
func NewGroupcacheKV(_ context.Context, config any) (KVStore, error) {
	cfg, ok := config.(*configs.GroupcacheKVConfig)
	if !ok {
		return nil, fmt.Errorf("groupcache kv: unexpected config %T", config)
	}

	g := &GroupcacheKV{local: NewMemoryKV(nil)}

	// 对等节点请求本机时只返回本地数据
	getter := groupcache.GetterFunc(func(ctx context.Context, key string, dest groupcache.Sink) error {
		val, err := g.local.Get(ctx, key)
		if err != nil {
			return err
		}

		return dest.SetBytes(val)
	})

	gcMu.Lock()
	defer gcMu.Unlock()

	if groupcache.GetGroup(cfg.Name) != nil {
		return nil, fmt.Errorf("%w: %s", ErrGroupExists, cfg.Name)
	}

	if len(cfg.Peers) > 0 {
		if poolMade {
			return nil, errors.New("groupcache kv: peer pool already created in this process")
		}

		g.pool = groupcache.NewHTTPPoolOpts(cfg.Self, &groupcache.HTTPPoolOptions{})
		g.pool.Set(cfg.Peers...)
		poolMade = true
	}

	g.group = groupcache.NewGroup(cfg.Name, cfg.CacheBytes, getter)

	return g, nil
}

func (g *GroupcacheKV) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := g.local.Get(ctx, key)
	if err == nil || g.pool == nil || !errors.Is(err, ErrKeyNotFound) {
		return val, err
	}

	var data []byte
	if err := g.group.Get(ctx, key, groupcache.AllocatingByteSliceSink(&data)); err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, notFound(key)
		}

		return nil, fmt.Errorf("groupcache kv: get %s: %w", key, err)
	}

	return data, nil
}

// Set 只写本地；对等节点上已缓存的旧值需等待其淘汰.
func (g *GroupcacheKV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return g.local.Set(ctx, key, value, ttl)
}

func (g *GroupcacheKV) Delete(ctx context.Context, key string) error {
	return g.local.Delete(ctx, key)
}

func (g *GroupcacheKV) Exists(ctx context.Context, key string) (bool, error) {
	return g.local.Exists(ctx, key)
}

func (g *GroupcacheKV) Keys(ctx context.Context, pattern string) ([]string, error) {
	return g.local.Keys(ctx, pattern)
}

func (g *GroupcacheKV) Close() error {
	return g.local.Close()
}

func init() {
	RegisterKVFactory(KVTypeGroupcache, NewGroupcacheKV)
}
