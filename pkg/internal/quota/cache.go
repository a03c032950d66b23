package quota

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/yeisme/drivemini/pkg/metrics"
)

const (
	// DefaultCacheTTL 快照默认有效期.
	DefaultCacheTTL = 60 * time.Second
	// computeTimeout 单次共享计算的上限，与任何调用方的 ctx 无关.
	computeTimeout = 2 * time.Minute
)

// Computer 产生用量快照，*Estimator 实现了它.
type Computer interface {
	Estimate(ctx context.Context) (UsageSnapshot, error)
}

type cacheEntry struct {
	snap UsageSnapshot
	at   time.Time
}

// SnapshotCache 保存最近一次成功的快照，按 TTL 判断是否新鲜.
// 并发的 GetOrCompute 共享同一次计算.
type SnapshotCache struct {
	ttl   time.Duration
	clock clockwork.Clock

	mu    sync.RWMutex
	entry *cacheEntry

	group singleflight.Group
}

// NewSnapshotCache 创建缓存，ttl<=0 时使用 DefaultCacheTTL，clock 为 nil 时使用真实时钟.
func NewSnapshotCache(ttl time.Duration, clock clockwork.Clock) *SnapshotCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &SnapshotCache{ttl: ttl, clock: clock}
}

// TTL 返回有效期.
func (c *SnapshotCache) TTL() time.Duration { return c.ttl }

// Peek 返回最近一次写入的快照及其是否仍在有效期内；从未写入时返回 nil.
func (c *SnapshotCache) Peek() (*UsageSnapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.entry == nil {
		return nil, false
	}

	snap := c.entry.snap

	return &snap, c.clock.Since(c.entry.at) < c.ttl
}

// GetOrCompute 有新鲜快照时直接返回，否则调用 est 计算并写入.
// 计算在脱离调用方取消信号的 ctx 中进行，某个调用方取消只会让它自己提前返回.
// 计算失败时不修改已有条目.
func (c *SnapshotCache) GetOrCompute(ctx context.Context, est Computer) (UsageSnapshot, error) {
	if snap, ok := c.fresh(); ok {
		metrics.UsageCacheTotal.WithLabelValues("hit").Inc()
		return snap, nil
	}

	ch := c.group.DoChan("snapshot", func() (any, error) {
		if snap, ok := c.fresh(); ok {
			return snap, nil
		}

		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), computeTimeout)
		defer cancel()

		snap, err := est.Estimate(cctx)
		if err != nil {
			return nil, err
		}

		c.put(snap)

		return snap, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return UsageSnapshot{}, ctx.Err()
	case res = <-ch:
	}

	if res.Shared {
		metrics.UsageCacheTotal.WithLabelValues("shared").Inc()
	} else {
		metrics.UsageCacheTotal.WithLabelValues("miss").Inc()
	}

	if res.Err != nil {
		return UsageSnapshot{}, res.Err
	}

	return res.Val.(UsageSnapshot), nil
}

func (c *SnapshotCache) fresh() (UsageSnapshot, bool) {
	snap, ok := c.Peek()
	if snap == nil || !ok {
		return UsageSnapshot{}, false
	}

	return *snap, true
}

// put 以当前时钟时间整体覆盖缓存条目.
func (c *SnapshotCache) put(snap UsageSnapshot) {
	c.mu.Lock()
	c.entry = &cacheEntry{snap: snap, at: c.clock.Now()}
	c.mu.Unlock()
}
