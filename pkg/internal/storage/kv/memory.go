package kv

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time // 零值表示永不过期
}

// MemoryKV 进程内 KV 实现，按需惰性淘汰过期键.
type MemoryKV struct {
	mu    sync.RWMutex
	data  map[string]memoryEntry
	clock clockwork.Clock
}

// NewMemoryKV 创建内存 KV 实例，clock 为 nil 时使用真实时钟.
func NewMemoryKV(clock clockwork.Clock) *MemoryKV {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &MemoryKV{
		data:  make(map[string]memoryEntry),
		clock: clock,
	}
}

func newMemoryKVFactory(_ context.Context, _ any) (KVStore, error) {
	return NewMemoryKV(nil), nil
}

func (m *MemoryKV) live(e memoryEntry) bool {
	return e.expiresAt.IsZero() || m.clock.Now().Before(e.expiresAt)
}

// Get 获取键的值.
func (m *MemoryKV) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	e, ok := m.data[key]
	m.mu.RUnlock()

	if !ok || !m.live(e) {
		return nil, notFound(key)
	}

	result := make([]byte, len(e.value))
	copy(result, e.value)

	return result, nil
}

// Set 设置键的值.
func (m *MemoryKV) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	data := make([]byte, len(value))
	copy(data, value)

	e := memoryEntry{value: data}
	if ttl > 0 {
		e.expiresAt = m.clock.Now().Add(ttl)
	}

	m.mu.Lock()
	m.data[key] = e
	m.mu.Unlock()

	return nil
}

// Delete 删除键.
func (m *MemoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()

	return nil
}

// Exists 检查键是否存在.
func (m *MemoryKV) Exists(_ context.Context, key string) (bool, error) {
	m.mu.RLock()
	e, ok := m.data[key]
	m.mu.RUnlock()

	return ok && m.live(e), nil
}

// Keys 获取匹配模式的键，结果按字典序排列.
func (m *MemoryKV) Keys(_ context.Context, pattern string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := make([]string, 0, len(m.data))

	for k, e := range m.data {
		if !m.live(e) {
			delete(m.data, k)
			continue
		}

		if matchPattern(pattern, k) {
			keys = append(keys, k)
		}
	}

	sort.Strings(keys)

	return keys, nil
}

// Close 关闭存储（内存实现无需操作）.
func (m *MemoryKV) Close() error {
	return nil
}

func init() {
	RegisterKVFactory(KVTypeMemory, newMemoryKVFactory)
}
