// Package s3test 提供测试用的内存对象存储.
package s3test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/yeisme/drivemini/pkg/internal/storage/s3"
)

type object struct {
	data        []byte
	contentType string
	modified    time.Time
}

// MemStore 以 map 保存对象，行为与 s3.Objects 一致：非递归列举时返回公共前缀.
type MemStore struct {
	mu      sync.RWMutex
	objects map[string]object
	now     func() time.Time

	// PutErr 非 nil 时 Put 对匹配的键返回该错误.
	PutErr func(key string) error
}

// NewMemStore 创建空存储.
func NewMemStore() *MemStore {
	return &MemStore{objects: make(map[string]object), now: time.Now}
}

// SetNow 替换时间来源.
func (m *MemStore) SetNow(now func() time.Time) { m.now = now }

// Seed 直接写入对象.
func (m *MemStore) Seed(key string, data []byte, modified time.Time) *MemStore {
	m.mu.Lock()
	m.objects[key] = object{data: data, modified: modified}
	m.mu.Unlock()

	return m
}

// Keys 返回全部键（已排序）.
func (m *MemStore) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

// Data 返回对象内容.
func (m *MemStore) Data(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	o, ok := m.objects[key]

	return o.data, ok
}

func (m *MemStore) List(ctx context.Context, prefix string, recursive bool) ([]s3.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := map[string]bool{}

	var out []s3.ObjectInfo

	for _, k := range m.sortedKeys() {
		if !strings.HasPrefix(k, prefix) || k == prefix {
			continue
		}

		rest := strings.TrimPrefix(k, prefix)
		if i := strings.Index(rest, "/"); !recursive && i >= 0 {
			dir := prefix + rest[:i+1]
			if !seen[dir] {
				seen[dir] = true
				out = append(out, s3.ObjectInfo{Key: dir, IsDir: true})
			}

			continue
		}

		o := m.objects[k]
		out = append(out, s3.ObjectInfo{Key: k, Size: int64(len(o.data)), LastModified: o.modified, ContentType: o.contentType})
	}

	return out, nil
}

func (m *MemStore) Stat(ctx context.Context, key string) (s3.ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return s3.ObjectInfo{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	o, ok := m.objects[key]
	if !ok {
		return s3.ObjectInfo{}, fmt.Errorf("stat %s: %w", key, s3.ErrObjectNotFound)
	}

	return s3.ObjectInfo{Key: key, Size: int64(len(o.data)), LastModified: o.modified, ContentType: o.contentType}, nil
}

func (m *MemStore) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string, progress io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if m.PutErr != nil {
		if err := m.PutErr(key); err != nil {
			return err
		}
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	if size >= 0 && int64(len(data)) != size {
		return fmt.Errorf("put %s: size mismatch %d != %d", key, len(data), size)
	}

	if progress != nil {
		_, _ = io.CopyN(io.Discard, progress, int64(len(data)))
	}

	m.mu.Lock()
	m.objects[key] = object{data: data, contentType: contentType, modified: m.now()}
	m.mu.Unlock()

	return nil
}

func (m *MemStore) Get(ctx context.Context, key string) (io.ReadCloser, s3.ObjectInfo, error) {
	info, err := m.Stat(ctx, key)
	if err != nil {
		return nil, s3.ObjectInfo{}, err
	}

	data, _ := m.Data(key)

	return io.NopCloser(bytes.NewReader(data)), info, nil
}

func (m *MemStore) Remove(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, k := range keys {
		delete(m.objects, k)
	}

	return nil
}

func (m *MemStore) PresignGet(_ context.Context, key string, expiry time.Duration) (string, error) {
	return fmt.Sprintf("http://s3.test/drive/%s?X-Amz-Expires=%d", key, int(expiry.Seconds())), nil
}

func (m *MemStore) sortedKeys() []string {
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
