// Package quotatest 提供测试用的内存 Gateway.
package quotatest

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yeisme/drivemini/pkg/internal/quota"
)

// FakeGateway 内存中的目录树，可按路径注入错误并统计调用次数.
type FakeGateway struct {
	mu       sync.Mutex
	listings map[string]*quota.Listing
	folders  map[string]bool
	metas    map[string]quota.ObjectMeta
	listErrs map[string]error
	metaErrs map[string]error
	gate     chan struct{}

	listCalls atomic.Int64
	metaCalls atomic.Int64
}

var _ quota.Gateway = (*FakeGateway)(nil)

// NewFakeGateway 创建空的 FakeGateway.
func NewFakeGateway() *FakeGateway {
	return &FakeGateway{
		listings: make(map[string]*quota.Listing),
		folders:  make(map[string]bool),
		metas:    make(map[string]quota.ObjectMeta),
		listErrs: make(map[string]error),
		metaErrs: make(map[string]error),
	}
}

// AddObject 添加对象，并按路径补齐上级目录，列举顺序为添加顺序.
func (f *FakeGateway) AddObject(path string, size int64) *FakeGateway {
	f.mu.Lock()
	defer f.mu.Unlock()

	parent, name := split(path)
	f.ensureFolder(parent)

	l := f.listing(parent)
	l.Objects = append(l.Objects, quota.ObjectRef{Name: name, Path: path})
	f.metas[path] = quota.ObjectMeta{SizeBytes: size, LastModified: time.Unix(0, 0).UTC()}

	return f
}

// AddFolder 添加目录，path 以 "/" 结尾.
func (f *FakeGateway) AddFolder(path string) *FakeGateway {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ensureFolder(path)

	return f
}

// FailList 使 ListChildren(path) 返回 err.
func (f *FakeGateway) FailList(path string, err error) *FakeGateway {
	f.mu.Lock()
	f.listErrs[path] = err
	f.mu.Unlock()

	return f
}

// FailMeta 使 GetMetadata(path) 返回 err.
func (f *FakeGateway) FailMeta(path string, err error) *FakeGateway {
	f.mu.Lock()
	f.metaErrs[path] = err
	f.mu.Unlock()

	return f
}

// Block 使 ListChildren 阻塞直到 gate 关闭或 ctx 结束.
func (f *FakeGateway) Block(gate chan struct{}) *FakeGateway {
	f.mu.Lock()
	f.gate = gate
	f.mu.Unlock()

	return f
}

// ListCalls 返回 ListChildren 调用次数.
func (f *FakeGateway) ListCalls() int { return int(f.listCalls.Load()) }

// MetaCalls 返回 GetMetadata 调用次数.
func (f *FakeGateway) MetaCalls() int { return int(f.metaCalls.Load()) }

// ListChildren 返回 path 的直接子项，未知路径返回空列表.
func (f *FakeGateway) ListChildren(ctx context.Context, path string) (quota.Listing, error) {
	f.listCalls.Add(1)

	f.mu.Lock()
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return quota.Listing{}, ctx.Err()
		}
	}

	if err := ctx.Err(); err != nil {
		return quota.Listing{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err, ok := f.listErrs[path]; ok {
		return quota.Listing{}, err
	}

	l, ok := f.listings[path]
	if !ok {
		return quota.Listing{}, nil
	}

	return quota.Listing{
		Folders: append([]quota.FolderRef(nil), l.Folders...),
		Objects: append([]quota.ObjectRef(nil), l.Objects...),
	}, nil
}

// GetMetadata 返回对象元数据，未知对象返回 quota.ErrNotFound.
func (f *FakeGateway) GetMetadata(ctx context.Context, path string) (quota.ObjectMeta, error) {
	f.metaCalls.Add(1)

	if err := ctx.Err(); err != nil {
		return quota.ObjectMeta{}, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if err, ok := f.metaErrs[path]; ok {
		return quota.ObjectMeta{}, err
	}

	meta, ok := f.metas[path]
	if !ok {
		return quota.ObjectMeta{}, quota.ErrNotFound
	}

	return meta, nil
}

func (f *FakeGateway) listing(path string) *quota.Listing {
	l, ok := f.listings[path]
	if !ok {
		l = &quota.Listing{}
		f.listings[path] = l
	}

	return l
}

// ensureFolder 登记目录并挂到上级目录下，根目录（无上级）只登记.
func (f *FakeGateway) ensureFolder(path string) {
	if path == "" || f.folders[path] {
		return
	}

	f.folders[path] = true
	f.listing(path)

	parent, name := split(strings.TrimSuffix(path, "/"))
	if parent == "" {
		return
	}

	f.ensureFolder(parent)

	l := f.listing(parent)
	l.Folders = append(l.Folders, quota.FolderRef{Name: name, Path: path})
}

// split 把 "a/b/c" 拆成 "a/b/" 与 "c".
func split(path string) (string, string) {
	i := strings.LastIndex(path, "/")
	if i < 0 {
		return "", path
	}

	return path[:i+1], path[i+1:]
}
