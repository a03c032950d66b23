// Package service 实现业务逻辑（用量、文件浏览、上传、搜索、共享笔记），不处理 HTTP 细节.
package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid"

	"github.com/yeisme/drivemini/pkg/internal/storage/s3"
)

var (
	// ErrNotFound 文件、任务等资源不存在.
	ErrNotFound = errors.New("not found")
	// ErrInvalidName 文件夹名为空或包含非法字符.
	ErrInvalidName = errors.New("invalid name")
	// ErrInvalidPath 路径越界或格式错误.
	ErrInvalidPath = errors.New("invalid path")
	// ErrCapacityExceeded 上传批次超出剩余空间.
	ErrCapacityExceeded = errors.New("storage capacity exceeded")
	// ErrFileTooLarge 单个文件超过上限.
	ErrFileTooLarge = errors.New("file too large")
	// ErrNoFiles 上传批次为空.
	ErrNoFiles = errors.New("no files")
	// ErrNoteTooLong 笔记超过长度上限.
	ErrNoteTooLong = errors.New("note too long")
)

// ObjectStore 服务所需的对象存储操作，*s3.Objects 实现了它.
type ObjectStore interface {
	List(ctx context.Context, prefix string, recursive bool) ([]s3.ObjectInfo, error)
	Stat(ctx context.Context, key string) (s3.ObjectInfo, error)
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string, progress io.Reader) error
	Get(ctx context.Context, key string) (io.ReadCloser, s3.ObjectInfo, error)
	Remove(ctx context.Context, keys ...string) error
	PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error)
}

// Invalidator 在存储内容变化后清理响应缓存，*cache.Cache 实现了它.
type Invalidator interface {
	Clear(ctx context.Context) (int, error)
}

// FolderMarker 空文件夹占位对象名，列表中不展示.
const FolderMarker = ".keep"

// invalidNameChars 文件夹名中不允许出现的字符.
const invalidNameChars = `\/:*?"<>|`

// ValidateName 检查文件或文件夹名.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	if strings.ContainsAny(name, invalidNameChars) {
		return fmt.Errorf("%w: %q contains one of %s", ErrInvalidName, name, invalidNameChars)
	}

	return nil
}

// cleanRel 规范化相对路径：去掉前导 "/"，拒绝 "." 与 ".." 段，dir 为真时保证以 "/" 结尾.
func cleanRel(p string, dir bool) (string, error) {
	p = strings.TrimLeft(strings.ReplaceAll(p, "\\", "/"), "/")
	if p == "" {
		return "", nil
	}

	trailing := strings.HasSuffix(p, "/")

	for _, seg := range strings.Split(strings.TrimSuffix(p, "/"), "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", fmt.Errorf("%w: %q", ErrInvalidPath, p)
		}
	}

	if (dir || trailing) && !strings.HasSuffix(p, "/") {
		p += "/"
	}

	return p, nil
}

// baseName 返回对象或目录的最后一段名称.
func baseName(key string) string {
	return path.Base(strings.TrimSuffix(key, "/"))
}

// notFound 将存储层的不存在错误转换为 ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, s3.ErrObjectNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	return err
}

var (
	idMu      sync.Mutex
	idEntropy = ulid.Monotonic(rand.Reader, 0)
)

// newID 生成按时间有序的 ULID.
func newID(t time.Time) string {
	idMu.Lock()
	defer idMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(t), idEntropy).String()
}
