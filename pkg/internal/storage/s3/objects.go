package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	minio "github.com/minio/minio-go/v7"
)

// ErrObjectNotFound 对象不存在.
var ErrObjectNotFound = errors.New("s3: object not found")

// ObjectInfo 对象或目录（公共前缀）的摘要.
type ObjectInfo struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
	ContentType  string    `json:"content_type,omitempty"`
	ETag         string    `json:"etag,omitempty"`
	IsDir        bool      `json:"is_dir"`
}

// Objects 以业务视角封装桶内对象操作.
type Objects struct {
	c *Client
}

// Objects 返回绑定到配置桶的对象操作.
func (c *Client) Objects() *Objects {
	return &Objects{c: c}
}

// List 列举前缀下的对象，非递归时公共前缀以 IsDir 返回.
func (o *Objects) List(ctx context.Context, prefix string, recursive bool) ([]ObjectInfo, error) {
	var out []ObjectInfo

	for obj := range o.c.ListObjects(ctx, o.c.Bucket(), minio.ListObjectsOptions{Prefix: prefix, Recursive: recursive}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("list %s: %w", prefix, mapErr(obj.Err))
		}

		if obj.Key == prefix {
			continue
		}

		out = append(out, ObjectInfo{
			Key:          obj.Key,
			Size:         obj.Size,
			LastModified: obj.LastModified,
			ContentType:  obj.ContentType,
			ETag:         obj.ETag,
			IsDir:        strings.HasSuffix(obj.Key, "/"),
		})
	}

	return out, nil
}

// Stat 获取对象元数据.
func (o *Objects) Stat(ctx context.Context, key string) (ObjectInfo, error) {
	info, err := o.c.StatObject(ctx, o.c.Bucket(), key, minio.StatObjectOptions{})
	if err != nil {
		return ObjectInfo{}, fmt.Errorf("stat %s: %w", key, mapErr(err))
	}

	return ObjectInfo{
		Key:          info.Key,
		Size:         info.Size,
		LastModified: info.LastModified,
		ContentType:  info.ContentType,
		ETag:         info.ETag,
	}, nil
}

// Put 上传对象，progress 非 nil 时 minio 会按已发送字节数从中读取.
func (o *Objects) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string, progress io.Reader) error {
	_, err := o.c.PutObject(ctx, o.c.Bucket(), key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
		Progress:    progress,
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}

	return nil
}

// Get 打开对象读取流，调用方负责关闭.
func (o *Objects) Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	info, err := o.Stat(ctx, key)
	if err != nil {
		return nil, ObjectInfo{}, err
	}

	obj, err := o.c.GetObject(ctx, o.c.Bucket(), key, minio.GetObjectOptions{})
	if err != nil {
		return nil, ObjectInfo{}, fmt.Errorf("get %s: %w", key, mapErr(err))
	}

	return obj, info, nil
}

// Remove 删除若干对象，任一失败即返回.
func (o *Objects) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	ch := make(chan minio.ObjectInfo, len(keys))
	for _, k := range keys {
		ch <- minio.ObjectInfo{Key: k}
	}

	close(ch)

	for e := range o.c.RemoveObjects(ctx, o.c.Bucket(), ch, minio.RemoveObjectsOptions{}) {
		if e.Err != nil {
			return fmt.Errorf("remove %s: %w", e.ObjectName, e.Err)
		}
	}

	return nil
}

// PresignGet 生成限时下载链接.
func (o *Objects) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	u, err := o.c.PresignedGetObject(ctx, o.c.Bucket(), key, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", key, err)
	}

	return u.String(), nil
}

func mapErr(err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %w", ErrObjectNotFound, err)
	}

	return err
}
