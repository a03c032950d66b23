// Package gateway 把对象存储适配为 quota.Gateway，并提供熔断与指标装饰器.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	minio "github.com/minio/minio-go/v7"

	"github.com/yeisme/drivemini/pkg/internal/quota"
)

// Minio 基于 minio-go 的 Gateway，按前缀非递归列举.
type Minio struct {
	cli    *minio.Client
	bucket string
}

var _ quota.Gateway = (*Minio)(nil)

// NewMinio 创建 Minio 网关.
func NewMinio(cli *minio.Client, bucket string) *Minio {
	return &Minio{cli: cli, bucket: bucket}
}

// ListChildren 列举 path 的直接子项，公共前缀视为目录.
func (m *Minio) ListChildren(ctx context.Context, path string) (quota.Listing, error) {
	var l quota.Listing

	for obj := range m.cli.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{Prefix: path, Recursive: false}) {
		if obj.Err != nil {
			return quota.Listing{}, fmt.Errorf("list %s: %w", path, mapErr(obj.Err))
		}

		if obj.Key == path {
			continue
		}

		name := strings.TrimPrefix(obj.Key, path)
		if strings.HasSuffix(obj.Key, "/") {
			l.Folders = append(l.Folders, quota.FolderRef{Name: strings.TrimSuffix(name, "/"), Path: obj.Key})
			continue
		}

		l.Objects = append(l.Objects, quota.ObjectRef{Name: name, Path: obj.Key})
	}

	return l, nil
}

// GetMetadata 通过 StatObject 取对象大小与修改时间.
func (m *Minio) GetMetadata(ctx context.Context, path string) (quota.ObjectMeta, error) {
	info, err := m.cli.StatObject(ctx, m.bucket, path, minio.StatObjectOptions{})
	if err != nil {
		return quota.ObjectMeta{}, fmt.Errorf("stat %s: %w", path, mapErr(err))
	}

	return quota.ObjectMeta{SizeBytes: info.Size, LastModified: info.LastModified}, nil
}

// mapErr 把不存在类错误转换为 quota.ErrNotFound.
func mapErr(err error) error {
	resp := minio.ToErrorResponse(err)

	switch {
	case resp.Code == "NoSuchKey", resp.Code == "NoSuchBucket", resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %w", quota.ErrNotFound, err)
	default:
		return err
	}
}
