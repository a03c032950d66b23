// Package s3 处理S3存储操作.
package s3

import (
	"context"
	"fmt"
	"net/url"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/yeisme/drivemini/pkg/configs"
	nlog "github.com/yeisme/drivemini/pkg/log"
)

// Client 包装 MinIO 客户端，并记录所用的桶.
type Client struct {
	*minio.Client

	cfg configs.S3Config
}

// New 初始化 MinIO 客户端，配置允许时在桶不存在的情况下创建.
func New(ctx context.Context, cfg *configs.S3Config) (*Client, error) {
	c := *cfg

	endpoint := c.Endpoint
	// 允许用户传完整 schema endpoint（http:// 或 https://）
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
		if u.Scheme == "https" {
			c.UseSSL = true
		}
	}

	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(c.AccessKeyID, c.SecretAccessKey, ""),
		Secure: c.UseSSL,
		Region: c.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	cli.SetAppInfo(configs.AppName, configs.AppVersion)

	exists, err := cli.BucketExists(ctx, c.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", c.Bucket, err)
	}

	if !exists {
		if !c.CreateBucket {
			return nil, fmt.Errorf("bucket %s does not exist", c.Bucket)
		}

		if err := cli.MakeBucket(ctx, c.Bucket, minio.MakeBucketOptions{Region: c.Region}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", c.Bucket, err)
		}

		nlog.Logger().Info().Str("bucket", c.Bucket).Msg("bucket created")
	}

	nlog.Logger().Info().Str("endpoint", c.Endpoint).Str("bucket", c.Bucket).Msg("s3 connected")

	return &Client{Client: cli, cfg: c}, nil
}

// Bucket 返回客户端使用的桶名.
func (c *Client) Bucket() string {
	return c.cfg.Bucket
}

// HealthCheck 通过检查桶存在性验证连接.
func (c *Client) HealthCheck(ctx context.Context) error {
	ok, err := c.BucketExists(ctx, c.cfg.Bucket)
	if err != nil {
		return err
	}

	if !ok {
		return fmt.Errorf("bucket %s not found", c.cfg.Bucket)
	}

	return nil
}

// Close 关闭 S3 客户端连接（无实际操作，接口兼容）.
func (c *Client) Close() error {
	return nil
}

// GetConfig 返回创建客户端时的配置副本.
func (c *Client) GetConfig() configs.S3Config {
	return c.cfg
}
