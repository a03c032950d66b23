// Package storage 聚合对象存储、数据库、KV 与消息队列客户端.
//
// Example:
//
// 初始化
//
//	ctx := context.Background()
//	mgr, err := storage.Init(ctx)
//	if err != nil {
//	    // 处理错误
//	}
//	defer mgr.Close()
//
// 未启用的组件字段为 nil
//
//	objects := mgr.S3.Objects()
//	ok, _ := mgr.KV.Exists(ctx, "health/ping")
package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/yeisme/drivemini/pkg/configs"
	dbc "github.com/yeisme/drivemini/pkg/internal/storage/db"
	kvc "github.com/yeisme/drivemini/pkg/internal/storage/kv"
	mqc "github.com/yeisme/drivemini/pkg/internal/storage/mq"
	s3c "github.com/yeisme/drivemini/pkg/internal/storage/s3"
	nlog "github.com/yeisme/drivemini/pkg/log"
)

// Manager 聚合所有存储资源，DB 未启用时为 nil.
type Manager struct {
	S3 *s3c.Client
	DB *dbc.Client
	KV *kvc.Client
	MQ *mqc.Client
}

var (
	mgr     *Manager
	mgrErr  error
	mgrOnce sync.Once
)

// Init 使用全局配置初始化默认存储，重复调用只返回已初始化实例.
func Init(ctx context.Context) (*Manager, error) {
	mgrOnce.Do(func() {
		mgr, mgrErr = New(ctx, configs.GetConfig())
	})

	return mgr, mgrErr
}

// New 按配置创建 Manager，任一组件失败时关闭已创建的组件.
func New(ctx context.Context, cfg configs.AppConfig) (*Manager, error) {
	m := &Manager{}

	kvi, err := kvc.NewKVClient(ctx, cfg.KV)
	if err != nil {
		return nil, fmt.Errorf("init kv: %w", err)
	}

	m.KV = kvi

	mqi, err := mqc.New(ctx, &cfg.MQ)
	if err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("init mq: %w", err)
	}

	m.MQ = mqi

	if cfg.DB.Enabled {
		dbi, err := dbc.New(ctx, &cfg.DB)
		if err != nil {
			_ = m.Close()
			return nil, fmt.Errorf("init db: %w", err)
		}

		m.DB = dbi
	}

	s3i, err := s3c.New(ctx, &cfg.S3)
	if err != nil {
		_ = m.Close()
		return nil, fmt.Errorf("init s3: %w", err)
	}

	m.S3 = s3i

	nlog.Logger().Info().
		Str("kv", string(m.KV.Type)).
		Str("mq", string(m.MQ.Type)).
		Bool("db", m.DB != nil).
		Str("bucket", m.S3.Bucket()).
		Msg("storage manager initialized")

	return m, nil
}

// Close 关闭全部已初始化的客户端.
func (m *Manager) Close() error {
	if m == nil {
		return nil
	}

	var errs []error

	if m.MQ != nil {
		errs = append(errs, m.MQ.Close())
	}

	if m.KV != nil {
		errs = append(errs, m.KV.Close())
	}

	if m.DB != nil {
		errs = append(errs, m.DB.Close())
	}

	if m.S3 != nil {
		errs = append(errs, m.S3.Close())
	}

	return errors.Join(errs...)
}
