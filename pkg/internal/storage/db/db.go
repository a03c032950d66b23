// Package db 打开用量历史所用的关系数据库，方言通过工厂注册.
package db

import (
	"context"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"gorm.io/gorm"
	gormPrometheus "gorm.io/plugin/prometheus"

	"github.com/yeisme/drivemini/pkg/configs"
	nlog "github.com/yeisme/drivemini/pkg/log"
)

// DialectorFactory 由 DSN 创建 gorm 方言.
type DialectorFactory func(dsn string) gorm.Dialector

var (
	dialectorFactories = map[configs.DBType]DialectorFactory{}
	openMu             sync.Mutex
)

// RegisterDialectorFactory 注册数据库方言.
func RegisterDialectorFactory(dbType configs.DBType, factory DialectorFactory) {
	dialectorFactories[dbType] = factory
}

// GetRegisteredDBTypes 返回已注册的数据库类型，按名称排序.
func GetRegisteredDBTypes() []configs.DBType {
	return slices.Sorted(maps.Keys(dialectorFactories))
}

// Client 包装 GORM DB 客户端.
type Client struct {
	*gorm.DB
}

// metricsRefreshSeconds gorm 连接池指标刷新周期.
const metricsRefreshSeconds = 15

// New 打开数据库、配置连接池并 Ping 一次.
func New(ctx context.Context, cfg *configs.DBConfig) (*Client, error) {
	openMu.Lock()
	defer openMu.Unlock()

	factory, ok := dialectorFactories[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}

	if cfg.Type == configs.SQLite {
		if err := ensureDir(cfg.Database); err != nil {
			return nil, err
		}
	}

	gdb, err := gorm.Open(factory(cfg.GetDSN()), &gorm.Config{
		Logger:      newGormLogger(nlog.Component("db")),
		PrepareStmt: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.GetDBType(), err)
	}

	client := &Client{DB: gdb}

	if err := client.configurePool(ctx, cfg); err != nil {
		_ = client.Close()
		return nil, err
	}

	if configs.GetConfig().Metrics.Enabled {
		if err := client.RegisterGORMMetrics(cfg.Database); err != nil {
			_ = client.Close()
			return nil, err
		}
	}

	nlog.Component("db").Info().
		Str("type", cfg.GetDBType()).
		Str("database", cfg.Database).
		Msg("database connected")

	return client, nil
}

// ensureDir 为 SQLite 文件创建父目录.
func ensureDir(database string) error {
	dir := filepath.Dir(database)
	if dir == "." || dir == "" {
		return nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create sqlite dir: %w", err)
	}

	return nil
}

func (c *Client) configurePool(ctx context.Context, cfg *configs.DBConfig) error {
	sqlDB, err := c.DB.DB()
	if err != nil {
		return fmt.Errorf("underlying sql.DB: %w", err)
	}

	// SQLite 只允许单写者
	if cfg.Type == configs.SQLite {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	return nil
}

// HealthCheck 通过 Ping 检查数据库连通性.
func (c *Client) HealthCheck(ctx context.Context) error {
	sqlDB, err := c.DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.PingContext(ctx)
}

// Close 关闭底层连接池.
func (c *Client) Close() error {
	sqlDB, err := c.DB.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}

// GetDB 返回 GORM DB 实例.
func (c *Client) GetDB() *gorm.DB {
	return c.DB
}

// RegisterGORMMetrics 注册 gorm prometheus 插件，不单独起端口.
func (c *Client) RegisterGORMMetrics(dbName string) error {
	err := c.Use(gormPrometheus.New(gormPrometheus.Config{
		DBName:          dbName,
		RefreshInterval: metricsRefreshSeconds,
		StartServer:     false,
	}))
	if err != nil {
		return fmt.Errorf("register gorm metrics: %w", err)
	}

	return nil
}
