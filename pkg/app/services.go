package app

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"

	appcache "github.com/yeisme/drivemini/pkg/cache"
	"github.com/yeisme/drivemini/pkg/configs"
	"github.com/yeisme/drivemini/pkg/internal/gateway"
	"github.com/yeisme/drivemini/pkg/internal/handle"
	"github.com/yeisme/drivemini/pkg/internal/quota"
	"github.com/yeisme/drivemini/pkg/internal/service"
	"github.com/yeisme/drivemini/pkg/internal/storage"
	"github.com/yeisme/drivemini/pkg/queue"
)

// ResponseCachePrefix 列表响应缓存在 KV 中的前缀.
const ResponseCachePrefix = "rc/"

// Services 聚合所有业务服务，HTTP 与命令行共用.
type Services struct {
	Usage   *service.UsageService
	Files   *service.FileService
	Uploads *service.UploadService
	Search  *service.SearchService
	Note    *service.NoteService

	ResponseCache *appcache.Cache
}

// NewUsage 只组装用量估算链路：minio 网关、熔断、指标、快照缓存与历史.
func NewUsage(ctx context.Context, cfg *configs.AppConfig, mgr *storage.Manager, events *queue.Emitter) (*service.UsageService, error) {
	gw := gateway.Instrumented(gateway.WithBreaker(gateway.NewMinio(mgr.S3.Client, mgr.S3.Bucket()), cfg.CircuitBreaker))

	q := cfg.Quota
	snaps := quota.NewSnapshotCache(q.CacheTTL, nil)
	est := quota.NewEstimator(gw,
		quota.WithRoot(q.RootPath),
		quota.WithTotalBytes(q.TotalBytes),
		quota.WithConcurrency(q.Concurrency),
		quota.WithLimits(quota.Limits{
			MaxDepth:            q.MaxDepth,
			MaxObjectsPerFolder: q.MaxObjectsPerFolder,
			MaxFoldersPerFolder: q.MaxFoldersPerFolder,
		}),
		quota.WithCache(snaps),
	)

	var history *service.UsageHistory
	if mgr.DB != nil {
		history = service.NewUsageHistory(mgr.DB.GetDB())
		if err := history.Migrate(ctx); err != nil {
			return nil, fmt.Errorf("migrate usage history: %w", err)
		}
	}

	return service.NewUsageService(est, snaps, history, events), nil
}

// NewServices 基于已初始化的存储组装全部服务.
func NewServices(ctx context.Context, cfg *configs.AppConfig, mgr *storage.Manager) (*Services, error) {
	var (
		pub queue.Publisher
		sub service.Subscriber
	)

	if mgr.MQ != nil {
		pub, sub = mgr.MQ, mgr.MQ
	}

	events := queue.NewEmitter(pub, cfg.Events)

	usage, err := NewUsage(ctx, cfg, mgr, events)
	if err != nil {
		return nil, err
	}

	clock := clockwork.NewRealClock()
	objects := mgr.S3.Objects()
	bucket := mgr.S3.Bucket()
	root := cfg.Quota.RootPath
	rc := appcache.NewCache(mgr.KV, appcache.WithPrefix(ResponseCachePrefix))

	return &Services{
		Usage: usage,
		Files: service.NewFileService(objects, root, bucket,
			service.WithEvents(events),
			service.WithInvalidator(rc),
			service.WithClock(clock),
		),
		Uploads: service.NewUploadService(service.UploadDeps{
			Store:      objects,
			KV:         mgr.KV,
			Capacity:   usage,
			Events:     events,
			Invalidate: rc,
			Clock:      clock,
		}, cfg.Upload, root, bucket),
		Search:        service.NewSearchService(objects, mgr.KV, root, cfg.Search, clock),
		Note:          service.NewNoteService(mgr.KV, events, sub, cfg.Note, clock),
		ResponseCache: rc,
	}, nil
}

// Handlers 把服务转换为 HTTP 处理器集合.
func (s *Services) Handlers() *handle.Handlers {
	return &handle.Handlers{
		Usage:   s.Usage,
		Files:   s.Files,
		Uploads: s.Uploads,
		Search:  s.Search,
		Note:    s.Note,
	}
}
