package quota

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/yeisme/drivemini/pkg/log"
	"github.com/yeisme/drivemini/pkg/metrics"
	"github.com/yeisme/drivemini/pkg/tracing"
)

const (
	DefaultRootPath    = "uploads/"
	DefaultTotalBytes  = int64(5) << 30
	DefaultMaxDepth    = 2
	DefaultMaxObjects  = 100
	DefaultMaxFolders  = 20
	DefaultConcurrency = 16
)

// Limits 遍历边界.
type Limits struct {
	MaxDepth            int
	MaxObjectsPerFolder int
	MaxFoldersPerFolder int
}

// DefaultLimits 返回默认遍历边界.
func DefaultLimits() Limits {
	return Limits{
		MaxDepth:            DefaultMaxDepth,
		MaxObjectsPerFolder: DefaultMaxObjects,
		MaxFoldersPerFolder: DefaultMaxFolders,
	}
}

// Estimator 有界遍历对象存储并汇总对象大小.
type Estimator struct {
	gw          Gateway
	root        string
	total       int64
	limits      Limits
	concurrency int
	cache       *SnapshotCache
	clock       clockwork.Clock
	logger      zerolog.Logger
}

// Option 配置 Estimator.
type Option func(*Estimator)

// WithLimits 设置遍历边界.
func WithLimits(l Limits) Option { return func(e *Estimator) { e.limits = l } }

// WithRoot 设置根路径.
func WithRoot(root string) Option { return func(e *Estimator) { e.root = root } }

// WithTotalBytes 设置套餐总容量.
func WithTotalBytes(total int64) Option { return func(e *Estimator) { e.total = total } }

// WithConcurrency 设置同时进行的存储请求上限.
func WithConcurrency(n int) Option { return func(e *Estimator) { e.concurrency = n } }

// WithCache 估算成功后写入缓存.
func WithCache(c *SnapshotCache) Option { return func(e *Estimator) { e.cache = c } }

// WithClock 注入时钟.
func WithClock(c clockwork.Clock) Option { return func(e *Estimator) { e.clock = c } }

// WithLogger 注入 logger.
func WithLogger(l zerolog.Logger) Option { return func(e *Estimator) { e.logger = l } }

// NewEstimator 创建估算器.
func NewEstimator(gw Gateway, opts ...Option) *Estimator {
	e := &Estimator{
		gw:          gw,
		root:        DefaultRootPath,
		total:       DefaultTotalBytes,
		limits:      DefaultLimits(),
		concurrency: DefaultConcurrency,
		clock:       clockwork.NewRealClock(),
		logger:      log.Component("quota"),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.concurrency <= 0 {
		e.concurrency = 1
	}

	return e
}

// Root 返回估算根路径.
func (e *Estimator) Root() string { return e.root }

// TotalBytes 返回套餐总容量.
func (e *Estimator) TotalBytes() int64 { return e.total }

// walk 一次估算的共享状态.
type walk struct {
	sem   *semaphore.Weighted
	mu    sync.Mutex
	stats WalkStats
}

func (w *walk) skip(o Outcome) {
	w.mu.Lock()
	w.stats.Skipped++
	w.stats.Skips = append(w.stats.Skips, o)
	w.mu.Unlock()

	metrics.EstimateSkipped.WithLabelValues(string(o.Reason)).Inc()
}

func (w *walk) count(folders, objects, truncObjects, truncFolders int) {
	w.mu.Lock()
	w.stats.Folders += folders
	w.stats.Objects += objects
	w.stats.TruncatedObjects += truncObjects
	w.stats.TruncatedFolders += truncFolders
	w.mu.Unlock()
}

// Estimate 执行一次完整遍历（不读缓存）.
func (e *Estimator) Estimate(ctx context.Context) (UsageSnapshot, error) {
	ctx, span := tracing.StartSpan(ctx, "quota.Estimate",
		trace.WithAttributes(attribute.String("root", e.root)))
	defer span.End()

	start := e.clock.Now()
	w := &walk{sem: semaphore.NewWeighted(int64(e.concurrency))}

	used, err := e.walkNode(ctx, w, e.root, e.limits.MaxDepth, true)

	metrics.EstimateDuration.Observe(e.clock.Since(start).Seconds())

	if err != nil {
		tracing.RecordError(span, err)
		e.logger.Error().Err(err).Str("root", e.root).Msg("usage estimation failed")

		return UsageSnapshot{}, err
	}

	snap := NewSnapshot(used, e.total, e.clock.Now())
	snap.Stats = w.stats

	span.SetAttributes(
		attribute.Int64("used_bytes", snap.UsedBytes),
		attribute.Int("objects", snap.Stats.Objects),
		attribute.Int("skipped", snap.Stats.Skipped),
	)
	metrics.UsagePercent.Set(snap.PercentUsed)

	if e.cache != nil {
		e.cache.put(snap)
	}

	return snap, nil
}

// walkNode 统计 path 下的对象并在 depth>0 时递归子目录，返回该子树的字节数.
func (e *Estimator) walkNode(ctx context.Context, w *walk, path string, depth int, isRoot bool) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "quota.walkNode",
		trace.WithAttributes(attribute.String("path", path), attribute.Int("depth_remaining", depth)))
	defer span.End()

	listing, err := e.list(ctx, w, path)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			listing = Listing{}
		case ctx.Err() != nil:
			return 0, ctx.Err()
		case isRoot:
			tracing.RecordError(span, err)
			return 0, fmt.Errorf("%w: %s: %w", ErrRootListing, path, err)
		default:
			e.logger.Warn().Err(err).Str("path", path).Str("reason", string(ReasonListing)).Msg("folder skipped")
			w.skip(Outcome{Kind: OutcomeSkipped, Path: path, Reason: ReasonListing, Err: err.Error()})

			return 0, nil
		}
	}

	objects := listing.Objects
	truncObjects := 0

	if n := e.limits.MaxObjectsPerFolder; len(objects) > n {
		truncObjects = len(objects) - n
		objects = objects[:n]
	}

	var folders []FolderRef

	truncFolders := 0

	if depth > 0 {
		folders = listing.Folders
		if n := e.limits.MaxFoldersPerFolder; len(folders) > n {
			truncFolders = len(folders) - n
			folders = folders[:n]
		}
	}

	var (
		total   atomic.Int64
		counted atomic.Int64
	)

	g, gctx := errgroup.WithContext(ctx)

	for _, obj := range objects {
		g.Go(func() error {
			meta, err := e.stat(gctx, w, obj.Path)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}

				e.logger.Warn().Err(err).Str("path", obj.Path).Str("reason", string(ReasonMetadata)).Msg("object skipped")
				w.skip(Outcome{Kind: OutcomeSkipped, Path: obj.Path, Reason: ReasonMetadata, Err: err.Error()})

				return nil
			}

			total.Add(max(meta.SizeBytes, 0))
			counted.Add(1)

			return nil
		})
	}

	for _, f := range folders {
		g.Go(func() error {
			sub, err := e.walkNode(gctx, w, f.Path, depth-1, false)
			if err != nil {
				return err
			}

			total.Add(sub)

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}

	w.count(1, int(counted.Load()), truncObjects, truncFolders)

	return total.Load(), nil
}

func (e *Estimator) list(ctx context.Context, w *walk, path string) (Listing, error) {
	if err := w.sem.Acquire(ctx, 1); err != nil {
		return Listing{}, err
	}
	defer w.sem.Release(1)

	return e.gw.ListChildren(ctx, path)
}

func (e *Estimator) stat(ctx context.Context, w *walk, path string) (ObjectMeta, error) {
	if err := w.sem.Acquire(ctx, 1); err != nil {
		return ObjectMeta{}, err
	}
	defer w.sem.Release(1)

	return e.gw.GetMetadata(ctx, path)
}
