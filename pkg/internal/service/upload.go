package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/bytedance/sonic"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/yeisme/drivemini/pkg/configs"
	"github.com/yeisme/drivemini/pkg/internal/quota"
	"github.com/yeisme/drivemini/pkg/internal/storage/kv"
	"github.com/yeisme/drivemini/pkg/internal/types"
	"github.com/yeisme/drivemini/pkg/log"
	"github.com/yeisme/drivemini/pkg/metrics"
	"github.com/yeisme/drivemini/pkg/queue"
)

const (
	// uploadTaskPrefix 上传任务在 KV 中的键前缀.
	uploadTaskPrefix = "upload/"
	// progressStep 上传中每发送这么多字节持久化一次进度.
	progressStep = 256 << 10
)

// CapacityChecker 上传前容量检查，*UsageService 实现了它.
type CapacityChecker interface {
	Validate(ctx context.Context, sizes []int64) quota.Decision
}

// CapacityError 批次被容量检查拒绝.
type CapacityError struct {
	Decision quota.Decision
}

func (e *CapacityError) Error() string { return e.Decision.Message }

func (e *CapacityError) Is(target error) bool { return target == ErrCapacityExceeded }

// UploadFile 一个待上传文件，Open 每次返回新的读取流.
type UploadFile struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

// UploadService 批量上传：容量检查、必要时压缩、并行写入对象存储并在 KV 中记录进度.
type UploadService struct {
	store      ObjectStore
	kv         kv.KVStore
	capacity   CapacityChecker
	events     *queue.Emitter
	invalidate Invalidator
	cfg        configs.UploadConfig
	root       string
	bucket     string
	clock      clockwork.Clock
	logger     zerolog.Logger
}

// UploadDeps UploadService 的依赖.
type UploadDeps struct {
	Store      ObjectStore
	KV         kv.KVStore
	Capacity   CapacityChecker
	Events     *queue.Emitter
	Invalidate Invalidator
	Clock      clockwork.Clock
}

// NewUploadService 创建上传服务.
func NewUploadService(deps UploadDeps, cfg configs.UploadConfig, root, bucket string) *UploadService {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}

	if cfg.Concurrency <= 0 {
		cfg.Concurrency = configs.DefaultUploadConcurrency
	}

	if cfg.MaxFileBytes <= 0 {
		cfg.MaxFileBytes = configs.DefaultUploadMaxFileBytes
	}

	if cfg.TaskTTL <= 0 {
		cfg.TaskTTL = configs.DefaultUploadTaskTTL
	}

	return &UploadService{
		store:      deps.Store,
		kv:         deps.KV,
		capacity:   deps.Capacity,
		events:     deps.Events,
		invalidate: deps.Invalidate,
		cfg:        cfg,
		root:       root,
		bucket:     bucket,
		clock:      deps.Clock,
		logger:     log.Component("upload"),
	}
}

// uploadRun 一次批量上传的共享状态.
type uploadRun struct {
	mu   sync.Mutex
	task types.UploadTask
}

// Upload 上传一批文件到 dir，全部结束后返回任务最终状态.
// 容量检查拒绝时整批不传输，返回 *CapacityError.
func (s *UploadService) Upload(ctx context.Context, dir string, files []UploadFile) (*types.UploadTask, error) {
	if len(files) == 0 {
		return nil, ErrNoFiles
	}

	rel, err := cleanRel(dir, true)
	if err != nil {
		return nil, err
	}

	sizes := make([]int64, 0, len(files))

	for _, f := range files {
		if err := ValidateName(f.Name); err != nil {
			return nil, err
		}

		if f.Size > s.cfg.MaxFileBytes {
			return nil, fmt.Errorf("%w: %s is %d bytes, limit %d", ErrFileTooLarge, f.Name, f.Size, s.cfg.MaxFileBytes)
		}

		sizes = append(sizes, f.Size)
	}

	decision := quota.ValidateUpload(sizes, nil)
	if s.capacity != nil {
		decision = s.capacity.Validate(ctx, sizes)
	}

	if !decision.Allowed {
		metrics.UploadFiles.WithLabelValues("rejected").Add(float64(len(files)))
		s.logger.Warn().Str("path", rel).Int("files", len(files)).Msg(decision.Message)

		return nil, &CapacityError{Decision: decision}
	}

	now := s.clock.Now().UTC()
	run := &uploadRun{task: types.UploadTask{
		ID:        newID(now),
		Path:      rel,
		Decision:  decision,
		CreatedAt: now,
		UpdatedAt: now,
	}}

	for _, f := range files {
		run.task.Files = append(run.task.Files, types.UploadFileStatus{
			Name:       f.Name,
			StoredName: f.Name,
			Path:       rel + f.Name,
			Size:       f.Size,
			State:      types.UploadPending,
		})
	}

	s.save(ctx, run)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)

	for i, f := range files {
		g.Go(func() error {
			s.uploadOne(gctx, run, i, f)
			return nil
		})
	}

	_ = g.Wait()

	run.mu.Lock()
	run.task.Done = true
	run.task.UpdatedAt = s.clock.Now().UTC()
	run.mu.Unlock()

	s.save(ctx, run)

	if s.invalidate != nil {
		if _, err := s.invalidate.Clear(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("invalidate response cache failed")
		}
	}

	task := run.snapshot()

	return &task, nil
}

// Task 读取上传任务状态.
func (s *UploadService) Task(ctx context.Context, id string) (*types.UploadTask, error) {
	data, err := s.kv.Get(ctx, uploadTaskPrefix+id)
	if err != nil {
		if errors.Is(err, kv.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: upload task %s", ErrNotFound, id)
		}

		return nil, err
	}

	var task types.UploadTask
	if err := sonic.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("decode upload task %s: %w", id, err)
	}

	return &task, nil
}

// uploadOne 按 pending → zipping? → uploading → done | error 处理单个文件.
func (s *UploadService) uploadOne(ctx context.Context, run *uploadRun, i int, f UploadFile) {
	rc, err := f.Open()
	if err != nil {
		s.fail(ctx, run, i, fmt.Errorf("open: %w", err))
		return
	}
	defer rc.Close()

	var (
		body   io.Reader = rc
		size             = f.Size
		stored           = f.Name
		zipped           bool
	)

	if NeedsZip(f.Name) {
		s.update(ctx, run, i, func(st *types.UploadFileStatus) { st.State = types.UploadZipping })

		buf, err := zipFile(f.Name, rc, s.clock.Now())
		if err != nil {
			s.fail(ctx, run, i, err)
			return
		}

		body, size, stored, zipped = buf, int64(buf.Len()), f.Name+".zip", true
	}

	key := s.root + run.task.Path + stored

	s.update(ctx, run, i, func(st *types.UploadFileStatus) {
		st.State = types.UploadUploading
		st.StoredName = stored
		st.Path = run.task.Path + stored
		st.Zipped = zipped
		st.Size = size
	})

	progress := &progressReader{report: func(n int64) {
		s.update(ctx, run, i, func(st *types.UploadFileStatus) { st.BytesUploaded = n })
	}}

	if err := s.store.Put(ctx, key, body, size, contentType(stored), progress); err != nil {
		s.fail(ctx, run, i, err)
		return
	}

	s.update(ctx, run, i, func(st *types.UploadFileStatus) {
		st.State = types.UploadDone
		st.BytesUploaded = progress.n.Load()
	})

	metrics.UploadFiles.WithLabelValues("done").Inc()
	metrics.UploadBytes.Add(float64(size))

	if err := s.events.ObjectStored(ctx, queue.ObjectStoredPayload{
		Object:   queue.ObjectRef{Bucket: s.bucket, ObjectKey: key, Size: size, ContentType: contentType(stored)},
		FileName: f.Name,
		TaskID:   run.task.ID,
		Zipped:   zipped,
	}); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("publish object stored failed")
	}
}

func (s *UploadService) fail(ctx context.Context, run *uploadRun, i int, err error) {
	metrics.UploadFiles.WithLabelValues("error").Inc()
	s.logger.Error().Err(err).Str("task", run.task.ID).Str("file", run.task.Files[i].Name).Msg("upload failed")

	s.update(ctx, run, i, func(st *types.UploadFileStatus) {
		st.State = types.UploadError
		st.Error = err.Error()
	})
}

// update 修改第 i 个文件的状态并持久化.
func (s *UploadService) update(ctx context.Context, run *uploadRun, i int, fn func(*types.UploadFileStatus)) {
	run.mu.Lock()
	fn(&run.task.Files[i])
	run.task.UpdatedAt = s.clock.Now().UTC()
	run.mu.Unlock()

	s.save(ctx, run)
}

// save 写入 KV，失败只记日志.
func (s *UploadService) save(ctx context.Context, run *uploadRun) {
	if s.kv == nil {
		return
	}

	task := run.snapshot()

	data, err := sonic.Marshal(task)
	if err != nil {
		s.logger.Warn().Err(err).Str("task", task.ID).Msg("encode upload task failed")
		return
	}

	if err := s.kv.Set(context.WithoutCancel(ctx), uploadTaskPrefix+task.ID, data, s.cfg.TaskTTL); err != nil {
		s.logger.Warn().Err(err).Str("task", task.ID).Msg("save upload task failed")
	}
}

func (r *uploadRun) snapshot() types.UploadTask {
	r.mu.Lock()
	defer r.mu.Unlock()

	t := r.task
	t.Files = append([]types.UploadFileStatus(nil), r.task.Files...)

	return t
}

// progressReader 作为 minio 的 Progress 读取端统计已发送字节，
// 每跨过 progressStep 调用一次 report.
type progressReader struct {
	n        atomic.Int64
	reported int64
	report   func(n int64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n := p.n.Add(int64(len(b)))

	if p.report != nil && n-p.reported >= progressStep {
		p.reported = n
		p.report(n)
	}

	return len(b), nil
}
