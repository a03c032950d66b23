// Package scheduler 包装 gocron/v2，记录每个任务最近一次执行的结果供接口展示.
package scheduler

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog"

	"github.com/yeisme/drivemini/pkg/log"
)

// ErrJobNotFound 任务名未注册.
var ErrJobNotFound = errors.New("job not found")

// JobStatus 任务状态.
type JobStatus string

const (
	StatusScheduled JobStatus = "scheduled"
	StatusRunning   JobStatus = "running"
	// StatusError 最近一次执行失败，下次成功后恢复为 scheduled
	StatusError JobStatus = "error"
)

// JobFunc 任务函数，返回的错误记入 JobInfo.Error.
type JobFunc func(ctx context.Context) error

// JobInfo 任务的调度与执行情况.
type JobInfo struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	CronExpr     string        `json:"cron_expr"`
	NextRun      time.Time     `json:"next_run"`
	LastRun      time.Time     `json:"last_run"`
	LastSuccess  time.Time     `json:"last_success,omitempty"`
	LastDuration time.Duration `json:"last_duration"`
	Runs         int           `json:"runs"`
	Status       JobStatus     `json:"status"`
	Error        string        `json:"error,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
}

type entry struct {
	job  gocron.Job
	info JobInfo
}

// Scheduler 按名称管理 cron 任务.
type Scheduler struct {
	cron    gocron.Scheduler
	mu      sync.RWMutex
	entries map[string]*entry
	logger  zerolog.Logger
}

// NewScheduler 创建调度器，需调用 Start 后任务才会执行.
func NewScheduler() (*Scheduler, error) {
	cron, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("create gocron scheduler: %w", err)
	}

	return &Scheduler{
		cron:    cron,
		entries: map[string]*entry{},
		logger:  log.Component("scheduler"),
	}, nil
}

// AddCron 按 5 段 cron 表达式注册任务，同名任务只能注册一次，同一任务不会重叠执行.
func (s *Scheduler) AddCron(ctx context.Context, name, expr string, fn JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[name]; ok {
		return fmt.Errorf("job %q already registered", name)
	}

	job, err := s.cron.NewJob(
		gocron.CronJob(expr, false),
		gocron.NewTask(s.wrap(ctx, name, fn)),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("job %q: %w", name, err)
	}

	e := &entry{job: job, info: JobInfo{
		ID:        job.ID().String(),
		Name:      name,
		CronExpr:  expr,
		Status:    StatusScheduled,
		CreatedAt: time.Now(),
	}}
	e.info.NextRun, _ = job.NextRun()
	s.entries[name] = e

	s.logger.Info().Str("job", name).Str("cron", expr).Msg("job registered")

	return nil
}

// wrap 返回交给 gocron 的任务体，负责状态记录与 panic 恢复.
func (s *Scheduler) wrap(ctx context.Context, name string, fn JobFunc) func() {
	return func() {
		s.update(name, func(info *JobInfo) { info.Status = StatusRunning })

		start := time.Now()
		err := safeCall(ctx, fn)
		took := time.Since(start)

		s.update(name, func(info *JobInfo) {
			info.LastRun = start
			info.LastDuration = took
			info.Runs++

			if err != nil {
				info.Status, info.Error = StatusError, err.Error()
				return
			}

			info.Status, info.Error, info.LastSuccess = StatusScheduled, "", start
		})

		if err != nil {
			s.logger.Error().Err(err).Str("job", name).Dur("took", took).Msg("job failed")
		}
	}
}

func safeCall(ctx context.Context, fn JobFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in job: %v", r)
		}
	}()

	return fn(ctx)
}

func (s *Scheduler) update(name string, f func(*JobInfo)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[name]
	if !ok {
		return
	}

	f(&e.info)

	if next, err := e.job.NextRun(); err == nil {
		e.info.NextRun = next
	}
}

func (s *Scheduler) lookup(name string) (*entry, error) {
	e, ok := s.entries[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}

	return e, nil
}

// RunNow 立即异步执行一次，不改变原有调度.
func (s *Scheduler) RunNow(name string) error {
	s.mu.RLock()
	e, err := s.lookup(name)
	s.mu.RUnlock()

	if err != nil {
		return err
	}

	return e.job.RunNow()
}

// RemoveJobByName 注销任务.
func (s *Scheduler) RemoveJobByName(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.lookup(name)
	if err != nil {
		return err
	}

	if err := s.cron.RemoveJob(e.job.ID()); err != nil {
		return fmt.Errorf("remove job %q: %w", name, err)
	}

	delete(s.entries, name)

	return nil
}

// GetJobInfoByName 返回任务信息的副本.
func (s *Scheduler) GetJobInfoByName(name string) (JobInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, err := s.lookup(name)
	if err != nil {
		return JobInfo{}, err
	}

	return e.info, nil
}

// GetJobInfos 返回全部任务信息，按名称排序.
func (s *Scheduler) GetJobInfos() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]JobInfo, 0, len(s.entries))
	for _, e := range s.entries {
		infos = append(infos, e.info)
	}

	slices.SortFunc(infos, func(a, b JobInfo) int { return cmp.Compare(a.Name, b.Name) })

	return infos
}

// Start 开始调度.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Shutdown 停止调度并等待执行中的任务结束.
func (s *Scheduler) Shutdown() error {
	return s.cron.Shutdown()
}
