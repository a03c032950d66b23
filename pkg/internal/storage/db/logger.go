package db

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// slowQueryThreshold 超过该耗时的 SQL 记为 warn.
const slowQueryThreshold = 200 * time.Millisecond

// gormLogger 把 gorm 日志写入 zerolog.
type gormLogger struct {
	zl    zerolog.Logger
	level logger.LogLevel
}

func newGormLogger(zl zerolog.Logger) logger.Interface {
	return &gormLogger{zl: zl, level: logger.Warn}
}

func (l *gormLogger) LogMode(level logger.LogLevel) logger.Interface {
	cp := *l
	cp.level = level

	return &cp
}

func (l *gormLogger) Info(_ context.Context, msg string, args ...any) {
	if l.level >= logger.Info {
		l.zl.Info().Msgf(msg, args...)
	}
}

func (l *gormLogger) Warn(_ context.Context, msg string, args ...any) {
	if l.level >= logger.Warn {
		l.zl.Warn().Msgf(msg, args...)
	}
}

func (l *gormLogger) Error(_ context.Context, msg string, args ...any) {
	if l.level >= logger.Error {
		l.zl.Error().Msgf(msg, args...)
	}
}

// Trace 记录失败与慢查询，Info 级别时记录全部 SQL.
func (l *gormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)

	var ev *zerolog.Event

	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= logger.Error:
		ev = l.zl.Error().Err(err)
	case elapsed > slowQueryThreshold && l.level >= logger.Warn:
		ev = l.zl.Warn().Bool("slow", true)
	case l.level >= logger.Info:
		ev = l.zl.Debug()
	default:
		return
	}

	sql, rows := fc()
	ev.Dur("elapsed", elapsed).Int64("rows", rows).Str("sql", sql).Msg("gorm")
}
