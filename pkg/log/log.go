// Package log 提供基于 zerolog 的日志工具，支持 stderr 控制台输出和文件输出（lumberjack 轮转）.
package log

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/natefinch/lumberjack"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"

	"github.com/yeisme/drivemini/pkg/configs"
)

var (
	logger   zerolog.Logger
	initOnce sync.Once
)

// Init 初始化全局 logger.
func Init() {
	initOnce.Do(initLogger)
}

func initLogger() {
	cfg := configs.GetConfig()
	logger = New(cfg.Log, cfg.Server.Debug)
	log.Logger = logger

	if cfg.Server.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
}

// New 根据日志配置构建 logger，不修改全局状态.
func New(logCfg configs.LogConfig, debug bool) zerolog.Logger {
	level := strings.ToLower(logCfg.Level)
	if level == "" {
		level = configs.DefaultLogLevel
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid log level %q, defaulting to info\n", logCfg.Level)

		lvl = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(lvl)

	var console io.Writer = os.Stderr
	if logCfg.Format != "json" {
		console = zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
			w.Out = os.Stderr
			w.TimeFormat = time.Kitchen
		})
	}

	writers := []io.Writer{console}

	if f := logCfg.File; f.Enabled {
		writers = append(writers, &lumberjack.Logger{
			Filename:   f.Path,
			MaxSize:    f.MaxSizeMB,
			MaxBackups: f.MaxBackups,
			MaxAge:     f.MaxAgeDays,
			Compress:   f.Compress,
		})
	}

	lc := zerolog.New(io.MultiWriter(writers...)).With().Str("app", configs.AppName)
	if debug {
		lc = lc.Caller().Stack()
	}

	return lc.Timestamp().Logger()
}

// Logger 返回全局 logger.
func Logger() *zerolog.Logger {
	initOnce.Do(initLogger)

	return &logger
}

// Component 返回带 component 字段的子 logger.
func Component(name string) zerolog.Logger {
	return Logger().With().Str("component", name).Logger()
}

// Ctx 返回附带当前 span 的 trace_id/span_id 的 logger.
func Ctx(ctx context.Context) *zerolog.Logger {
	l := Logger()

	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return l
	}

	wl := l.With().
		Stringer("trace_id", sc.TraceID()).
		Stringer("span_id", sc.SpanID()).
		Logger()

	return &wl
}

// GinWriter 把 gin 的调试输出逐行转成固定级别的 zerolog 事件.
type GinWriter struct {
	logger *zerolog.Logger
	level  zerolog.Level
}

// NewGinWriter 用于 gin.DefaultWriter 与 gin.DefaultErrorWriter.
func NewGinWriter(logger *zerolog.Logger, level zerolog.Level) *GinWriter {
	return &GinWriter{logger: logger, level: level}
}

func (w *GinWriter) Write(p []byte) (int, error) {
	for line := range strings.Lines(string(p)) {
		if line = strings.TrimSpace(line); line != "" {
			w.logger.WithLevel(w.level).Str("source", "gin").Msg(line)
		}
	}

	return len(p), nil
}
