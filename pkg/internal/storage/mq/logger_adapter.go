package mq

import (
	watermill "github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
)

// watermillLogger 把 watermill 的日志写到 zerolog，字段原样带上.
type watermillLogger struct {
	l zerolog.Logger
}

var _ watermill.LoggerAdapter = watermillLogger{}

func newWatermillLogger(l zerolog.Logger) watermillLogger {
	return watermillLogger{l: l.With().Str("component", "mq").Logger()}
}

func emit(ev *zerolog.Event, msg string, fields watermill.LogFields) {
	if len(fields) > 0 {
		ev = ev.Fields(map[string]any(fields))
	}

	ev.Msg(msg)
}

func (w watermillLogger) Error(msg string, err error, fields watermill.LogFields) {
	emit(w.l.Error().Err(err), msg, fields)
}

func (w watermillLogger) Info(msg string, fields watermill.LogFields) {
	emit(w.l.Info(), msg, fields)
}

// Debug watermill 的 debug 日志很密集，降一级记录.
func (w watermillLogger) Debug(msg string, fields watermill.LogFields) {
	emit(w.l.Trace(), msg, fields)
}

func (w watermillLogger) Trace(msg string, fields watermill.LogFields) {
	emit(w.l.Trace(), msg, fields)
}

func (w watermillLogger) With(fields watermill.LogFields) watermill.LoggerAdapter {
	return watermillLogger{l: w.l.With().Fields(map[string]any(fields)).Logger()}
}
