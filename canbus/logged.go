package canbus

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogOption is a bitmask for selecting which operations to log.
type LogOption uint8

const (
	LogNone LogOption = 0
	LogRead LogOption = 1 << iota
	LogWrite
	LogAll = LogRead | LogWrite
)

// NewLoggedBus wraps the given Bus and logs selected operations at the given
// level. If filter is nil, every frame is logged.
func NewLoggedBus(inner Bus, logger *zap.Logger, level zapcore.Level, opts LogOption, filter FrameFilter) Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &loggedBus{
		inner:  inner,
		logger: logger,
		level:  level,
		opts:   opts,
		filter: filter,
	}
}

type loggedBus struct {
	inner  Bus
	logger *zap.Logger
	level  zapcore.Level
	opts   LogOption
	filter FrameFilter
}

func frameFields(f Frame) []zap.Field {
	return []zap.Field{
		zap.Uint32("id", f.ID),
		zap.Bool("extended", f.Extended),
		zap.Bool("rtr", f.RTR),
		zap.Int("len", int(f.Len)),
		zap.Binary("data", f.Payload()),
		zap.Stringer("frame", f),
	}
}

// Send logs the frame and the result when write logging is enabled.
func (l *loggedBus) Send(ctx context.Context, frame Frame) error {
	if l.opts&LogWrite != 0 && (l.filter == nil || l.filter(frame)) {
		l.logger.Log(l.level, "canbus send", frameFields(frame)...)
	}
	err := l.inner.Send(ctx, frame)
	if l.opts&LogWrite != 0 && err != nil {
		l.logger.Error("canbus send error", zap.Uint32("id", frame.ID), zap.Error(err))
	}
	return err
}

// Receive logs the received frame or error when read logging is enabled.
func (l *loggedBus) Receive(ctx context.Context) (Frame, error) {
	f, err := l.inner.Receive(ctx)
	if l.opts&LogRead == 0 {
		return f, err
	}
	if err != nil {
		l.logger.Error("canbus receive error", zap.Error(err))
	} else if l.filter == nil || l.filter(f) {
		l.logger.Log(l.level, "canbus receive", frameFields(f)...)
	}
	return f, err
}

// Close forwards to the inner Bus without logging.
func (l *loggedBus) Close() error {
	return l.inner.Close()
}
