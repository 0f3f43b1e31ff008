package sink

import (
	"context"

	"go.uber.org/zap"

	"github.com/evtelemetry/bmsbridge/bridge"
)

// Log writes every publish to a logger. It never fails.
type Log struct {
	logger *zap.Logger
}

var _ bridge.Publisher = (*Log)(nil)

// NewLog returns a sink logging at info level.
func NewLog(logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{logger: logger}
}

// Publish implements bridge.Publisher.
func (l *Log) Publish(_ context.Context, topic, payload string) error {
	l.logger.Info("publish", zap.String("topic", topic), zap.String("payload", payload))
	return nil
}
