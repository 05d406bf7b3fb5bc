package history

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/KOMKZ/go-yogan-auth/logger"
)

// Multi writes to a primary Log and fans out to secondary sinks. Only the
// primary's errors are returned; reads go to the primary.
type Multi struct {
	primary Log
	sinks   []Appender
	logger  *logger.CtxZapLogger
}

func NewMulti(primary Log, log *logger.CtxZapLogger, sinks ...Appender) *Multi {
	if log == nil {
		log = logger.GetLogger("history")
	}
	return &Multi{primary: primary, sinks: sinks, logger: log}
}

func (m *Multi) Append(ctx context.Context, userID string, action Action, at time.Time) error {
	err := m.primary.Append(ctx, userID, action, at)
	for _, s := range m.sinks {
		if sinkErr := s.Append(ctx, userID, action, at); sinkErr != nil {
			m.logger.WarnCtx(ctx, "history sink failed", zap.Error(sinkErr))
		}
	}
	return err
}

func (m *Multi) List(ctx context.Context, userID string, page, pageSize int) ([]Event, int64, error) {
	return m.primary.List(ctx, userID, page, pageSize)
}
