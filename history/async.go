package history

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/KOMKZ/go-yogan-auth/logger"
)

// AsyncLog hands appends to a worker pool so requests do not wait on the
// database or the broker. When the pool is saturated the append runs inline.
type AsyncLog struct {
	next   Appender
	pool   *ants.Pool
	drain  time.Duration
	logger *logger.CtxZapLogger

	mu       sync.Mutex
	closed   bool
	inflight int
	idle     chan struct{} // closed when inflight drops to zero
}

func NewAsyncLog(next Appender, cfg AsyncConfig, log *logger.CtxZapLogger) (*AsyncLog, error) {
	if log == nil {
		log = logger.GetLogger("history")
	}
	pool, err := ants.NewPool(cfg.PoolSize,
		ants.WithMaxBlockingTasks(cfg.MaxBlocking),
		ants.WithPanicHandler(func(p interface{}) {
			log.Error("history worker panicked", zap.Any("panic", p))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("create history worker pool: %w", err)
	}
	return &AsyncLog{next: next, pool: pool, drain: cfg.DrainTimeout, logger: log}, nil
}

// Append always returns nil once the event is queued; failures are logged.
func (a *AsyncLog) Append(ctx context.Context, userID string, action Action, at time.Time) error {
	// keep trace values but outlive the request
	bg := context.WithoutCancel(ctx)

	if !a.begin() {
		return a.next.Append(ctx, userID, action, at)
	}
	err := a.pool.Submit(func() {
		defer a.end()
		if err := a.next.Append(bg, userID, action, at); err != nil {
			a.logger.WarnCtx(bg, "async history append failed",
				zap.String("user_id", userID),
				zap.String("action", string(action)),
				zap.Error(err))
		}
	})
	if err == nil {
		return nil
	}
	a.end()

	if errors.Is(err, ants.ErrPoolOverload) || errors.Is(err, ants.ErrPoolClosed) {
		a.logger.WarnCtx(ctx, "history pool unavailable, appending inline", zap.Error(err))
		return a.next.Append(ctx, userID, action, at)
	}
	return fmt.Errorf("submit history append: %w", err)
}

func (a *AsyncLog) begin() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return false
	}
	if a.inflight == 0 {
		a.idle = make(chan struct{})
	}
	a.inflight++
	return true
}

func (a *AsyncLog) end() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.inflight--
	if a.inflight == 0 {
		close(a.idle)
	}
}

// Flush waits until every queued append has finished or ctx is done.
func (a *AsyncLog) Flush(ctx context.Context) error {
	a.mu.Lock()
	if a.inflight == 0 {
		a.mu.Unlock()
		return nil
	}
	idle := a.idle
	a.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close drains queued appends, bounded by the drain timeout, and stops the
// pool. Appends arriving after Close run inline.
func (a *AsyncLog) Close() error {
	a.mu.Lock()
	a.closed = true
	a.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), a.drain)
	defer cancel()

	err := a.Flush(ctx)
	a.pool.Release()
	if err != nil {
		a.logger.Warn("history pool closed with pending appends", zap.Error(err))
	}
	return err
}

func (a *AsyncLog) Shutdown() error {
	return a.Close()
}
