package history

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/KOMKZ/go-yogan-auth/logger"
)

type Pruner interface {
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// Retention deletes events older than MaxAge on a cron schedule.
type Retention struct {
	pruner    Pruner
	maxAge    time.Duration
	scheduler gocron.Scheduler
	now       func() time.Time
	logger    *logger.CtxZapLogger
}

func NewRetention(pruner Pruner, cfg RetentionConfig, log *logger.CtxZapLogger) (*Retention, error) {
	if log == nil {
		log = logger.GetLogger("history")
	}

	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("create retention scheduler: %w", err)
	}

	r := &Retention{
		pruner:    pruner,
		maxAge:    cfg.MaxAge,
		scheduler: scheduler,
		now:       time.Now,
		logger:    log,
	}

	_, err = scheduler.NewJob(
		gocron.CronJob(cfg.Schedule, false),
		gocron.NewTask(func() {
			_, _ = r.RunOnce(context.Background())
		}),
		gocron.WithName("history-retention"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = scheduler.Shutdown()
		return nil, fmt.Errorf("schedule retention %q: %w", cfg.Schedule, err)
	}
	return r, nil
}

func (r *Retention) Start() {
	r.scheduler.Start()
	r.logger.Debug("history retention scheduled", zap.Duration("max_age", r.maxAge))
}

// RunOnce prunes immediately.
func (r *Retention) RunOnce(ctx context.Context) (int64, error) {
	cutoff := r.now().Add(-r.maxAge)
	n, err := r.pruner.Prune(ctx, cutoff)
	if err != nil {
		r.logger.ErrorCtx(ctx, "history retention failed", zap.Error(err))
		return 0, err
	}
	r.logger.InfoCtx(ctx, "history pruned", zap.Int64("deleted", n), zap.Time("before", cutoff))
	return n, nil
}

func (r *Retention) Shutdown() error {
	return r.scheduler.Shutdown()
}
