package redis

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
)

// MetricsHook feeds RedisMetrics from go-redis hooks.
type MetricsHook struct {
	metrics  *RedisMetrics
	instance string
}

func NewMetricsHook(metrics *RedisMetrics, instance string) *MetricsHook {
	return &MetricsHook{metrics: metrics, instance: instance}
}

func (h *MetricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		return next(ctx, network, addr)
	}
}

// ProcessHook treats redis.Nil as a successful lookup, not an error.
func (h *MetricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmd)
		h.metrics.RecordCommand(ctx, h.instance, cmd.Name(), time.Since(start), commandError(err))
		return err
	}
}

func (h *MetricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		start := time.Now()
		err := next(ctx, cmds)
		if len(cmds) == 0 {
			return err
		}

		each := time.Since(start) / time.Duration(len(cmds))
		for _, cmd := range cmds {
			h.metrics.RecordCommand(ctx, h.instance, cmd.Name(), each, commandError(cmd.Err()))
		}
		return err
	}
}

func commandError(err error) error {
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}
