package limiter

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/KOMKZ/go-yogan-auth/logger"
)

// FixedWindow decides requests against a Counter. It holds no per-key state
// of its own, so any number of processes may share one Counter.
type FixedWindow struct {
	counter Counter
	now     func() time.Time
	metrics *Metrics
	logger  *logger.CtxZapLogger
}

// Option configures a FixedWindow.
type Option func(*FixedWindow)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(f *FixedWindow) { f.now = now }
}

// WithMetrics records allow/deny decisions on m.
func WithMetrics(m *Metrics) Option {
	return func(f *FixedWindow) { f.metrics = m }
}

// WithLogger overrides the "limiter" module logger.
func WithLogger(l *logger.CtxZapLogger) Option {
	return func(f *FixedWindow) { f.logger = l }
}

// NewFixedWindow builds a limiter over counter, typically a tokenstore.Store.
func NewFixedWindow(counter Counter, opts ...Option) *FixedWindow {
	f := &FixedWindow{
		counter: counter,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = logger.GetLogger("limiter")
	}
	return f
}

// Allow counts one request against key in the current bucket.
// interval is truncated to whole seconds. A store error is returned as is and
// must be treated as a denial by the caller.
func (f *FixedWindow) Allow(ctx context.Context, key string, limit int64, interval time.Duration) (*Response, error) {
	secs := int64(interval / time.Second)
	if secs < 1 || limit < 1 {
		return nil, ErrInvalidConfig.WithMsgf("invalid window: limit=%d interval=%s", limit, interval)
	}

	now := f.now().Unix()
	bucketStart := now - now%secs
	counterKey := fmt.Sprintf("%s:%d", key, bucketStart)

	count, err := f.counter.IncrementWithExpiry(ctx, counterKey, time.Duration(secs+1)*time.Second)
	if err != nil {
		f.logger.ErrorCtx(ctx, "limiter counter failed", zap.String("key", counterKey), zap.Error(err))
		return nil, err
	}

	resp := &Response{
		Allowed:    count-1 < limit,
		RetryAfter: time.Duration(secs-(now-bucketStart)) * time.Second,
		Count:      count,
		Limit:      limit,
		Remaining:  max(limit-count, 0),
		ResetAt:    time.Unix(bucketStart+secs, 0).UTC(),
	}

	if f.metrics != nil {
		f.metrics.Record(ctx, key, resp.Allowed)
	}
	if !resp.Allowed {
		f.logger.DebugCtx(ctx, "request limited",
			zap.String("key", counterKey),
			zap.Int64("count", count),
			zap.Int64("limit", limit))
	}
	return resp, nil
}

// Key builds the counter identity for a client under rule. endpoint is
// dropped for shared rules.
func Key(rule Rule, clientIP, endpoint string) string {
	parts := []string{rule.KeyPrefix, clientIP}
	if !rule.Shared && endpoint != "" {
		parts = append(parts, endpoint)
	}
	return strings.Join(parts, ":")
}
