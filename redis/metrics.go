package redis

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type RedisMetricsConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	RecordPoolStats bool `mapstructure:"record_pool_stats"`
}

// RedisMetrics records per-command counters and latency, plus optional pool gauges.
type RedisMetrics struct {
	config     RedisMetricsConfig
	registered bool
	mu         sync.RWMutex

	commandsTotal   metric.Int64Counter
	commandDuration metric.Float64Histogram
	errorsTotal     metric.Int64Counter

	poolCallbacks map[string]func() PoolStats
	poolMu        sync.RWMutex
}

type PoolStats struct {
	ActiveCount int64
	IdleCount   int64
}

func NewRedisMetrics(cfg RedisMetricsConfig) *RedisMetrics {
	return &RedisMetrics{
		config:        cfg,
		poolCallbacks: make(map[string]func() PoolStats),
	}
}

func (m *RedisMetrics) MetricsName() string {
	return "redis"
}

func (m *RedisMetrics) IsMetricsEnabled() bool {
	return m.config.Enabled
}

// RegisterMetrics creates the instruments on meter. Safe to call twice.
func (m *RedisMetrics) RegisterMetrics(meter metric.Meter) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registered {
		return nil
	}

	var err error
	m.commandsTotal, err = meter.Int64Counter(
		"redis_commands_total",
		metric.WithDescription("Total number of Redis commands executed"),
		metric.WithUnit("{command}"),
	)
	if err != nil {
		return err
	}

	m.commandDuration, err = meter.Float64Histogram(
		"redis_command_duration_seconds",
		metric.WithDescription("Redis command duration distribution"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	m.errorsTotal, err = meter.Int64Counter(
		"redis_errors_total",
		metric.WithDescription("Total number of failed Redis commands"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return err
	}

	if m.config.RecordPoolStats {
		_, err = meter.Int64ObservableGauge(
			"redis_connections_active",
			metric.WithDescription("Number of in-use Redis connections"),
			metric.WithUnit("{connection}"),
			metric.WithInt64Callback(m.observePool(func(s PoolStats) int64 { return s.ActiveCount })),
		)
		if err != nil {
			return err
		}

		_, err = meter.Int64ObservableGauge(
			"redis_connections_idle",
			metric.WithDescription("Number of idle Redis connections"),
			metric.WithUnit("{connection}"),
			metric.WithInt64Callback(m.observePool(func(s PoolStats) int64 { return s.IdleCount })),
		)
		if err != nil {
			return err
		}
	}

	m.registered = true
	return nil
}

func (m *RedisMetrics) observePool(pick func(PoolStats) int64) metric.Int64Callback {
	return func(_ context.Context, observer metric.Int64Observer) error {
		m.poolMu.RLock()
		defer m.poolMu.RUnlock()

		for instance, callback := range m.poolCallbacks {
			observer.Observe(pick(callback()), metric.WithAttributes(attribute.String("instance", instance)))
		}
		return nil
	}
}

func (m *RedisMetrics) RegisterPoolCallback(instance string, callback func() PoolStats) {
	m.poolMu.Lock()
	defer m.poolMu.Unlock()
	m.poolCallbacks[instance] = callback
}

func (m *RedisMetrics) UnregisterPoolCallback(instance string) {
	m.poolMu.Lock()
	defer m.poolMu.Unlock()
	delete(m.poolCallbacks, instance)
}

// RecordCommand is a no-op until RegisterMetrics succeeds.
func (m *RedisMetrics) RecordCommand(ctx context.Context, instance, command string, duration time.Duration, err error) {
	if !m.IsRegistered() {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("instance", instance),
		attribute.String("command", command),
	)
	m.commandsTotal.Add(ctx, 1, attrs)
	m.commandDuration.Record(ctx, duration.Seconds(), attrs)
	if err != nil {
		m.errorsTotal.Add(ctx, 1, attrs)
	}
}

func (m *RedisMetrics) IsRegistered() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.registered
}
