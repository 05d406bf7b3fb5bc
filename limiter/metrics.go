package limiter

import (
	"context"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Metrics counts limiter decisions per key prefix.
type Metrics struct {
	config     MetricsConfig
	registered bool
	mu         sync.RWMutex

	requestsTotal metric.Int64Counter
	rejectedTotal metric.Int64Counter
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{config: cfg}
}

func (m *Metrics) MetricsName() string {
	return "limiter"
}

func (m *Metrics) IsMetricsEnabled() bool {
	return m.config.Enabled
}

// RegisterMetrics creates the instruments on meter. Safe to call twice.
func (m *Metrics) RegisterMetrics(meter metric.Meter) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registered {
		return nil
	}

	var err error
	m.requestsTotal, err = meter.Int64Counter(
		"limiter_requests_total",
		metric.WithDescription("Requests checked by the rate limiter"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return err
	}

	m.rejectedTotal, err = meter.Int64Counter(
		"limiter_rejected_total",
		metric.WithDescription("Requests denied by the rate limiter"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return err
	}

	m.registered = true
	return nil
}

func (m *Metrics) IsRegistered() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.registered
}

// Record tags by key prefix only; client addresses would explode cardinality.
func (m *Metrics) Record(ctx context.Context, key string, allowed bool) {
	if !m.IsRegistered() {
		return
	}

	prefix, _, _ := strings.Cut(key, ":")
	attrs := metric.WithAttributes(
		attribute.String("prefix", prefix),
		attribute.Bool("allowed", allowed),
	)
	m.requestsTotal.Add(ctx, 1, attrs)
	if !allowed {
		m.rejectedTotal.Add(ctx, 1, attrs)
	}
}
