package token

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Metrics instruments the token lifecycle.
type Metrics struct {
	config     MetricsConfig
	registered bool
	mu         sync.RWMutex

	issuedTotal        metric.Int64Counter
	validatedTotal     metric.Int64Counter
	refreshedTotal     metric.Int64Counter
	revokedTotal       metric.Int64Counter
	validationDuration metric.Float64Histogram
}

func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{config: cfg}
}

func (m *Metrics) MetricsName() string {
	return "token"
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
	m.issuedTotal, err = meter.Int64Counter(
		"token_issued_total",
		metric.WithDescription("Token pairs issued"),
		metric.WithUnit("{pair}"),
	)
	if err != nil {
		return err
	}

	m.validatedTotal, err = meter.Int64Counter(
		"token_validated_total",
		metric.WithDescription("Token validations by result"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return err
	}

	m.refreshedTotal, err = meter.Int64Counter(
		"token_refreshed_total",
		metric.WithDescription("Refresh rotations by result"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return err
	}

	m.revokedTotal, err = meter.Int64Counter(
		"token_revoked_total",
		metric.WithDescription("Revocations by scope"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return err
	}

	m.validationDuration, err = meter.Float64Histogram(
		"token_validation_duration_seconds",
		metric.WithDescription("Token validation duration distribution"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	m.registered = true
	return nil
}

func (m *Metrics) IsRegistered() bool {
	if m == nil {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.registered
}

func (m *Metrics) RecordIssued(ctx context.Context, cause string) {
	if !m.IsRegistered() {
		return
	}
	m.issuedTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("cause", cause)))
}

func (m *Metrics) RecordValidated(ctx context.Context, result string, d time.Duration) {
	if !m.IsRegistered() {
		return
	}
	m.validatedTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
	m.validationDuration.Record(ctx, d.Seconds())
}

func (m *Metrics) RecordRefreshed(ctx context.Context, result string) {
	if !m.IsRegistered() {
		return
	}
	m.refreshedTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func (m *Metrics) RecordRevoked(ctx context.Context, scope string) {
	if !m.IsRegistered() {
		return
	}
	m.revokedTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("scope", scope)))
}
