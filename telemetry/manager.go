// Package telemetry wires OpenTelemetry tracing and metrics for the service.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/KOMKZ/go-yogan-auth/logger"
)

// MetricsProvider is implemented by components owning instruments, such as
// token.Metrics and limiter.Metrics.
type MetricsProvider interface {
	MetricsName() string
	IsMetricsEnabled() bool
	RegisterMetrics(meter metric.Meter) error
}

// Manager owns the tracer and meter providers.
type Manager struct {
	config Config
	logger *logger.CtxZapLogger

	mu             sync.Mutex
	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
	registered     []string
}

func NewManager(cfg Config, log *logger.CtxZapLogger) *Manager {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.GetLogger("telemetry")
	}
	return &Manager{config: cfg, logger: log}
}

// Start builds the providers and installs them globally. A disabled manager
// leaves the otel no-op globals in place.
func (m *Manager) Start(ctx context.Context) error {
	if !m.config.Enabled {
		m.logger.InfoCtx(ctx, "telemetry disabled")
		return nil
	}
	if err := m.config.Validate(); err != nil {
		return err
	}

	res, err := newResource(ctx, m.config)
	if err != nil {
		return fmt.Errorf("create resource: %w", err)
	}

	tp, err := newTracerProvider(ctx, m.config, res)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.tracerProvider = tp
	m.mu.Unlock()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	if m.config.Metrics.Enabled {
		reader, err := newMetricReader(ctx, m.config)
		if err != nil {
			return err
		}
		opts := []sdkmetric.Option{sdkmetric.WithResource(res)}
		if reader != nil {
			opts = append(opts, sdkmetric.WithReader(reader))
		}
		mp := sdkmetric.NewMeterProvider(opts...)
		m.mu.Lock()
		m.meterProvider = mp
		m.mu.Unlock()
		otel.SetMeterProvider(mp)
	}

	m.logger.InfoCtx(ctx, "telemetry started",
		zap.String("service_name", m.config.ServiceName),
		zap.String("exporter", m.config.Exporter.Type),
		zap.Bool("metrics", m.config.Metrics.Enabled))
	return nil
}

// Register creates a meter per provider and lets it build its instruments.
// Disabled providers are skipped.
func (m *Manager) Register(providers ...MetricsProvider) error {
	mp := m.MeterProvider()
	for _, p := range providers {
		if p == nil || !p.IsMetricsEnabled() {
			continue
		}
		meter := mp.Meter(m.config.Metrics.Namespace + "/" + p.MetricsName())
		if err := p.RegisterMetrics(meter); err != nil {
			return fmt.Errorf("register %s metrics: %w", p.MetricsName(), err)
		}
		m.mu.Lock()
		m.registered = append(m.registered, p.MetricsName())
		m.mu.Unlock()
	}
	return nil
}

// Registered lists the provider names Register accepted.
func (m *Manager) Registered() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.registered...)
}

func (m *Manager) MeterProvider() metric.MeterProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.meterProvider != nil {
		return m.meterProvider
	}
	return otel.GetMeterProvider()
}

func (m *Manager) TracerProvider() trace.TracerProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.tracerProvider != nil {
		return m.tracerProvider
	}
	return otel.GetTracerProvider()
}

func (m *Manager) Tracer(name string) trace.Tracer {
	return m.TracerProvider().Tracer(name)
}

func (m *Manager) Meter(name string) metric.Meter {
	return m.MeterProvider().Meter(name)
}

func (m *Manager) IsEnabled() bool {
	return m.config.Enabled
}

// Shutdown flushes and stops both providers.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	tp, mp := m.tracerProvider, m.meterProvider
	m.mu.Unlock()

	var errs []error
	if tp != nil {
		if err := tp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracer provider: %w", err))
		}
	}
	if mp != nil {
		if err := mp.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown meter provider: %w", err))
		}
	}
	return errors.Join(errs...)
}
