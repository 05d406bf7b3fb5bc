package database

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"gorm.io/gorm"
)

const metricsStartKey = "metrics:start"

type DBMetricsConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	RecordPoolStats bool          `mapstructure:"record_pool_stats"`
	SlowThreshold   time.Duration `mapstructure:"slow_threshold"`
}

// DBMetrics counts gorm operations per connection and table, plus optional
// pool gauges read from sql.DB.Stats.
type DBMetrics struct {
	config     DBMetricsConfig
	registered bool
	mu         sync.RWMutex

	queriesTotal  metric.Int64Counter
	queryDuration metric.Float64Histogram
	slowQueries   metric.Int64Counter
	errorsTotal   metric.Int64Counter

	pools  map[string]*sql.DB
	poolMu sync.RWMutex
}

func NewDBMetrics(cfg DBMetricsConfig) *DBMetrics {
	if cfg.SlowThreshold <= 0 {
		cfg.SlowThreshold = 200 * time.Millisecond
	}
	return &DBMetrics{config: cfg, pools: make(map[string]*sql.DB)}
}

func (m *DBMetrics) MetricsName() string {
	return "database"
}

func (m *DBMetrics) IsMetricsEnabled() bool {
	return m.config.Enabled
}

// RegisterMetrics creates the instruments on meter. Safe to call twice.
func (m *DBMetrics) RegisterMetrics(meter metric.Meter) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.registered {
		return nil
	}

	var err error
	m.queriesTotal, err = meter.Int64Counter(
		"db_queries_total",
		metric.WithDescription("Total number of gorm operations"),
		metric.WithUnit("{query}"),
	)
	if err != nil {
		return err
	}

	m.queryDuration, err = meter.Float64Histogram(
		"db_query_duration_seconds",
		metric.WithDescription("gorm operation duration distribution"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return err
	}

	m.slowQueries, err = meter.Int64Counter(
		"db_slow_queries_total",
		metric.WithDescription("Operations slower than the configured threshold"),
		metric.WithUnit("{query}"),
	)
	if err != nil {
		return err
	}

	m.errorsTotal, err = meter.Int64Counter(
		"db_errors_total",
		metric.WithDescription("Failed operations, record-not-found excluded"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return err
	}

	if m.config.RecordPoolStats {
		gauges := []struct {
			name, desc string
			pick       func(sql.DBStats) int64
		}{
			{"db_connections_open", "Open connections", func(s sql.DBStats) int64 { return int64(s.OpenConnections) }},
			{"db_connections_idle", "Idle connections", func(s sql.DBStats) int64 { return int64(s.Idle) }},
			{"db_connections_in_use", "In-use connections", func(s sql.DBStats) int64 { return int64(s.InUse) }},
		}
		for _, g := range gauges {
			_, err = meter.Int64ObservableGauge(g.name,
				metric.WithDescription(g.desc),
				metric.WithUnit("{connection}"),
				metric.WithInt64Callback(m.observePool(g.pick)),
			)
			if err != nil {
				return err
			}
		}
	}

	m.registered = true
	return nil
}

func (m *DBMetrics) IsRegistered() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.registered
}

func (m *DBMetrics) observePool(pick func(sql.DBStats) int64) metric.Int64Callback {
	return func(_ context.Context, observer metric.Int64Observer) error {
		m.poolMu.RLock()
		defer m.poolMu.RUnlock()

		for name, db := range m.pools {
			observer.Observe(pick(db.Stats()), metric.WithAttributes(attribute.String("instance", name)))
		}
		return nil
	}
}

func (m *DBMetrics) trackPool(name string, db *sql.DB) {
	m.poolMu.Lock()
	defer m.poolMu.Unlock()
	m.pools[name] = db
}

func (m *DBMetrics) untrackPools() {
	m.poolMu.Lock()
	defer m.poolMu.Unlock()
	m.pools = make(map[string]*sql.DB)
}

// Plugin returns the gorm plugin recording operations for connection name.
func (m *DBMetrics) Plugin(name string) gorm.Plugin {
	return &metricsPlugin{metrics: m, instance: name}
}

func (m *DBMetrics) record(ctx context.Context, instance, operation, table string, d time.Duration, failed bool) {
	if !m.IsRegistered() {
		return
	}
	if table == "" {
		table = "unknown"
	}
	attrs := metric.WithAttributes(
		attribute.String("instance", instance),
		attribute.String("operation", operation),
		attribute.String("table", table),
	)
	m.queriesTotal.Add(ctx, 1, attrs)
	m.queryDuration.Record(ctx, d.Seconds(), attrs)
	if d >= m.config.SlowThreshold {
		m.slowQueries.Add(ctx, 1, attrs)
	}
	if failed {
		m.errorsTotal.Add(ctx, 1, attrs)
	}
}

type metricsPlugin struct {
	metrics  *DBMetrics
	instance string
}

func (p *metricsPlugin) Name() string {
	return "metrics"
}

func (p *metricsPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	hooks := []struct {
		op            string
		before, after registerFunc
	}{
		{"create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{"row", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register},
		{"raw", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
	}

	for _, h := range hooks {
		if err := h.before("metrics:before_"+h.op, p.before); err != nil {
			return err
		}
		if err := h.after("metrics:after_"+h.op, p.after(h.op)); err != nil {
			return err
		}
	}
	return nil
}

func (p *metricsPlugin) before(db *gorm.DB) {
	db.InstanceSet(metricsStartKey, time.Now())
}

func (p *metricsPlugin) after(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		val, ok := db.InstanceGet(metricsStartKey)
		if !ok {
			return
		}
		start, ok := val.(time.Time)
		if !ok {
			return
		}

		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}
		failed := db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound)
		p.metrics.record(ctx, p.instance, operation, db.Statement.Table, time.Since(start), failed)
	}
}
