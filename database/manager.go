package database

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/KOMKZ/go-yogan-auth/health"
	"github.com/KOMKZ/go-yogan-auth/logger"
)

// GormLoggerFactory builds the gorm logger for one connection.
type GormLoggerFactory func(cfg Config) gormlogger.Interface

// DefaultGormLoggerFactory routes SQL logs through logger.GormLogger.
func DefaultGormLoggerFactory(cfg Config) gormlogger.Interface {
	if !cfg.EnableLog {
		return gormlogger.Default.LogMode(gormlogger.Silent)
	}
	lc := logger.DefaultGormLoggerConfig()
	lc.SlowThreshold = cfg.SlowThreshold
	lc.EnableAudit = cfg.EnableAudit
	if cfg.EnableAudit {
		lc.LogLevel = gormlogger.Info
	}
	return logger.NewGormLogger(lc)
}

type Option func(*Manager)

// WithTracerProvider instruments every connection with OtelPlugin.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(m *Manager) { m.tracerProvider = tp }
}

// Manager owns the named gorm connections.
type Manager struct {
	instances      map[string]*gorm.DB
	configs        map[string]Config
	loggerFactory  GormLoggerFactory
	tracerProvider trace.TracerProvider
	metrics        *DBMetrics
	logger         *logger.CtxZapLogger
	mu             sync.RWMutex
}

func NewManager(configs map[string]Config, loggerFactory GormLoggerFactory, log *logger.CtxZapLogger, opts ...Option) (*Manager, error) {
	if log == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	m := &Manager{
		instances:     make(map[string]*gorm.DB),
		configs:       make(map[string]Config),
		loggerFactory: loggerFactory,
		logger:        log,
	}
	for _, opt := range opts {
		opt(m)
	}

	for name, cfg := range configs {
		if err := cfg.Validate(); err != nil {
			_ = m.Close()
			return nil, fmt.Errorf("invalid config for %s: %w", name, err)
		}

		db, err := m.openDB(cfg)
		if err != nil {
			_ = m.Close()
			return nil, fmt.Errorf("%w: %s: %v", ErrConnectionFailed, name, err)
		}

		m.instances[name] = db
		m.configs[name] = cfg
		m.logger.Debug("database connected",
			zap.String("name", name),
			zap.String("driver", cfg.Driver))
	}

	return m, nil
}

func (m *Manager) openDB(cfg Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	gormLogger := gormlogger.Default.LogMode(gormlogger.Silent)
	if m.loggerFactory != nil {
		gormLogger = m.loggerFactory(cfg)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, err
	}

	if m.tracerProvider != nil {
		plugin := NewOtelPlugin(m.tracerProvider).
			WithTraceSQL(cfg.TraceSQL).
			WithSQLMaxLen(cfg.TraceSQLMaxLen)
		if err := db.Use(plugin); err != nil {
			return nil, fmt.Errorf("use otel plugin: %w", err)
		}
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return db, nil
}

// DB returns the named connection, or nil.
func (m *Manager) DB(name string) *gorm.DB {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.instances[name]
}

// MustDB panics when name is not configured. Used during wiring.
func (m *Manager) MustDB(name string) *gorm.DB {
	db := m.DB(name)
	if db == nil {
		panic(fmt.Sprintf("database %q not configured", name))
	}
	return db
}

func (m *Manager) GetDBNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.instances))
	for name := range m.instances {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *Manager) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for name, db := range m.instances {
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("sql.DB for %s: %w", name, err)
		}
		if err := sqlDB.PingContext(ctx); err != nil {
			return fmt.Errorf("ping %s failed: %w", name, err)
		}
	}
	return nil
}

// Checker exposes Ping to the health aggregator. A manager without
// connections is unhealthy.
func (m *Manager) Checker() health.Checker {
	return health.CheckerFunc{CheckName: "database", Fn: func(ctx context.Context) error {
		if len(m.GetDBNames()) == 0 {
			return fmt.Errorf("no database connections configured")
		}
		return m.Ping(ctx)
	}}
}

// SetMetrics installs the metrics plugin and pool gauges on every
// connection. Later calls are ignored.
func (m *Manager) SetMetrics(metrics *DBMetrics) error {
	if metrics == nil || !metrics.IsMetricsEnabled() {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.metrics != nil {
		return nil
	}

	for name, db := range m.instances {
		if err := db.Use(metrics.Plugin(name)); err != nil {
			return fmt.Errorf("use metrics plugin on %s: %w", name, err)
		}
		if sqlDB, err := db.DB(); err == nil {
			metrics.trackPool(name, sqlDB)
		}
	}
	m.metrics = metrics
	return nil
}

func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.untrackPools()
	}

	for name, db := range m.instances {
		sqlDB, err := db.DB()
		if err != nil {
			m.logger.Error("failed to get sql.DB", zap.String("name", name), zap.Error(err))
			continue
		}
		if err := sqlDB.Close(); err != nil {
			m.logger.Error("failed to close database", zap.String("name", name), zap.Error(err))
			continue
		}
		m.logger.Debug("database closed", zap.String("name", name))
	}
	m.instances = make(map[string]*gorm.DB)
	return nil
}

// Shutdown is called by the DI container.
func (m *Manager) Shutdown() error {
	return m.Close()
}
