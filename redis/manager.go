package redis

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/KOMKZ/go-yogan-auth/health"
	"github.com/KOMKZ/go-yogan-auth/logger"
)

// Manager owns every configured Redis connection.
// Standalone and cluster instances are both exposed as redis.UniversalClient.
type Manager struct {
	clients map[string]redis.UniversalClient
	configs map[string]Config
	logger  *logger.CtxZapLogger
	metrics *RedisMetrics
	mu      sync.RWMutex
}

// NewManager connects and pings every instance. Any failure closes what
// was already opened.
func NewManager(configs map[string]Config, log *logger.CtxZapLogger) (*Manager, error) {
	if log == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	ctx := context.Background()
	m := &Manager{
		clients: make(map[string]redis.UniversalClient),
		configs: make(map[string]Config),
		logger:  log,
	}

	for name, cfg := range configs {
		cfg.ApplyDefaults()
		if err := cfg.Validate(); err != nil {
			_ = m.Close()
			return nil, fmt.Errorf("invalid config for %s: %w", name, err)
		}

		client := newClient(cfg)
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			_ = m.Close()
			return nil, fmt.Errorf("ping %s failed: %w", name, err)
		}

		m.clients[name] = client
		m.configs[name] = cfg
		m.logger.DebugCtx(ctx, "redis connected",
			zap.String("name", name),
			zap.String("mode", cfg.Mode),
			zap.Strings("addrs", cfg.Addrs))
	}

	return m, nil
}

func newClient(cfg Config) redis.UniversalClient {
	if cfg.Mode == "cluster" {
		return redis.NewClusterClient(&redis.ClusterOptions{
			Addrs:        cfg.Addrs,
			Password:     cfg.Password,
			PoolSize:     cfg.PoolSize,
			MinIdleConns: cfg.MinIdleConns,
			MaxRetries:   cfg.MaxRetries,
			DialTimeout:  cfg.DialTimeout,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		})
	}
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Addrs[0],
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		MaxRetries:   cfg.MaxRetries,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
}

// Client returns the named instance, or nil.
func (m *Manager) Client(name string) redis.UniversalClient {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.clients[name]
}

// MustClient panics when name is not configured. Used during wiring.
func (m *Manager) MustClient(name string) redis.UniversalClient {
	c := m.Client(name)
	if c == nil {
		panic(fmt.Sprintf("redis instance %q not configured", name))
	}
	return c
}

func (m *Manager) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for name, client := range m.clients {
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping %s failed: %w", name, err)
		}
	}
	return nil
}

// GetInstanceNames returns configured names in sorted order.
func (m *Manager) Checker() health.Checker {
	return health.CheckerFunc{CheckName: "redis", Fn: m.Ping}
}

func (m *Manager) GetInstanceNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.clients))
	for name := range m.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx := context.Background()
	for name, client := range m.clients {
		if m.metrics != nil {
			m.metrics.UnregisterPoolCallback(name)
		}
		if err := client.Close(); err != nil {
			m.logger.ErrorCtx(ctx, "failed to close redis connection",
				zap.String("name", name), zap.Error(err))
			continue
		}
		m.logger.DebugCtx(ctx, "redis connection closed", zap.String("name", name))
	}
	m.clients = make(map[string]redis.UniversalClient)
	return nil
}

// Shutdown is called by the DI container.
func (m *Manager) Shutdown() error {
	return m.Close()
}

// SetMetrics installs command hooks and pool gauges on every client.
// Later calls are ignored.
func (m *Manager) SetMetrics(metrics *RedisMetrics) {
	if metrics == nil || !metrics.IsMetricsEnabled() {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.metrics != nil {
		return
	}
	m.metrics = metrics

	for name, client := range m.clients {
		client.AddHook(NewMetricsHook(metrics, name))
		c := client
		metrics.RegisterPoolCallback(name, func() PoolStats {
			s := c.PoolStats()
			return PoolStats{
				ActiveCount: int64(s.TotalConns - s.IdleConns),
				IdleCount:   int64(s.IdleConns),
			}
		})
	}
}
