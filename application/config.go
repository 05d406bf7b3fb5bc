// Package application assembles the auth service: configuration, the DI
// graph, the HTTP server and the background scheduler.
package application

import (
	"fmt"
	"time"

	"github.com/samber/do/v2"

	"github.com/KOMKZ/go-yogan-auth/account"
	"github.com/KOMKZ/go-yogan-auth/config"
	"github.com/KOMKZ/go-yogan-auth/database"
	"github.com/KOMKZ/go-yogan-auth/health"
	"github.com/KOMKZ/go-yogan-auth/history"
	"github.com/KOMKZ/go-yogan-auth/httpx"
	"github.com/KOMKZ/go-yogan-auth/limiter"
	"github.com/KOMKZ/go-yogan-auth/logger"
	"github.com/KOMKZ/go-yogan-auth/middleware"
	"github.com/KOMKZ/go-yogan-auth/redis"
	"github.com/KOMKZ/go-yogan-auth/telemetry"
	"github.com/KOMKZ/go-yogan-auth/token"
)

// AppConfig is the whole configuration tree.
type AppConfig struct {
	App        AppInfo          `mapstructure:"app"`
	ApiServer  ApiServerConfig  `mapstructure:"api_server"`
	Middleware MiddlewareConfig `mapstructure:"middleware"`

	Logger    logger.ManagerConfig       `mapstructure:"logger"`
	Httpx     httpx.ErrorLoggingConfig   `mapstructure:"httpx"`
	Telemetry telemetry.Config           `mapstructure:"telemetry"`
	Redis     map[string]redis.Config    `mapstructure:"redis"`
	Database  map[string]database.Config `mapstructure:"database"`

	Token   token.Config   `mapstructure:"token"`
	Limiter limiter.Config `mapstructure:"limiter"`
	History history.Config `mapstructure:"history"`
	Account account.Config `mapstructure:"account"`
	Health  health.Config  `mapstructure:"health"`

	RedisMetrics redis.RedisMetricsConfig `mapstructure:"redis_metrics"`
	DBMetrics    database.DBMetricsConfig `mapstructure:"db_metrics"`
}

type AppInfo struct {
	Name    string `mapstructure:"name"`
	Version string `mapstructure:"version"`
}

type ApiServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"` // debug, release, test
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// ShutdownTimeout bounds graceful shutdown after SIGINT/SIGTERM.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

func (c ApiServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type MiddlewareConfig struct {
	TraceID    TraceIDConfig         `mapstructure:"trace_id"`
	RequestLog RequestLogConfig      `mapstructure:"request_log"`
	Metrics    MetricsConfig         `mapstructure:"metrics"`
	CORS       middleware.CORSConfig `mapstructure:"cors"`
}

type TraceIDConfig struct {
	Enable               bool   `mapstructure:"enable"`
	TraceIDKey           string `mapstructure:"trace_id_key"`
	TraceIDHeader        string `mapstructure:"trace_id_header"`
	EnableResponseHeader bool   `mapstructure:"enable_response_header"`
}

type RequestLogConfig struct {
	Enable    bool     `mapstructure:"enable"`
	SkipPaths []string `mapstructure:"skip_paths"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// DefaultAppConfig is what an empty config.yaml yields. Redis and database
// connections have no default and must be configured.
func DefaultAppConfig() AppConfig {
	tel := telemetry.DefaultConfig()
	tel.ServiceName = "" // follows app.name

	return AppConfig{
		App: AppInfo{Name: "yogan-auth", Version: "1.0.0"},
		ApiServer: ApiServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			Mode:            "release",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		Middleware: MiddlewareConfig{
			TraceID: TraceIDConfig{
				Enable:               true,
				TraceIDKey:           "trace_id",
				TraceIDHeader:        "X-Trace-ID",
				EnableResponseHeader: true,
			},
			RequestLog: RequestLogConfig{Enable: true, SkipPaths: []string{"/healthz"}},
			Metrics:    MetricsConfig{Enabled: true},
			CORS:       middleware.DefaultCORSConfig(),
		},
		Logger:    logger.DefaultManagerConfig(),
		Httpx:     httpx.DefaultErrorLoggingConfig(),
		Telemetry: tel,
		Token:     token.DefaultConfig(),
		Limiter:   limiter.DefaultConfig(),
		History:   history.DefaultConfig(),
		Account:   account.Config{},
		Health:    health.DefaultConfig(),
	}
}

// LoadConfig reads the tree through loader on top of DefaultAppConfig.
func LoadConfig(loader *config.Loader) (*AppConfig, error) {
	cfg := DefaultAppConfig()
	if err := loader.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *AppConfig) ApplyDefaults() {
	d := DefaultAppConfig()
	if c.App.Name == "" {
		c.App.Name = d.App.Name
	}
	if c.ApiServer.Port == 0 {
		c.ApiServer.Port = d.ApiServer.Port
	}
	if c.ApiServer.Mode == "" {
		c.ApiServer.Mode = d.ApiServer.Mode
	}
	if c.ApiServer.ShutdownTimeout <= 0 {
		c.ApiServer.ShutdownTimeout = d.ApiServer.ShutdownTimeout
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = c.App.Name
	}
	if c.Logger.AppName == "" {
		c.Logger.AppName = c.App.Name
	}

	c.Logger.ApplyDefaults()
	c.Telemetry.ApplyDefaults()
	c.Token.ApplyDefaults()
	c.Limiter.ApplyDefaults()
	c.History.ApplyDefaults()
	c.Account.ApplyDefaults()
	c.Health.ApplyDefaults()
}

func (c AppConfig) Validate() error {
	switch c.ApiServer.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("api_server.mode %q must be debug, release or test", c.ApiServer.Mode)
	}
	if c.ApiServer.Port < 0 || c.ApiServer.Port > 65535 {
		return fmt.Errorf("api_server.port %d out of range", c.ApiServer.Port)
	}
	if len(c.Redis) == 0 {
		return fmt.Errorf("redis must configure at least one instance")
	}
	if len(c.Database) == 0 {
		return fmt.Errorf("database must configure at least one connection")
	}

	return config.ValidateAll(
		c.Logger,
		c.Telemetry,
		c.Token,
		c.Limiter,
		c.History,
		c.Account,
	)
}

// Provide hands each section to the injector as a typed value for the di
// providers.
func (c *AppConfig) Provide(i do.Injector) {
	do.ProvideValue(i, *c)
	do.ProvideValue(i, c.Logger)
	do.ProvideValue(i, c.Httpx)
	do.ProvideValue(i, c.Telemetry)
	do.ProvideValue(i, c.Redis)
	do.ProvideValue(i, c.Database)
	do.ProvideValue(i, c.Token)
	do.ProvideValue(i, c.Limiter)
	do.ProvideValue(i, c.History)
	do.ProvideValue(i, c.Account)
	do.ProvideValue(i, c.Health)
	do.ProvideValue(i, c.RedisMetrics)
	do.ProvideValue(i, c.DBMetrics)
}
