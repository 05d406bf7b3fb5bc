package di

import (
	"context"
	"fmt"

	"github.com/samber/do/v2"

	"github.com/KOMKZ/go-yogan-auth/account"
	"github.com/KOMKZ/go-yogan-auth/database"
	"github.com/KOMKZ/go-yogan-auth/gateway"
	"github.com/KOMKZ/go-yogan-auth/health"
	"github.com/KOMKZ/go-yogan-auth/history"
	"github.com/KOMKZ/go-yogan-auth/limiter"
	"github.com/KOMKZ/go-yogan-auth/logger"
	"github.com/KOMKZ/go-yogan-auth/middleware"
	"github.com/KOMKZ/go-yogan-auth/redis"
	"github.com/KOMKZ/go-yogan-auth/telemetry"
	"github.com/KOMKZ/go-yogan-auth/token"
	"github.com/KOMKZ/go-yogan-auth/tokenstore"
)

// Register installs every provider. Configuration sections must be provided
// as values beforehand, see application.AppConfig.Provide. Missing optional
// sections fall back to their package defaults.
func Register(i do.Injector) {
	do.Provide(i, ProvideLoggerManager)
	do.Provide(i, ProvideTelemetry)
	do.Provide(i, ProvideRedisMetrics)
	do.Provide(i, ProvideRedisManager)
	do.Provide(i, ProvideDBMetrics)
	do.Provide(i, ProvideDatabaseManager)
	do.Provide(i, ProvideTokenStore)
	do.Provide(i, ProvideAccountRepository)
	do.Provide(i, ProvidePasswordHasher)
	do.Provide(i, ProvideHistory)
	do.Provide(i, ProvideRetention)
	do.Provide(i, ProvideTokenMetrics)
	do.Provide(i, ProvideTokenService)
	do.Provide(i, ProvideAccountService)
	do.Provide(i, ProvideLimiterMetrics)
	do.Provide(i, ProvideFixedWindow)
	do.Provide(i, ProvideHealth)
	do.Provide(i, ProvideHTTPMetrics)
	do.Provide(i, ProvideGateway)
}

func ProvideLoggerManager(i do.Injector) (*logger.Manager, error) {
	cfg, err := do.Invoke[logger.ManagerConfig](i)
	if err != nil {
		cfg = logger.DefaultManagerConfig()
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("logger config: %w", err)
	}

	m := logger.NewManager(cfg)
	logger.InitManager(m)
	return m, nil
}

// ProvideTelemetry starts the providers immediately so later components pick
// up the installed globals.
func ProvideTelemetry(i do.Injector) (*telemetry.Manager, error) {
	lm := do.MustInvoke[*logger.Manager](i)
	cfg, err := do.Invoke[telemetry.Config](i)
	if err != nil {
		cfg = telemetry.DefaultConfig()
	}

	m := telemetry.NewManager(cfg, lm.GetLogger("telemetry"))
	if err := m.Start(context.Background()); err != nil {
		return nil, fmt.Errorf("start telemetry: %w", err)
	}
	return m, nil
}

func ProvideRedisMetrics(i do.Injector) (*redis.RedisMetrics, error) {
	tm := do.MustInvoke[*telemetry.Manager](i)
	cfg, err := do.Invoke[redis.RedisMetricsConfig](i)
	if err != nil {
		cfg = redis.RedisMetricsConfig{}
	}

	m := redis.NewRedisMetrics(cfg)
	if err := tm.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func ProvideRedisManager(i do.Injector) (*redis.Manager, error) {
	lm := do.MustInvoke[*logger.Manager](i)
	configs, err := do.Invoke[map[string]redis.Config](i)
	if err != nil {
		return nil, fmt.Errorf("redis config: %w", err)
	}
	if _, ok := configs[RedisInstance]; !ok {
		return nil, fmt.Errorf("redis.%s is not configured", RedisInstance)
	}

	m, err := redis.NewManager(configs, lm.GetLogger("redis"))
	if err != nil {
		return nil, err
	}
	m.SetMetrics(do.MustInvoke[*redis.RedisMetrics](i))
	return m, nil
}

func ProvideDBMetrics(i do.Injector) (*database.DBMetrics, error) {
	tm := do.MustInvoke[*telemetry.Manager](i)
	cfg, err := do.Invoke[database.DBMetricsConfig](i)
	if err != nil {
		cfg = database.DBMetricsConfig{}
	}

	m := database.NewDBMetrics(cfg)
	if err := tm.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func ProvideDatabaseManager(i do.Injector) (*database.Manager, error) {
	lm := do.MustInvoke[*logger.Manager](i)
	tm := do.MustInvoke[*telemetry.Manager](i)
	configs, err := do.Invoke[map[string]database.Config](i)
	if err != nil {
		return nil, fmt.Errorf("database config: %w", err)
	}
	if _, ok := configs[DatabaseInstance]; !ok {
		return nil, fmt.Errorf("database.%s is not configured", DatabaseInstance)
	}

	m, err := database.NewManager(configs, database.DefaultGormLoggerFactory, lm.GetLogger("database"),
		database.WithTracerProvider(tm.TracerProvider()))
	if err != nil {
		return nil, err
	}
	if err := m.SetMetrics(do.MustInvoke[*database.DBMetrics](i)); err != nil {
		_ = m.Close()
		return nil, err
	}
	return m, nil
}

func ProvideTokenStore(i do.Injector) (*tokenstore.RedisStore, error) {
	lm := do.MustInvoke[*logger.Manager](i)
	rm, err := do.Invoke[*redis.Manager](i)
	if err != nil {
		return nil, err
	}
	cfg := tokenConfig(i)
	return tokenstore.NewRedisStore(rm.MustClient(RedisInstance), cfg.KeyPrefix, lm.GetLogger("tokenstore")), nil
}

func ProvideAccountRepository(i do.Injector) (*account.Repository, error) {
	dm, err := do.Invoke[*database.Manager](i)
	if err != nil {
		return nil, err
	}
	return account.NewRepository(dm.MustDB(DatabaseInstance)), nil
}

func ProvidePasswordHasher(i do.Injector) (*account.PasswordHasher, error) {
	cfg, err := do.Invoke[account.Config](i)
	if err != nil {
		cfg = account.Config{}
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return account.NewPasswordHasher(cfg.BcryptCost)
}

func ProvideHistory(i do.Injector) (*History, error) {
	lm := do.MustInvoke[*logger.Manager](i)
	dm, err := do.Invoke[*database.Manager](i)
	if err != nil {
		return nil, err
	}
	return NewHistory(dm.MustDB(DatabaseInstance), historyConfig(i), lm.GetLogger("history"))
}

func ProvideRetention(i do.Injector) (*history.Retention, error) {
	lm := do.MustInvoke[*logger.Manager](i)
	h, err := do.Invoke[*History](i)
	if err != nil {
		return nil, err
	}
	return history.NewRetention(h.Store(), historyConfig(i).Retention, lm.GetLogger("history"))
}

func ProvideTokenMetrics(i do.Injector) (*token.Metrics, error) {
	tm := do.MustInvoke[*telemetry.Manager](i)
	m := token.NewMetrics(tokenConfig(i).Metrics)
	if err := tm.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func ProvideTokenService(i do.Injector) (*token.Service, error) {
	lm := do.MustInvoke[*logger.Manager](i)
	store, err := do.Invoke[*tokenstore.RedisStore](i)
	if err != nil {
		return nil, err
	}
	hist, err := do.Invoke[*History](i)
	if err != nil {
		return nil, err
	}
	repo, err := do.Invoke[*account.Repository](i)
	if err != nil {
		return nil, err
	}
	return token.NewService(tokenConfig(i), store,
		token.WithHistory(hist),
		token.WithFamilyMirror(repo),
		token.WithMetrics(do.MustInvoke[*token.Metrics](i)),
		token.WithLogger(lm.GetLogger("token")),
	)
}

func ProvideAccountService(i do.Injector) (*account.Service, error) {
	lm := do.MustInvoke[*logger.Manager](i)
	tokens, err := do.Invoke[*token.Service](i)
	if err != nil {
		return nil, err
	}
	hasher, err := do.Invoke[*account.PasswordHasher](i)
	if err != nil {
		return nil, err
	}
	// token.Service already resolved both of these
	repo := do.MustInvoke[*account.Repository](i)
	hist := do.MustInvoke[*History](i)
	return account.NewService(repo, hasher, tokens, hist, lm.GetLogger("account")), nil
}

func ProvideLimiterMetrics(i do.Injector) (*limiter.Metrics, error) {
	tm := do.MustInvoke[*telemetry.Manager](i)
	m := limiter.NewMetrics(limiterConfig(i).Metrics)
	if err := tm.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func ProvideFixedWindow(i do.Injector) (*limiter.FixedWindow, error) {
	lm := do.MustInvoke[*logger.Manager](i)
	store, err := do.Invoke[*tokenstore.RedisStore](i)
	if err != nil {
		return nil, err
	}
	return limiter.NewFixedWindow(store,
		limiter.WithMetrics(do.MustInvoke[*limiter.Metrics](i)),
		limiter.WithLogger(lm.GetLogger("limiter")),
	), nil
}

func ProvideHealth(i do.Injector) (*health.Aggregator, error) {
	cfg, err := do.Invoke[health.Config](i)
	if err != nil {
		cfg = health.DefaultConfig()
	}
	cfg.ApplyDefaults()

	rm, err := do.Invoke[*redis.Manager](i)
	if err != nil {
		return nil, err
	}
	dm, err := do.Invoke[*database.Manager](i)
	if err != nil {
		return nil, err
	}

	a := health.NewAggregator(cfg.Timeout)
	a.Register(rm.Checker(), dm.Checker())
	return a, nil
}

func ProvideHTTPMetrics(i do.Injector) (*middleware.HTTPMetrics, error) {
	tm := do.MustInvoke[*telemetry.Manager](i)
	return middleware.NewHTTPMetrics(tm.Meter("auth/http"))
}

func ProvideGateway(i do.Injector) (*gateway.Handler, error) {
	accounts, err := do.Invoke[*account.Service](i)
	if err != nil {
		return nil, err
	}
	return gateway.NewHandler(
		do.MustInvoke[*token.Service](i),
		accounts,
		do.MustInvoke[*History](i),
	), nil
}

func tokenConfig(i do.Injector) token.Config {
	cfg, err := do.Invoke[token.Config](i)
	if err != nil {
		cfg = token.DefaultConfig()
	}
	cfg.ApplyDefaults()
	return cfg
}

func limiterConfig(i do.Injector) limiter.Config {
	cfg, err := do.Invoke[limiter.Config](i)
	if err != nil {
		cfg = limiter.DefaultConfig()
	}
	cfg.ApplyDefaults()
	return cfg
}

func historyConfig(i do.Injector) history.Config {
	cfg, err := do.Invoke[history.Config](i)
	if err != nil {
		cfg = history.DefaultConfig()
	}
	cfg.ApplyDefaults()
	return cfg
}
