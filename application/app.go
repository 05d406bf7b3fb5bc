package application

import (
	"context"
	"fmt"
	"net"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/KOMKZ/go-yogan-auth/account"
	"github.com/KOMKZ/go-yogan-auth/config"
	"github.com/KOMKZ/go-yogan-auth/database"
	"github.com/KOMKZ/go-yogan-auth/di"
	"github.com/KOMKZ/go-yogan-auth/history"
	"github.com/KOMKZ/go-yogan-auth/logger"
)

// App owns the injector for one process lifetime.
type App struct {
	cfg      *AppConfig
	injector *do.RootScope
	logger   *logger.CtxZapLogger
}

func New(cfg *AppConfig) *App {
	injector := di.New()
	cfg.Provide(injector)
	di.Register(injector)
	return &App{cfg: cfg, injector: injector}
}

func (a *App) Injector() *do.RootScope {
	return a.injector
}

func (a *App) Config() *AppConfig {
	return a.cfg
}

// Setup builds the logger first so later failures are logged.
func (a *App) Setup() error {
	lm, err := do.Invoke[*logger.Manager](a.injector)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	a.logger = lm.GetLogger(a.cfg.App.Name)
	a.logger.Info("application starting",
		zap.String("name", a.cfg.App.Name),
		zap.String("version", a.cfg.App.Version),
		zap.String("env", config.GetEnv()))
	return nil
}

// Run serves until ctx is cancelled or SIGINT/SIGTERM arrives, then shuts
// the injector down in reverse dependency order.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", a.cfg.ApiServer.Addr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", a.cfg.ApiServer.Addr(), err)
	}
	return a.Serve(ctx, ln)
}

// Serve is Run on an existing listener, without signal handling.
func (a *App) Serve(ctx context.Context, ln net.Listener) error {
	if a.logger == nil {
		if err := a.Setup(); err != nil {
			_ = ln.Close()
			return err
		}
	}
	defer a.shutdown()

	srv, err := NewHTTPServer(a.injector)
	if err != nil {
		_ = ln.Close()
		a.logger.Error("failed to build http server", zap.Error(err))
		return err
	}

	var retention *history.Retention
	if a.cfg.History.Retention.Enabled {
		if retention, err = do.Invoke[*history.Retention](a.injector); err != nil {
			_ = ln.Close()
			a.logger.Error("failed to build retention job", zap.Error(err))
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Serve(gctx, ln)
	})
	if retention != nil {
		g.Go(func() error {
			retention.Start()
			<-gctx.Done()
			return nil
		})
	}

	a.logger.Info("application started", zap.String("addr", ln.Addr().String()))
	err = g.Wait()
	if err != nil {
		a.logger.Error("application stopped with error", zap.Error(err))
	}
	return err
}

func (a *App) shutdown() {
	timeout := a.cfg.ApiServer.ShutdownTimeout
	if timeout <= 0 {
		timeout = DefaultAppConfig().ApiServer.ShutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	a.logger.Info("application shutting down")
	report := a.injector.ShutdownWithContext(ctx)
	if report != nil && !report.Succeed {
		a.logger.Warn("injector shutdown incomplete", zap.String("report", report.Error()))
	}
}

// Migrate creates or updates the users and auth_history tables.
func (a *App) Migrate(ctx context.Context) error {
	if a.logger == nil {
		if err := a.Setup(); err != nil {
			return err
		}
	}
	defer a.shutdown()

	dm, err := do.Invoke[*database.Manager](a.injector)
	if err != nil {
		return err
	}
	if err := Migrate(dm.MustDB(di.DatabaseInstance).WithContext(ctx)); err != nil {
		return err
	}
	a.logger.InfoCtx(ctx, "migration finished")
	return nil
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&account.User{}, &history.Event{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
