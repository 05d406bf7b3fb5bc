package application

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/do/v2"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/KOMKZ/go-yogan-auth/gateway"
	"github.com/KOMKZ/go-yogan-auth/health"
	"github.com/KOMKZ/go-yogan-auth/httpx"
	"github.com/KOMKZ/go-yogan-auth/limiter"
	"github.com/KOMKZ/go-yogan-auth/logger"
	"github.com/KOMKZ/go-yogan-auth/middleware"
	"github.com/KOMKZ/go-yogan-auth/telemetry"
)

// HTTPServer serves the gateway routes and /healthz.
type HTTPServer struct {
	engine *gin.Engine
	server *http.Server
	cfg    ApiServerConfig
	logger *logger.CtxZapLogger
}

// NewHTTPServer builds the engine from the injector. Middleware order:
// otelgin, trace id, metrics, request log, error logging, recovery.
func NewHTTPServer(i do.Injector) (*HTTPServer, error) {
	cfg := do.MustInvoke[AppConfig](i)
	lm := do.MustInvoke[*logger.Manager](i)
	tm := do.MustInvoke[*telemetry.Manager](i)

	h, err := do.Invoke[*gateway.Handler](i)
	if err != nil {
		return nil, err
	}
	fw, err := do.Invoke[*limiter.FixedWindow](i)
	if err != nil {
		return nil, err
	}

	gin.DefaultWriter = logger.NewGinLogWriter("gin")
	gin.DefaultErrorWriter = logger.NewGinLogWriter("gin")
	gin.SetMode(cfg.ApiServer.Mode)

	engine := gin.New()
	engine.HandleMethodNotAllowed = true

	if tm.IsEnabled() {
		engine.Use(otelgin.Middleware(cfg.Telemetry.ServiceName,
			otelgin.WithTracerProvider(tm.TracerProvider())))
	}

	mw := cfg.Middleware
	if mw.TraceID.Enable {
		tc := middleware.DefaultTraceConfig()
		if mw.TraceID.TraceIDKey != "" {
			tc.Key = mw.TraceID.TraceIDKey
		}
		if mw.TraceID.TraceIDHeader != "" {
			tc.Header = mw.TraceID.TraceIDHeader
		}
		tc.EnableResponseHeader = mw.TraceID.EnableResponseHeader
		engine.Use(middleware.TraceID(tc))
	}

	if mw.CORS.Enable {
		engine.Use(middleware.CORS(mw.CORS))
	}

	if mw.Metrics.Enabled {
		m, err := do.Invoke[*middleware.HTTPMetrics](i)
		if err != nil {
			return nil, err
		}
		engine.Use(m.Handler())
	}

	if mw.RequestLog.Enable {
		engine.Use(middleware.RequestLog(middleware.RequestLogConfig{SkipPaths: mw.RequestLog.SkipPaths}))
	}

	if cfg.Httpx.Enable {
		engine.Use(httpx.ErrorLoggingMiddleware(cfg.Httpx))
	}

	engine.Use(middleware.Recovery())

	engine.NoRoute(httpx.NoRouteHandler())
	engine.NoMethod(httpx.NoMethodHandler())

	if cfg.Health.Enabled {
		agg, err := do.Invoke[*health.Aggregator](i)
		if err != nil {
			return nil, err
		}
		engine.GET("/healthz", health.Handler(agg))
	}
	h.Register(engine, fw, cfg.Limiter)

	return &HTTPServer{
		engine: engine,
		cfg:    cfg.ApiServer,
		logger: lm.GetLogger("http"),
	}, nil
}

func (s *HTTPServer) Engine() *gin.Engine {
	return s.engine
}

// Run serves on the configured address until ctx is cancelled, then shuts
// down gracefully within ShutdownTimeout.
func (s *HTTPServer) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *HTTPServer) Serve(ctx context.Context, ln net.Listener) error {
	s.server = &http.Server{
		Handler:      s.engine,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.InfoCtx(ctx, "http server listening", zap.String("addr", ln.Addr().String()))
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			s.logger.ErrorCtx(ctx, "http server failed", zap.Error(err))
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	s.logger.Info("shutting down http server")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	s.logger.Info("http server closed")
	return nil
}
