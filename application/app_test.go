package application

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/samber/do/v2"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KOMKZ/go-yogan-auth/database"
	"github.com/KOMKZ/go-yogan-auth/di"
	"github.com/KOMKZ/go-yogan-auth/redis"
	"github.com/KOMKZ/go-yogan-auth/telemetry"
	"github.com/KOMKZ/go-yogan-auth/testutil"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func testConfig(t *testing.T, mr *miniredis.Miniredis) *AppConfig {
	t.Helper()

	cfg := DefaultAppConfig()
	cfg.ApiServer.Mode = "test"
	cfg.ApiServer.ShutdownTimeout = 5 * time.Second
	cfg.Logger.EnableConsole = false
	cfg.Logger.EnableFile = false
	cfg.Token.Secret = testSecret
	cfg.Account.BcryptCost = 4
	cfg.History.Retention.Enabled = false
	cfg.Middleware.CORS.Enable = true
	cfg.DBMetrics = database.DBMetricsConfig{Enabled: true, RecordPoolStats: true}
	cfg.Redis = map[string]redis.Config{di.RedisInstance: {Addr: mr.Addr()}}

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	cfg.Database = map[string]database.Config{di.DatabaseInstance: {
		Driver:       "sqlite",
		DSN:          fmt.Sprintf("file:app_%s?mode=memory&cache=shared", name),
		MaxOpenConns: 4,
		MaxIdleConns: 4,
	}}
	cfg.ApplyDefaults()
	require.NoError(t, cfg.Validate())
	return &cfg
}

func writeFile(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
}

func TestLoad_FileEnvAndFlags(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", `
app:
  name: auth-test
api_server:
  port: 8081
  mode: debug
redis:
  main:
    addr: 127.0.0.1:6379
database:
  master:
    driver: sqlite
    dsn: file:auth.db
token:
  secret: 0123456789abcdef0123456789abcdef
  access_token_ttl: 15m
limiter:
  routes:
    login:
      limit: 5
      interval: 30s
      key_prefix: rl
`)
	writeFile(t, dir, "test.yaml", `
api_server:
  mode: test
`)
	t.Setenv("APP_ENV", "test")
	t.Setenv("AUTH_LOGGER__LEVEL", "warn")

	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	BindFlags(fs)
	require.NoError(t, fs.Parse([]string{"--port", "9090"}))

	cfg, err := Load(LoadOptions{ConfigDir: dir, Flags: fs})
	require.NoError(t, err)

	assert.Equal(t, "auth-test", cfg.App.Name)
	assert.Equal(t, 9090, cfg.ApiServer.Port)
	assert.Equal(t, "test", cfg.ApiServer.Mode)
	assert.Equal(t, "warn", cfg.Logger.Level)
	assert.Equal(t, 15*time.Minute, cfg.Token.AccessTokenTTL)
	assert.Equal(t, "auth-test", cfg.Telemetry.ServiceName)
	assert.EqualValues(t, 5, cfg.Limiter.RuleFor("login").Limit)
	assert.Equal(t, "127.0.0.1:6379", cfg.Redis["main"].Addr)
}

func TestLoad_RejectsShortSecret(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", `
redis:
  main:
    addr: 127.0.0.1:6379
database:
  master:
    dsn: file:auth.db
token:
  secret: short
`)
	_, err := Load(LoadOptions{ConfigDir: dir})
	require.Error(t, err)
}

func TestAppConfig_Validate(t *testing.T) {
	cfg := DefaultAppConfig()
	cfg.ApplyDefaults()
	cfg.Token.Secret = testSecret
	require.Error(t, cfg.Validate(), "redis is required")

	cfg.Redis = map[string]redis.Config{"main": {Addr: "127.0.0.1:6379"}}
	require.Error(t, cfg.Validate(), "database is required")

	cfg.Database = map[string]database.Config{"master": database.DefaultConfig()}
	require.NoError(t, cfg.Validate())

	cfg.ApiServer.Mode = "staging"
	require.Error(t, cfg.Validate())
}

func TestHTTPServer_Routes(t *testing.T) {
	mr := miniredis.RunT(t)
	app := New(testConfig(t, mr))
	require.NoError(t, app.Setup())
	t.Cleanup(func() { app.shutdown() })

	dm := do.MustInvoke[*database.Manager](app.Injector())
	require.NoError(t, Migrate(dm.MustDB(di.DatabaseInstance)))

	srv, err := NewHTTPServer(app.Injector())
	require.NoError(t, err)

	resp := testutil.GET("/healthz").Do(srv.Engine())
	assert.Equal(t, http.StatusOK, resp.Status())
	assert.NotEmpty(t, resp.Header("X-Trace-ID"))

	resp = testutil.POST("/api/v1/signup").
		WithJSON(map[string]string{"email": "app@example.com", "password": "longpass1"}).
		Do(srv.Engine())
	assert.Equal(t, http.StatusCreated, resp.Status())

	resp = testutil.GET("/nope").Do(srv.Engine())
	assert.Equal(t, http.StatusNotFound, resp.Status())

	resp = testutil.DELETE("/api/v1/signup").Do(srv.Engine())
	assert.Equal(t, http.StatusMethodNotAllowed, resp.Status())

	resp = testutil.NewRequest(http.MethodOptions, "/api/v1/signup").
		WithHeader("Origin", "https://app.example.com").
		Do(srv.Engine())
	assert.Equal(t, http.StatusNoContent, resp.Status())
	assert.Equal(t, "*", resp.Header("Access-Control-Allow-Origin"))

	tm := do.MustInvoke[*telemetry.Manager](app.Injector())
	assert.Contains(t, tm.Registered(), "database")
}

func TestApp_ServeAndShutdown(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t, mr)

	app := New(cfg)
	require.NoError(t, app.Setup())
	dm := do.MustInvoke[*database.Manager](app.Injector())
	require.NoError(t, Migrate(dm.MustDB(di.DatabaseInstance)))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Serve(ctx, ln) }()

	base := "http://" + ln.Addr().String()
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	body, _ := json.Marshal(map[string]string{"email": "live@example.com", "password": "longpass1"})
	resp, err := http.Post(base+"/api/v1/signup", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("app did not stop")
	}
}

func TestApp_ServeFailsWithoutRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t, mr)
	mr.Close()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	err = New(cfg).Serve(context.Background(), ln)
	require.Error(t, err)
}

func TestApp_ServeFailsOnBadRetentionSchedule(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t, mr)
	cfg.History.Retention.Enabled = true
	cfg.History.Retention.Schedule = "every tuesday"

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()

	done := make(chan error, 1)
	go func() { done <- New(cfg).Serve(context.Background(), ln) }()

	select {
	case err := <-done:
		require.Error(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return")
	}

	// nothing is left accepting on the listener
	_, err = net.DialTimeout("tcp", addr, time.Second)
	assert.Error(t, err)
}
