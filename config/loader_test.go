package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoader_PriorityOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", `
api_server:
  host: 0.0.0.0
  port: 8080
token:
  access_ttl: 24h
`)
	writeFile(t, dir, "test.yaml", `
api_server:
  port: 9090
`)
	t.Setenv("APP_ENV", "test")
	t.Setenv("AUTH_TOKEN__ACCESS_TTL", "15m")

	loader, err := NewLoaderBuilder().
		WithConfigPath(dir).
		WithEnvPrefix("AUTH").
		Build()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", loader.GetString("api_server.host"))
	assert.Equal(t, 9090, loader.GetInt("api_server.port"))
	assert.Equal(t, "15m", loader.GetString("token.access_ttl"))
	assert.Len(t, loader.GetLoadedFiles(), 2)
}

func TestLoader_FlagsWin(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", "api_server:\n  port: 8080\n")
	t.Setenv("AUTH_API_SERVER__PORT", "8081")

	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	fs.Int("port", 0, "")
	fs.String("host", "", "")
	require.NoError(t, fs.Parse([]string{"--port=8082"}))

	loader, err := NewLoaderBuilder().
		WithConfigPath(dir).
		WithEnvPrefix("AUTH").
		WithFlags(fs, map[string]string{"port": "api_server.port", "host": "api_server.host"}).
		Build()
	require.NoError(t, err)

	assert.Equal(t, 8082, loader.GetInt("api_server.port"))
	assert.False(t, loader.IsSet("api_server.host"), "unset flags must not override")
}

func TestLoader_MissingFilesAreEmpty(t *testing.T) {
	loader, err := NewLoaderBuilder().WithConfigPath(t.TempDir()).Build()
	require.NoError(t, err)
	assert.Empty(t, loader.GetLoadedFiles())
	assert.Empty(t, loader.AllSettings())
}

func TestLoader_BrokenFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", "api_server: [unterminated")

	_, err := NewLoaderBuilder().WithConfigPath(dir).Build()
	assert.Error(t, err)
}

func TestLoader_UnmarshalKey(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", `
limiter:
  key_prefix: rl
  routes:
    login:
      limit: 10
      interval: 60s
`)
	loader, err := NewLoaderBuilder().WithConfigPath(dir).Build()
	require.NoError(t, err)

	var cfg struct {
		KeyPrefix string `mapstructure:"key_prefix"`
		Routes    map[string]struct {
			Limit    int           `mapstructure:"limit"`
			Interval time.Duration `mapstructure:"interval"`
		} `mapstructure:"routes"`
	}
	require.NoError(t, loader.UnmarshalKey("limiter", &cfg))
	assert.Equal(t, "rl", cfg.KeyPrefix)
	assert.Equal(t, 10, cfg.Routes["login"].Limit)
	assert.Equal(t, time.Minute, cfg.Routes["login"].Interval)
}

func TestEnvSource_Bindings(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cr3t")

	src := NewEnvSource("", 50)
	src.AddBinding("token.secret", "JWT_SECRET")
	data, err := src.Load()
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", data["token.secret"])
}

func TestUnflattenMap(t *testing.T) {
	nested := unflattenMap(map[string]interface{}{
		"redis.main.addr": "localhost:6379",
		"redis.main.db":   1,
		"app":             "auth",
	})

	redis := nested["redis"].(map[string]interface{})["main"].(map[string]interface{})
	assert.Equal(t, "localhost:6379", redis["addr"])
	assert.Equal(t, 1, redis["db"])
	assert.Equal(t, "auth", nested["app"])
}

func TestGetEnv(t *testing.T) {
	t.Setenv("APP_ENV", "")
	t.Setenv("ENV", "")
	assert.Equal(t, "dev", GetEnv())

	t.Setenv("ENV", "staging")
	assert.Equal(t, "staging", GetEnv())

	t.Setenv("APP_ENV", "prod")
	assert.Equal(t, "prod", GetEnv())
}

type stubValidator struct{ err error }

func (s stubValidator) Validate() error { return s.err }

func TestValidateAll(t *testing.T) {
	assert.NoError(t, ValidateAll(stubValidator{}, stubValidator{}))
	assert.Error(t, ValidateAll(stubValidator{}, stubValidator{err: assert.AnError}))
}
