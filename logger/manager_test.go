package logger

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func fileOnlyConfig(dir string) ManagerConfig {
	return ManagerConfig{
		BaseLogDir:            dir,
		Level:                 "info",
		Encoding:              "json",
		EnableFile:            true,
		EnableLevelInFilename: true,
		MaxSize:               10,
		EnableStacktrace:      true,
		EnableTraceID:         true,
	}
}

func TestManager_MultipleModules(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(fileOnlyConfig(dir))

	m.GetLogger("account").Info("user created", zap.String("id", "001"))
	m.GetLogger("token").Error("refresh rejected", zap.String("reason", "revoked"))
	m.CloseAll()

	info := filepath.Join(dir, "account", "account-info.log")
	errFile := filepath.Join(dir, "token", "token-error.log")
	require.FileExists(t, info)
	require.FileExists(t, errFile)

	content, err := os.ReadFile(info)
	require.NoError(t, err)
	assert.Contains(t, string(content), "user created")
	assert.Contains(t, string(content), `"module":"account"`)

	content, err = os.ReadFile(errFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "refresh rejected")
	assert.Contains(t, string(content), `"stack"`)
}

func TestManager_LevelSplit(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(fileOnlyConfig(dir))

	log := m.GetLogger("limiter")
	log.Warn("bucket nearly full")
	log.Error("store unavailable")
	m.CloseAll()

	info, err := os.ReadFile(filepath.Join(dir, "limiter", "limiter-info.log"))
	require.NoError(t, err)
	errs, err := os.ReadFile(filepath.Join(dir, "limiter", "limiter-error.log"))
	require.NoError(t, err)

	assert.Contains(t, string(info), "bucket nearly full")
	assert.NotContains(t, string(info), "store unavailable")
	assert.Contains(t, string(errs), "store unavailable")
	assert.NotContains(t, string(errs), "bucket nearly full")
}

func TestManager_DebugFilteredAtInfo(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(fileOnlyConfig(dir))

	m.GetLogger("history").Debug("hidden")
	m.GetLogger("history").Info("visible")
	m.CloseAll()

	content, err := os.ReadFile(filepath.Join(dir, "history", "history-info.log"))
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(content), "hidden"))
	assert.Contains(t, string(content), "visible")
}

func TestManager_SameInstancePerModule(t *testing.T) {
	m := NewManager(ManagerConfig{Level: "info"})
	assert.Same(t, m.GetLogger("gateway"), m.GetLogger("gateway"))
	assert.NotSame(t, m.GetLogger("gateway"), m.GetLogger("account"))
}

func TestInitManager_ReplacesGlobal(t *testing.T) {
	t.Cleanup(func() { InitManager(nil) })

	first := NewManager(ManagerConfig{Level: "info"})
	second := NewManager(ManagerConfig{Level: "debug"})

	InitManager(first)
	assert.Same(t, first.GetLogger("x"), GetLogger("x"))

	InitManager(second)
	assert.Same(t, second.GetLogger("x"), GetLogger("x"))
}

func TestCtxZapLogger_TraceID(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := NewFromZap("gateway", zap.New(core))

	ctx := context.WithValue(context.Background(), "trace_id", "abc-123")
	l.InfoCtx(ctx, "request handled")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "abc-123", fields["trace_id"])
	assert.Equal(t, "gateway", fields["module"])
}

func TestCtxZapLogger_With(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := NewFromZap("account", zap.New(core)).With(zap.String("user_id", "u1"))

	l.Warn("credentials changed")

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "u1", logs.All()[0].ContextMap()["user_id"])
	assert.Equal(t, "account", l.Module())
}

func TestTraceIDFromContext(t *testing.T) {
	assert.Equal(t, "", TraceIDFromContext(context.Background(), "trace_id"))

	ctx := context.WithValue(context.Background(), "custom", "c-1")
	assert.Equal(t, "c-1", TraceIDFromContext(ctx, "custom"))
	assert.Equal(t, "", TraceIDFromContext(ctx, "trace_id"))
}

func TestCaptureStacktrace_Depth(t *testing.T) {
	stack := CaptureStacktrace(1, 2)
	assert.NotEmpty(t, stack)
	// two frames, each "func\n\tfile:line"
	assert.Equal(t, 3, strings.Count(stack, "\n"))
}

func TestConfig_Validate(t *testing.T) {
	cfg := DefaultManagerConfig()
	assert.NoError(t, cfg.Validate())

	cfg.Encoding = "pretty"
	assert.Error(t, cfg.Validate())

	cfg = DefaultManagerConfig()
	cfg.Level = "verbose"
	assert.Error(t, cfg.Validate())
}

func TestConfig_FilePath(t *testing.T) {
	mc := moduleConfig{
		ManagerConfig: ManagerConfig{BaseLogDir: "logs", EnableLevelInFilename: true},
		moduleName:    "token",
	}
	assert.Equal(t, filepath.Join("logs", "token", "token-error.log"), mc.filePath("error"))

	mc.EnableLevelInFilename = false
	assert.Equal(t, filepath.Join("logs", "token", "token.log"), mc.filePath("error"))
}
