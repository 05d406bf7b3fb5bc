package di

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/IBM/sarama/mocks"
	"github.com/alicebob/miniredis/v2"
	"github.com/samber/do/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KOMKZ/go-yogan-auth/account"
	"github.com/KOMKZ/go-yogan-auth/database"
	"github.com/KOMKZ/go-yogan-auth/gateway"
	"github.com/KOMKZ/go-yogan-auth/health"
	"github.com/KOMKZ/go-yogan-auth/history"
	"github.com/KOMKZ/go-yogan-auth/limiter"
	"github.com/KOMKZ/go-yogan-auth/logger"
	"github.com/KOMKZ/go-yogan-auth/redis"
	"github.com/KOMKZ/go-yogan-auth/testutil"
	"github.com/KOMKZ/go-yogan-auth/token"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func sqliteDSN(t *testing.T) string {
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	return fmt.Sprintf("file:di_%s?mode=memory&cache=shared", name)
}

func newInjector(t *testing.T, mr *miniredis.Miniredis) *do.RootScope {
	t.Helper()

	i := New()
	do.ProvideValue(i, logger.ManagerConfig{
		Level:    "info",
		Encoding: "console",
	})
	do.ProvideValue(i, map[string]redis.Config{
		RedisInstance: {Addr: mr.Addr()},
	})
	do.ProvideValue(i, map[string]database.Config{
		DatabaseInstance: {Driver: "sqlite", DSN: sqliteDSN(t), MaxOpenConns: 4, MaxIdleConns: 4},
	})
	cfg := token.DefaultConfig()
	cfg.Secret = testSecret
	do.ProvideValue(i, cfg)
	do.ProvideValue(i, account.Config{BcryptCost: 4})
	hist := history.DefaultConfig()
	hist.Retention.Enabled = false
	do.ProvideValue(i, hist)
	Register(i)

	t.Cleanup(func() { _ = i.ShutdownWithContext(context.Background()) })
	return i
}

func migrate(t *testing.T, i do.Injector) {
	t.Helper()
	dm := do.MustInvoke[*database.Manager](i)
	require.NoError(t, dm.MustDB(DatabaseInstance).AutoMigrate(&account.User{}, &history.Event{}))
}

func TestRegister_BuildsGraph(t *testing.T) {
	mr := miniredis.RunT(t)
	i := newInjector(t, mr)
	migrate(t, i)

	h, err := do.Invoke[*gateway.Handler](i)
	require.NoError(t, err)
	assert.NotNil(t, h)

	_, err = do.Invoke[*limiter.FixedWindow](i)
	require.NoError(t, err)

	agg := do.MustInvoke[*health.Aggregator](i)
	resp := agg.Check(context.Background())
	assert.True(t, resp.IsHealthy())
	assert.Len(t, resp.Checks, 2)
}

func TestRegister_ServicesShareStore(t *testing.T) {
	mr := miniredis.RunT(t)
	i := newInjector(t, mr)
	migrate(t, i)
	ctx := context.Background()

	accounts := do.MustInvoke[*account.Service](i)
	tokens := do.MustInvoke[*token.Service](i)

	pair, err := accounts.Signup(ctx, "di@example.com", "longpass1")
	require.NoError(t, err)

	claims, err := tokens.Validate(ctx, pair.AccessToken, token.TypeAccess)
	require.NoError(t, err)
	assert.True(t, mr.Exists("auth:family:"+claims.Subject))

	events, total, err := do.MustInvoke[*History](i).List(ctx, claims.Subject, 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, history.ActionLogin, events[0].Action)
}

func TestRegister_MissingRedisConfig(t *testing.T) {
	i := New()
	do.ProvideValue(i, logger.ManagerConfig{Level: "info", Encoding: "console"})
	Register(i)

	_, err := do.Invoke[*redis.Manager](i)
	require.Error(t, err)
}

func TestRegister_RedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	i := New()
	do.ProvideValue(i, logger.ManagerConfig{Level: "info", Encoding: "console"})
	do.ProvideValue(i, map[string]redis.Config{RedisInstance: {Addr: addr, DialTimeout: 100 * time.Millisecond}})
	Register(i)

	_, err := do.Invoke[*token.Service](i)
	require.Error(t, err)
}

func TestHistory_FansOutToKafka(t *testing.T) {
	db := testutil.NewSQLite(t, &history.Event{})
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndSucceed()
	producer.ExpectSendMessageAndSucceed()

	cfg := history.DefaultConfig()
	cfg.Kafka.Enabled = true
	cfg.Kafka.Brokers = []string{"localhost:9092"}

	h, err := newHistory(db, cfg, producer, logger.NewNop("history"))
	require.NoError(t, err)

	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, h.Append(ctx, "u1", history.ActionLogin, now))
	require.NoError(t, h.Append(ctx, "u1", history.ActionRefresh, now.Add(time.Second)))
	require.NoError(t, h.Flush(ctx))

	events, total, err := h.List(ctx, "u1", 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Equal(t, history.ActionRefresh, events[0].Action)

	require.NoError(t, h.Shutdown())
}

func TestHistory_KafkaFailureDoesNotFailAppend(t *testing.T) {
	db := testutil.NewSQLite(t, &history.Event{})
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(fmt.Errorf("broker down"))

	cfg := history.DefaultConfig()
	cfg.Kafka.Enabled = true
	cfg.Kafka.Brokers = []string{"localhost:9092"}
	cfg.Async.Enabled = false

	h, err := newHistory(db, cfg, producer, logger.NewNop("history"))
	require.NoError(t, err)

	require.NoError(t, h.Append(context.Background(), "u1", history.ActionLogout, time.Now()))
	_, total, err := h.List(context.Background(), "u1", 1, 20)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.NoError(t, h.Shutdown())
}

func TestHistory_DatabaseOnly(t *testing.T) {
	db := testutil.NewSQLite(t, &history.Event{})
	h, err := newHistory(db, history.DefaultConfig(), nil, logger.NewNop("history"))
	require.NoError(t, err)
	assert.Nil(t, h.kafka)
	assert.Nil(t, h.async)
	assert.NoError(t, h.Flush(context.Background()))
	assert.NoError(t, h.Shutdown())
}
