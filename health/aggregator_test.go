package health

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KOMKZ/go-yogan-auth/testutil"
)

func passing(name string) Checker {
	return CheckerFunc{CheckName: name, Fn: func(context.Context) error { return nil }}
}

func failing(name string) Checker {
	return CheckerFunc{CheckName: name, Fn: func(context.Context) error { return errors.New("connection refused") }}
}

func TestAggregator(t *testing.T) {
	a := NewAggregator(time.Second)
	resp := a.Check(context.Background())
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Empty(t, resp.Checks)

	a.Register(passing("redis"), failing("database"))
	resp = a.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, resp.Status)
	assert.Equal(t, StatusHealthy, resp.Checks["redis"].Status)
	assert.Equal(t, "connection refused", resp.Checks["database"].Error)
}

func TestAggregatorTimeout(t *testing.T) {
	a := NewAggregator(20 * time.Millisecond)
	a.Register(CheckerFunc{CheckName: "slow", Fn: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}})

	resp := a.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, resp.Status)
	assert.Contains(t, resp.Checks["slow"].Error, "deadline exceeded")
}

func TestHandler(t *testing.T) {
	a := NewAggregator(time.Second)
	a.Register(passing("redis"))

	r := testutil.NewEngine()
	r.GET("/healthz", Handler(a))
	require.Equal(t, http.StatusOK, testutil.GET("/healthz").Do(r).Status())

	a.Register(failing("database"))
	resp := testutil.GET("/healthz").Do(r)
	require.Equal(t, http.StatusServiceUnavailable, resp.Status())

	var body Response
	require.NoError(t, resp.JSON(&body))
	assert.Equal(t, StatusUnhealthy, body.Status)
}
