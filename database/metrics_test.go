package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"gorm.io/gorm"

	"github.com/KOMKZ/go-yogan-auth/logger"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m.Data
		}
	}
	return out
}

func TestDBMetrics_RecordsOperations(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	metrics := NewDBMetrics(DBMetricsConfig{Enabled: true, RecordPoolStats: true})
	require.NoError(t, metrics.RegisterMetrics(mp.Meter("test")))
	require.NoError(t, metrics.RegisterMetrics(mp.Meter("test")))

	m, err := NewManager(map[string]Config{"main": memoryConfig(t.Name())}, nil, logger.NewNop("database"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	require.NoError(t, m.SetMetrics(metrics))
	require.NoError(t, m.SetMetrics(NewDBMetrics(DBMetricsConfig{Enabled: true})))

	db := m.MustDB("main")
	require.NoError(t, db.AutoMigrate(&widget{}))
	require.NoError(t, db.Create(&widget{Name: "counted"}).Error)
	var w widget
	assert.ErrorIs(t, db.Where("name = ?", "absent").First(&w).Error, gorm.ErrRecordNotFound)

	data := collect(t, reader)
	require.Contains(t, data, "db_queries_total")
	sum, ok := data["db_queries_total"].(metricdata.Sum[int64])
	require.True(t, ok)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	assert.GreaterOrEqual(t, total, int64(2))
	assert.Contains(t, data, "db_query_duration_seconds")
	assert.Contains(t, data, "db_connections_open")
	assert.NotContains(t, data, "db_errors_total", "not found is not an error")
}

func TestDBMetrics_Disabled(t *testing.T) {
	m, err := NewManager(map[string]Config{"main": memoryConfig(t.Name())}, nil, logger.NewNop("database"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })

	metrics := NewDBMetrics(DBMetricsConfig{})
	assert.False(t, metrics.IsMetricsEnabled())
	require.NoError(t, m.SetMetrics(metrics))
	require.NoError(t, m.SetMetrics(nil))

	// unregistered instruments are skipped
	require.NoError(t, m.MustDB("main").AutoMigrate(&widget{}))
	assert.False(t, metrics.IsRegistered())
}
