package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerformanceTracker(t *testing.T) {
	tracker := NewPerformanceTracker()
	tracker.TrackOperation("portfolio.history", 20*time.Millisecond)
	tracker.TrackOperation("portfolio.history", 40*time.Millisecond)
	tracker.TrackOperation("accounts.value", 5*time.Millisecond)

	stats := tracker.Snapshot()

	require.Len(t, stats, 2)
	assert.Equal(t, "accounts.value", stats[0].Operation, "snapshot is sorted by operation")
	assert.Equal(t, "portfolio.history", stats[1].Operation)
	assert.Equal(t, 2, stats[1].Count)
	assert.InDelta(t, 30.0, stats[1].AverageMs, 0.01)
	assert.InDelta(t, 60.0, stats[1].TotalMs, 0.01)

	report := tracker.GenerateAggregateReport()
	assert.Contains(t, report, "portfolio.history")
	assert.Contains(t, report, "Count: 2")
}

func TestLoadConfigDefaults(t *testing.T) {
	config, err := LoadConfig(t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, "8080", config.Server.Port)
	assert.Equal(t, "local", config.Server.DefaultUser)
	assert.Equal(t, 5, config.MarketData.BatchSize)
	assert.Equal(t, 15*time.Second, config.MarketData.RequestTimeout())
	assert.Contains(t, config.Database.DSN, "dbname=portfolio")
}
