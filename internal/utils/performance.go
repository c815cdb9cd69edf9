package utils

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// PerformanceTracker aggregates request/operation timings for the metrics endpoint.
type PerformanceTracker struct {
	metrics map[string][]time.Duration
	mu      sync.Mutex
}

func NewPerformanceTracker() *PerformanceTracker {
	return &PerformanceTracker{
		metrics: make(map[string][]time.Duration),
	}
}

func (pt *PerformanceTracker) TrackOperation(operation string, duration time.Duration) {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	if pt.metrics == nil {
		pt.metrics = make(map[string][]time.Duration)
	}
	pt.metrics[operation] = append(pt.metrics[operation], duration)
}

// OperationStats summarizes the recorded timings for one operation.
type OperationStats struct {
	Operation string  `json:"operation"`
	Count     int     `json:"count"`
	AverageMs float64 `json:"average_ms"`
	TotalMs   float64 `json:"total_ms"`
}

// Snapshot returns per-operation stats sorted by operation name.
func (pt *PerformanceTracker) Snapshot() []OperationStats {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	stats := make([]OperationStats, 0, len(pt.metrics))
	for op, durations := range pt.metrics {
		var total time.Duration
		for _, d := range durations {
			total += d
		}
		avg := total / time.Duration(len(durations))
		stats = append(stats, OperationStats{
			Operation: op,
			Count:     len(durations),
			AverageMs: float64(avg.Microseconds()) / 1000,
			TotalMs:   float64(total.Microseconds()) / 1000,
		})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Operation < stats[j].Operation })
	return stats
}

func (pt *PerformanceTracker) GenerateAggregateReport() string {
	var report string
	report = "Performance Report:\n"

	for _, s := range pt.Snapshot() {
		report += fmt.Sprintf("%s:\n", s.Operation)
		report += fmt.Sprintf("  Count: %d\n", s.Count)
		report += fmt.Sprintf("  Average: %.3fms\n", s.AverageMs)
		report += fmt.Sprintf("  Total: %.3fms\n", s.TotalMs)
	}

	return report
}
