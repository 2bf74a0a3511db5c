package monitoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(m *Monitor, calls, failures, hits, misses int) {
	ctx := context.Background()
	for i := 0; i < calls; i++ {
		var err error
		if i < failures {
			err = errors.New("backend error")
		}
		m.RecordCall(ctx, "search_products", 10*time.Millisecond, err)
	}
	for i := 0; i < hits; i++ {
		m.RecordCacheLookup(ctx, true)
	}
	for i := 0; i < misses; i++ {
		m.RecordCacheLookup(ctx, false)
	}
}

func TestMonitorClassification(t *testing.T) {
	cases := []struct {
		name     string
		calls    int
		failures int
		hits     int
		misses   int
		want     Status
	}{
		{"Should stay healthy with low error rate and high hit rate", 20, 0, 9, 1, StatusHealthy},
		{"Should stay healthy just under the degraded thresholds", 100, 4, 5, 5, StatusHealthy},
		{"Should degrade at five percent errors", 100, 5, 9, 1, StatusDegraded},
		{"Should degrade below fifty percent hit rate", 20, 0, 4, 6, StatusDegraded},
		{"Should be unhealthy at ten percent errors", 100, 10, 9, 1, StatusUnhealthy},
		{"Should be unhealthy below thirty percent hit rate", 20, 0, 2, 8, StatusUnhealthy},
		{"Should treat an idle window as healthy", 0, 0, 0, 0, StatusHealthy},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := NewMonitor(time.Hour)
			record(m, tc.calls, tc.failures, tc.hits, tc.misses)
			snap := m.Evaluate(context.Background())
			assert.Equal(t, tc.want, snap.Status)
			assert.Equal(t, snap, m.Snapshot())
		})
	}
}

func TestMonitorWindowReset(t *testing.T) {
	t.Run("Should forget previous windows on evaluation", func(t *testing.T) {
		m := NewMonitor(time.Hour)
		record(m, 10, 10, 0, 10)
		first := m.Evaluate(context.Background())
		require.Equal(t, StatusUnhealthy, first.Status)

		record(m, 10, 0, 10, 0)
		second := m.Evaluate(context.Background())
		assert.Equal(t, StatusHealthy, second.Status)
		assert.Equal(t, 0.0, second.ErrorRate)
		assert.Equal(t, 1.0, second.CacheHitRate)
	})

	t.Run("Should default the hit rate when no lookups happened", func(t *testing.T) {
		m := NewMonitor(time.Hour)
		record(m, 10, 0, 0, 0)
		snap := m.Evaluate(context.Background())
		assert.Equal(t, StatusHealthy, snap.Status)
		assert.Equal(t, 1.0, snap.CacheHitRate)
	})

	t.Run("Should keep the last observed latency in the snapshot", func(t *testing.T) {
		m := NewMonitor(time.Hour)
		m.RecordCall(context.Background(), "get_cart", 42*time.Millisecond, nil)
		snap := m.Evaluate(context.Background())
		assert.Equal(t, 42*time.Millisecond, snap.LastLatency)
	})
}
