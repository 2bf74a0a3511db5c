package monitoring

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/shopmind/shopmind/pkg/logger"
)

// Status is the tri-state health classification.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// Thresholds for window classification. The window is memoryless: counters
// reset on every evaluation, so a snapshot reflects the latest interval only.
const (
	unhealthyErrorRate = 0.10
	degradedErrorRate  = 0.05
	unhealthyHitRate   = 0.30
	degradedHitRate    = 0.50
)

// Snapshot is the externally visible health state.
type Snapshot struct {
	Status       Status        `json:"status"`
	LastCheck    time.Time     `json:"last_check"`
	LastLatency  time.Duration `json:"last_latency"`
	ErrorRate    float64       `json:"error_rate"`
	CacheHitRate float64       `json:"cache_hit_rate"`
}

// Monitor aggregates call latency, error rate and cache hit rate over fixed
// non-overlapping windows and classifies overall backend health.
type Monitor struct {
	mu          sync.Mutex
	requests    int64
	errors      int64
	cacheHits   int64
	cacheMisses int64
	lastLatency time.Duration
	snapshot    Snapshot

	interval time.Duration
	stopOnce sync.Once
	stopCh   chan struct{}

	callCounter  metric.Int64Counter
	cacheCounter metric.Int64Counter
	latencyHist  metric.Float64Histogram
}

func NewMonitor(interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	meter := otel.Meter("github.com/shopmind/shopmind/engine/infra/monitoring")
	callCounter, _ := meter.Int64Counter("shopmind_tool_calls_total",
		metric.WithDescription("Total tool gateway calls by outcome"))
	cacheCounter, _ := meter.Int64Counter("shopmind_cache_lookups_total",
		metric.WithDescription("Total cache lookups by result"))
	latencyHist, _ := meter.Float64Histogram("shopmind_tool_call_duration_seconds",
		metric.WithDescription("Tool gateway call duration"))
	return &Monitor{
		interval: interval,
		stopCh:   make(chan struct{}),
		snapshot: Snapshot{Status: StatusHealthy, LastCheck: time.Now()},

		callCounter:  callCounter,
		cacheCounter: cacheCounter,
		latencyHist:  latencyHist,
	}
}

// Start launches the evaluation ticker. It returns immediately; Stop ends the
// background goroutine.
func (m *Monitor) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.Evaluate(ctx)
			case <-m.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

// RecordCall registers one remote call outcome and its latency point sample.
func (m *Monitor) RecordCall(ctx context.Context, operation string, latency time.Duration, callErr error) {
	outcome := "success"
	if callErr != nil {
		outcome = "error"
	}
	m.mu.Lock()
	m.requests++
	if callErr != nil {
		m.errors++
	}
	m.lastLatency = latency
	m.mu.Unlock()

	m.callCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
	m.latencyHist.Record(ctx, latency.Seconds(), metric.WithAttributes(
		attribute.String("operation", operation),
	))
	logger.FromContext(ctx).Debug("tool call recorded",
		"operation", operation,
		"outcome", outcome,
		"latency_ms", latency.Milliseconds(),
	)
}

// RecordCacheLookup registers a cache hit or miss observed by the gateway.
func (m *Monitor) RecordCacheLookup(ctx context.Context, hit bool) {
	result := "miss"
	m.mu.Lock()
	if hit {
		m.cacheHits++
		result = "hit"
	} else {
		m.cacheMisses++
	}
	m.mu.Unlock()
	m.cacheCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// Evaluate closes the current window: classify, publish the snapshot, reset
// all counters. Called by the ticker and directly by tests.
func (m *Monitor) Evaluate(ctx context.Context) Snapshot {
	m.mu.Lock()
	errorRate := 0.0
	if m.requests > 0 {
		errorRate = float64(m.errors) / float64(m.requests)
	}
	lookups := m.cacheHits + m.cacheMisses
	hitRate := 1.0
	if lookups > 0 {
		hitRate = float64(m.cacheHits) / float64(lookups)
	}
	status := classify(errorRate, hitRate)
	m.snapshot = Snapshot{
		Status:       status,
		LastCheck:    time.Now(),
		LastLatency:  m.lastLatency,
		ErrorRate:    errorRate,
		CacheHitRate: hitRate,
	}
	m.requests = 0
	m.errors = 0
	m.cacheHits = 0
	m.cacheMisses = 0
	snap := m.snapshot
	m.mu.Unlock()

	logger.FromContext(ctx).Info("health window evaluated",
		"status", snap.Status,
		"error_rate", snap.ErrorRate,
		"cache_hit_rate", snap.CacheHitRate,
		"last_latency_ms", snap.LastLatency.Milliseconds(),
	)
	return snap
}

// Snapshot returns the most recently published classification.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot
}

func classify(errorRate, hitRate float64) Status {
	switch {
	case errorRate >= unhealthyErrorRate || hitRate < unhealthyHitRate:
		return StatusUnhealthy
	case errorRate >= degradedErrorRate || hitRate < degradedHitRate:
		return StatusDegraded
	default:
		return StatusHealthy
	}
}
