// Package metrics provides in-memory runtime statistics collection.
package metrics

import (
	"math"
	"sync"
	"time"
)

// Operation names for the collector.
const (
	OpRealtimeQuery = "realtime_query"
	OpFallbackQuery = "fallback_query"
	OpGenerate      = "llm_generate"
)

// OperationMetrics holds aggregated timings for a single operation type.
type OperationMetrics struct {
	Count     int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration
}

// ModelMetrics counts failover outcomes per model identifier.
type ModelMetrics struct {
	Attempts  int64 `json:"attempts"`
	Successes int64 `json:"successes"`
	Failures  int64 `json:"failures"`
}

// OperationSnapshot provides computed stats from raw metrics.
type OperationSnapshot struct {
	Count       int64   `json:"count"`
	TotalTimeMs int64   `json:"totalTimeMs"`
	AvgTimeMs   float64 `json:"avgTimeMs"`
	MinTimeMs   int64   `json:"minTimeMs"`
	MaxTimeMs   int64   `json:"maxTimeMs"`
}

// Snapshot represents the full server statistics at a point in time.
type Snapshot struct {
	UptimeSeconds float64                  `json:"uptimeSeconds"`
	RealtimeQuery *OperationSnapshot       `json:"realtimeQuery,omitempty"`
	FallbackQuery *OperationSnapshot       `json:"fallbackQuery,omitempty"`
	Generate      *OperationSnapshot       `json:"generate,omitempty"`
	Models        map[string]*ModelMetrics `json:"models,omitempty"`
}

// Collector aggregates in-memory runtime statistics.
// All methods are thread-safe. Stats reset on server restart.
type Collector struct {
	mu        sync.RWMutex
	startTime time.Time
	ops       map[string]*OperationMetrics
	models    map[string]*ModelMetrics
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
		ops:       make(map[string]*OperationMetrics),
		models:    make(map[string]*ModelMetrics),
	}
}

// RecordTiming records timing for an operation.
func (c *Collector) RecordTiming(op string, duration time.Duration) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := c.ops[op]
	if !ok {
		m = &OperationMetrics{MinTime: time.Duration(math.MaxInt64)}
		c.ops[op] = m
	}

	m.Count++
	m.TotalTime += duration
	if duration < m.MinTime {
		m.MinTime = duration
	}
	if duration > m.MaxTime {
		m.MaxTime = duration
	}
}

// RecordModelAttempt records one failover attempt outcome for a model.
func (c *Collector) RecordModelAttempt(model string, success bool) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := c.models[model]
	if !ok {
		m = &ModelMetrics{}
		c.models[model] = m
	}

	m.Attempts++
	if success {
		m.Successes++
	} else {
		m.Failures++
	}
}

func snapshotOp(m *OperationMetrics) *OperationSnapshot {
	if m == nil || m.Count == 0 {
		return nil
	}
	return &OperationSnapshot{
		Count:       m.Count,
		TotalTimeMs: m.TotalTime.Milliseconds(),
		AvgTimeMs:   float64(m.TotalTime.Milliseconds()) / float64(m.Count),
		MinTimeMs:   m.MinTime.Milliseconds(),
		MaxTimeMs:   m.MaxTime.Milliseconds(),
	}
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := Snapshot{
		UptimeSeconds: time.Since(c.startTime).Seconds(),
		RealtimeQuery: snapshotOp(c.ops[OpRealtimeQuery]),
		FallbackQuery: snapshotOp(c.ops[OpFallbackQuery]),
		Generate:      snapshotOp(c.ops[OpGenerate]),
	}

	if len(c.models) > 0 {
		snap.Models = make(map[string]*ModelMetrics, len(c.models))
		for name, m := range c.models {
			copied := *m
			snap.Models[name] = &copied
		}
	}

	return snap
}
