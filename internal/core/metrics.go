package core

import (
	"sync"
	"sync/atomic"
	"time"
)

// DaemonMetrics holds RED-style counters and gauges for one daemon.
// Counters are lock-free additive; the custom map and histogram buckets
// are guarded by a mutex since they are updated less frequently and from
// a single owning goroutine (the daemon's own Run), per SPEC_FULL.md
// §5's "histograms are updated from the daemon's own task only".
type DaemonMetrics struct {
	RequestsTotal atomic.Uint64
	ErrorsTotal   atomic.Uint64

	CPUPercent  atomic.Uint64 // stored as percent * 100 to keep this lock-free
	MemoryBytes atomic.Uint64
	OpenFDs     atomic.Uint64
	ThreadCount atomic.Uint64

	mu          sync.Mutex
	durationsMs []float64
	custom      map[string]float64
}

// NewDaemonMetrics returns a zeroed metrics block.
func NewDaemonMetrics() *DaemonMetrics {
	return &DaemonMetrics{custom: make(map[string]float64)}
}

// ObserveRequest records one request's outcome and latency.
func (m *DaemonMetrics) ObserveRequest(d time.Duration, failed bool) {
	m.RequestsTotal.Add(1)
	if failed {
		m.ErrorsTotal.Add(1)
	}
	m.mu.Lock()
	m.durationsMs = append(m.durationsMs, float64(d.Milliseconds()))
	m.mu.Unlock()
}

// SetCustom stores a named custom gauge value. The map is bounded by
// the caller's discipline; Duende does not itself cap its size beyond
// what a well-behaved daemon would report.
func (m *DaemonMetrics) SetCustom(key string, value float64) {
	m.mu.Lock()
	m.custom[key] = value
	m.mu.Unlock()
}

// Custom returns a snapshot copy of the custom gauge map.
func (m *DaemonMetrics) Custom() map[string]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]float64, len(m.custom))
	for k, v := range m.custom {
		out[k] = v
	}
	return out
}

// DurationSnapshot returns a copy of recorded request durations, in
// milliseconds, for histogram export.
func (m *DaemonMetrics) DurationSnapshot() []float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]float64, len(m.durationsMs))
	copy(out, m.durationsMs)
	return out
}
