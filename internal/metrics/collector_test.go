package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiml/duende/internal/core"
)

func TestCollector_SyncAccumulatesCounters(t *testing.T) {
	c := NewCollector("")
	m := core.NewDaemonMetrics()

	m.ObserveRequest(10*time.Millisecond, false)
	m.ObserveRequest(20*time.Millisecond, true)
	c.Sync("worker", m)

	assert.InDelta(t, 2, testutil.ToFloat64(c.requestsTotal.WithLabelValues("worker")), 0.0001)
	assert.InDelta(t, 1, testutil.ToFloat64(c.errorsTotal.WithLabelValues("worker")), 0.0001)

	m.ObserveRequest(5*time.Millisecond, false)
	c.Sync("worker", m)
	assert.InDelta(t, 3, testutil.ToFloat64(c.requestsTotal.WithLabelValues("worker")), 0.0001)
}

func TestCollector_SyncSetsGauges(t *testing.T) {
	c := NewCollector("")
	m := core.NewDaemonMetrics()
	m.CPUPercent.Store(4250)
	m.MemoryBytes.Store(1024)
	m.ThreadCount.Store(7)

	c.Sync("worker", m)

	assert.InDelta(t, 42.5, testutil.ToFloat64(c.cpuPercent.WithLabelValues("worker")), 0.0001)
	assert.InDelta(t, 1024, testutil.ToFloat64(c.memoryBytes.WithLabelValues("worker")), 0.0001)
	assert.InDelta(t, 7, testutil.ToFloat64(c.threadCount.WithLabelValues("worker")), 0.0001)
}

func TestCollector_SyncNilMetricsNoPanic(t *testing.T) {
	c := NewCollector("")
	assert.NotPanics(t, func() { c.Sync("worker", nil) })
}

func TestCollector_RecordRestart(t *testing.T) {
	c := NewCollector("")
	c.RecordRestart("worker")
	c.RecordRestart("worker")
	assert.InDelta(t, 2, testutil.ToFloat64(c.restartsTotal.WithLabelValues("worker")), 0.0001)
}

func TestCollector_RegistryGatherable(t *testing.T) {
	c := NewCollector("test")
	c.Sync("worker", core.NewDaemonMetrics())
	families, err := c.Registry().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}
