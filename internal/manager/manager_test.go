package manager

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiml/duende/internal/core"
)

// fakeDaemon runs until its DaemonContext asks it to shut down, then
// exits gracefully. It counts how many times each lifecycle hook fired
// so tests can assert on restart behavior without timing races.
type fakeDaemon struct {
	id   core.DaemonID
	name string

	runs     atomic.Int32
	inits    atomic.Int32
	exitKind core.ExitReasonKind
}

func newFakeDaemon(name string) *fakeDaemon {
	return &fakeDaemon{id: core.NewDaemonID(), name: name, exitKind: core.ExitGraceful}
}

func (f *fakeDaemon) ID() core.DaemonID { return f.id }
func (f *fakeDaemon) Name() string      { return f.name }

func (f *fakeDaemon) Init(ctx context.Context, cfg *core.DaemonConfig) error {
	f.inits.Add(1)
	return nil
}

func (f *fakeDaemon) Run(ctx context.Context, dctx *core.DaemonContext) core.ExitReason {
	f.runs.Add(1)
	if f.exitKind != core.ExitGraceful {
		// Simulates a daemon that crashes immediately, so restart-policy
		// tests don't need to wait out a real shutdown handshake.
		return core.ExitReason{Kind: f.exitKind}
	}
	select {
	case <-dctx.Signals():
	case <-ctx.Done():
	}
	return core.ExitReason{Kind: f.exitKind}
}

func (f *fakeDaemon) Shutdown(ctx context.Context) error { return nil }

func (f *fakeDaemon) HealthCheck() core.HealthStatus {
	return core.Healthy(5, 0)
}

func (f *fakeDaemon) Metrics() *core.DaemonMetrics { return core.NewDaemonMetrics() }

func testConfig(name string) *core.DaemonConfig {
	return &core.DaemonConfig{
		Name:            name,
		BinaryPath:      "/bin/true",
		ShutdownTimeout: time.Second,
		Restart:         core.RestartPolicy{Kind: core.RestartNever},
	}
}

func TestManager_RegisterRejectsDuplicateID(t *testing.T) {
	m := New(nil, nil)
	d := newFakeDaemon("alpha")

	require.NoError(t, m.Register(d, testConfig("alpha")))
	err := m.Register(d, testConfig("alpha"))
	assert.ErrorIs(t, err, ErrDuplicateID)
}

func TestManager_StartRunsAndReachesStoppedOnGracefulExit(t *testing.T) {
	m := New(nil, nil)
	d := newFakeDaemon("alpha")
	require.NoError(t, m.Register(d, testConfig("alpha")))

	require.NoError(t, m.Start(context.Background(), d.ID()))
	require.NoError(t, m.Stop(d.ID(), 2*time.Second))

	snap, err := m.Status(d.ID())
	require.NoError(t, err)
	assert.Equal(t, core.StatusStopped, snap.Status)
	assert.Equal(t, int32(1), d.inits.Load())
	assert.Equal(t, int32(1), d.runs.Load())
}

func TestManager_StatusUnknownDaemon(t *testing.T) {
	m := New(nil, nil)
	_, err := m.Status(core.NewDaemonID())
	assert.ErrorIs(t, err, ErrUnknownDaemon)
}

func TestManager_ListReturnsAllRegistered(t *testing.T) {
	m := New(nil, nil)
	a := newFakeDaemon("alpha")
	b := newFakeDaemon("beta")
	require.NoError(t, m.Register(a, testConfig("alpha")))
	require.NoError(t, m.Register(b, testConfig("beta")))

	snaps := m.List()
	assert.Len(t, snaps, 2)
}

func TestManager_RestartAlwaysRunsAgainAfterExit(t *testing.T) {
	m := New(nil, nil)
	d := newFakeDaemon("alpha")
	d.exitKind = core.ExitError
	cfg := testConfig("alpha")
	cfg.Restart = core.RestartPolicy{Kind: core.RestartAlways}
	require.NoError(t, m.Register(d, cfg))

	require.NoError(t, m.Start(context.Background(), d.ID()))

	require.Eventually(t, func() bool {
		return d.runs.Load() >= 2
	}, 3*time.Second, 10*time.Millisecond, "expected at least two runs under RestartAlways")

	require.NoError(t, m.Stop(d.ID(), 2*time.Second))
}

func TestManager_OnFailureExhaustionReportsFourAttempts(t *testing.T) {
	m := New(nil, nil)
	d := newFakeDaemon("alpha")
	d.exitKind = core.ExitError
	cfg := testConfig("alpha")
	cfg.Restart = core.RestartPolicy{Kind: core.RestartOnFailure, MaxRetries: 3}
	require.NoError(t, m.Register(d, cfg))

	require.NoError(t, m.Start(context.Background(), d.ID()))

	require.Eventually(t, func() bool {
		snap, err := m.Status(d.ID())
		return err == nil && snap.Status == core.StatusFailed
	}, 3*time.Second, 10*time.Millisecond, "expected daemon to reach Failed once retries are exhausted")

	assert.Equal(t, int32(4), d.runs.Load(), "expected 3 restarts plus the terminal run")

	snap, err := m.Status(d.ID())
	require.NoError(t, err)
	assert.Equal(t, 4, snap.Attempts, "attempts counter should include the terminal run, per the restart-exhaustion scenario")
}

func TestManager_ShutdownAllStopsEveryDaemon(t *testing.T) {
	m := New(nil, nil)
	a := newFakeDaemon("alpha")
	b := newFakeDaemon("beta")
	require.NoError(t, m.Register(a, testConfig("alpha")))
	require.NoError(t, m.Register(b, testConfig("beta")))

	require.NoError(t, m.Start(context.Background(), a.ID()))
	require.NoError(t, m.Start(context.Background(), b.ID()))

	m.ShutdownAll(2 * time.Second)

	for _, snap := range m.List() {
		assert.True(t, snap.Status.IsTerminal())
	}
}
