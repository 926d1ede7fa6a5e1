package native

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiml/duende/internal/core"
)

// TestHelperProcess is not a real test: it is re-executed as a child
// process by the Spawn tests below (the standard os/exec self-exec
// testing recipe), controlled by GO_WANT_HELPER_PROCESS.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}
	defer os.Exit(0)
	time.Sleep(10 * time.Second)
}

func helperConfig(t *testing.T, name string) *core.DaemonConfig {
	t.Helper()
	self, err := os.Executable()
	require.NoError(t, err)

	return &core.DaemonConfig{
		Name:       name,
		BinaryPath: self,
		Args:       []string{"-test.run=TestHelperProcess"},
		Env:        map[string]string{"GO_WANT_HELPER_PROCESS": "1"},
	}
}

func TestAdapter_SpawnSignalStatus(t *testing.T) {
	dir := t.TempDir()
	a := New(dir)
	cfg := helperConfig(t, "native-spawn-test")

	handle, err := a.Spawn(context.Background(), cfg)
	require.NoError(t, err)

	pid, ok := handle.PID()
	require.True(t, ok)
	assert.Greater(t, pid, 0)

	status, err := a.Status(context.Background(), handle)
	require.NoError(t, err)
	assert.Equal(t, core.StatusRunning, status)

	require.NoError(t, a.Signal(context.Background(), handle, core.SigKill))
	require.NoError(t, waitForExit(pid, 5*time.Second))

	status, err = a.Status(context.Background(), handle)
	require.NoError(t, err)
	assert.Equal(t, core.StatusStopped, status)

	require.NoError(t, a.Reap(context.Background(), handle))
}

func TestAdapter_ReapReleasesLockForSubsequentSpawn(t *testing.T) {
	dir := t.TempDir()
	a := New(dir)
	cfg := helperConfig(t, "native-reap-test")

	handle, err := a.Spawn(context.Background(), cfg)
	require.NoError(t, err)
	pid, _ := handle.PID()
	require.NoError(t, a.Signal(context.Background(), handle, core.SigKill))
	require.NoError(t, waitForExit(pid, 5*time.Second))

	require.NoError(t, a.Reap(context.Background(), handle))

	handle2, err := a.Spawn(context.Background(), cfg)
	require.NoError(t, err, "a second Spawn for the same daemon name should succeed once Reap has released the prior lock")
	pid2, _ := handle2.PID()
	_ = a.Signal(context.Background(), handle2, core.SigKill)
	_ = waitForExit(pid2, 5*time.Second)
}

func TestAdapter_ReapUnknownPidIsNoOp(t *testing.T) {
	a := New(t.TempDir())
	assert.NoError(t, a.Reap(context.Background(), core.NewNativeHandle(999999)))
}

func TestAdapter_SpawnRejectsSecondInstance(t *testing.T) {
	dir := t.TempDir()
	a := New(dir)
	cfg := helperConfig(t, "native-lock-test")

	handle, err := a.Spawn(context.Background(), cfg)
	require.NoError(t, err)
	pid, _ := handle.PID()
	defer func() {
		_ = a.Signal(context.Background(), handle, core.SigKill)
		_ = waitForExit(pid, 5*time.Second)
	}()

	_, err = a.Spawn(context.Background(), cfg)
	assert.Error(t, err)
}

func TestAdapter_StatusUnknownHandleKind(t *testing.T) {
	a := New(t.TempDir())
	_, err := a.Status(context.Background(), core.NewSystemdHandle("duende-other"))
	assert.Error(t, err)
}
