//go:build linux

package policy

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCgroupLimiter_Apply(t *testing.T) {
	dir := t.TempDir()
	old := cgroupRoot
	cgroupRoot = dir
	defer func() { cgroupRoot = old }()

	l := &CgroupLimiter{}
	pid := os.Getpid()
	unsupported, err := l.Apply(pid, Limits{
		MemoryBytes:  1 << 20,
		CPUQuotaUs:   50000,
		CPUPeriodUs:  100000,
		MaxPIDs:      16,
		MaxOpenFiles: 64,
	})
	require.NoError(t, err)
	assert.Contains(t, unsupported, "max_open_files")

	sub := filepath.Join(dir, "pid-"+strconv.Itoa(pid))
	procs, err := os.ReadFile(filepath.Join(sub, "cgroup.procs"))
	require.NoError(t, err)
	assert.Equal(t, strconv.Itoa(pid), string(procs))

	mem, err := os.ReadFile(filepath.Join(sub, "memory.max"))
	require.NoError(t, err)
	assert.Equal(t, "1048576", string(mem))

	cpu, err := os.ReadFile(filepath.Join(sub, "cpu.max"))
	require.NoError(t, err)
	assert.Equal(t, "50000 100000", string(cpu))

	pids, err := os.ReadFile(filepath.Join(sub, "pids.max"))
	require.NoError(t, err)
	assert.Equal(t, "16", string(pids))
}

func TestCgroupLimiter_Apply_ZeroLimitsSkipsWrites(t *testing.T) {
	dir := t.TempDir()
	old := cgroupRoot
	cgroupRoot = dir
	defer func() { cgroupRoot = old }()

	l := &CgroupLimiter{}
	unsupported, err := l.Apply(os.Getpid(), Limits{})
	require.NoError(t, err)
	assert.Empty(t, unsupported)
}

func TestCgroupLimiter_Apply_IOBandwidthUnsupportedWhenIOMaxUnwritable(t *testing.T) {
	dir := t.TempDir()
	old := cgroupRoot
	cgroupRoot = dir
	defer func() { cgroupRoot = old }()

	// A directory occupying the io.max path makes every io.max write fail.
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "pid-"+strconv.Itoa(os.Getpid()), "io.max"), 0755))

	l := &CgroupLimiter{}
	unsupported, err := l.Apply(os.Getpid(), Limits{IOBytesPerSec: 1 << 20})
	require.NoError(t, err)
	// Whether /proc/partitions lists devices or not, no io.max write can
	// succeed, so the limit is reported unsupported.
	assert.Contains(t, unsupported, "io_bytes_per_sec")
}

func TestBlockDeviceIDs(t *testing.T) {
	ids, err := blockDeviceIDs()
	if err != nil {
		t.Skipf("no /proc/partitions on this host: %v", err)
	}
	assert.NotNil(t, ids)
}
