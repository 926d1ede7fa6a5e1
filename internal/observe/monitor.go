package observe

import (
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v3/process"
)

// Monitor samples a single process's OS-reported resource usage,
// grounded on the gopsutil/v3/process register used throughout the
// native platform adapter, and keeps a bounded history in a
// SnapshotRing.
type Monitor struct {
	pid  int32
	proc *process.Process
	ring *SnapshotRing
}

// NewMonitor attaches to an existing pid, keeping up to historySize
// recent snapshots.
func NewMonitor(pid int, historySize int) (*Monitor, error) {
	p, err := process.NewProcess(int32(pid))
	if err != nil {
		return nil, fmt.Errorf("observe: attach to pid %d: %w", pid, err)
	}
	return &Monitor{pid: int32(pid), proc: p, ring: NewSnapshotRing(historySize)}, nil
}

// Sample takes one snapshot, pushes it onto the ring, and returns it.
// CPU percent is derived from the ticks gopsutil reports between this
// call and the process's last sample, using the process library's
// stateful Percent(0) semantics; the first sample reports 0.
func (m *Monitor) Sample() (Snapshot, error) {
	cpuPct, err := m.proc.Percent(0)
	if err != nil {
		cpuPct = 0
	}

	memInfo, err := m.proc.MemoryInfo()
	var rss uint64
	if err == nil && memInfo != nil {
		rss = memInfo.RSS
	}

	threads, err := m.proc.NumThreads()
	if err != nil {
		threads = 0
	}

	var readBytes, writeBytes uint64
	if io, err := m.proc.IOCounters(); err == nil && io != nil {
		readBytes = io.ReadBytes
		writeBytes = io.WriteBytes
	}

	statusSlice, err := m.proc.Status()
	state := "unknown"
	if err == nil && len(statusSlice) > 0 {
		state = statusSlice[0]
	}

	snap := Snapshot{
		Time:        time.Now(),
		CPUPercent:  cpuPct,
		MemoryBytes: rss,
		ThreadCount: threads,
		ReadBytes:   readBytes,
		WriteBytes:  writeBytes,
		State:       state,
		GPUPercent:  -1,
	}
	m.ring.Push(snap)
	return snap, nil
}

// History returns up to n of the most recent samples.
func (m *Monitor) History(n int) []Snapshot {
	return m.ring.Recent(n)
}

// PID reports the monitored process id.
func (m *Monitor) PID() int32 { return m.pid }
