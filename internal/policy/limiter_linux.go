//go:build linux

package policy

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// cgroupRoot is where Duende creates its per-pid cgroup v2
// subdirectories. Overridable in tests.
var cgroupRoot = "/sys/fs/cgroup/duende"

// CgroupLimiter writes resource limits into a per-daemon cgroup v2
// hierarchy, adapted from criyle-go-sandbox's pkg/cgroup CgroupV2
// (SetMemoryLimit/SetCPUBandwidth/SetProcLimit) narrowed to the
// daemon-policy domain: one subcgroup per pid (pid-<pid>), created on
// first use, with that pid added to cgroup.procs.
type CgroupLimiter struct{}

// NewResourceLimiter returns the Linux cgroup v2-backed ResourceLimiter.
func NewResourceLimiter() ResourceLimiter { return &CgroupLimiter{} }

func (l *CgroupLimiter) Apply(pid int, limits Limits) ([]string, error) {
	dir := filepath.Join(cgroupRoot, fmt.Sprintf("pid-%d", pid))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("policy: create cgroup %s: %w", dir, err)
	}

	if err := writeUint(dir, "cgroup.procs", uint64(pid)); err != nil {
		return nil, fmt.Errorf("policy: add pid %d to cgroup: %w", pid, err)
	}

	var unsupported []string

	if limits.MemoryBytes > 0 {
		if err := writeUint(dir, "memory.max", limits.MemoryBytes); err != nil {
			return nil, fmt.Errorf("policy: set memory.max: %w", err)
		}
	}
	if limits.CPUQuotaUs > 0 && limits.CPUPeriodUs > 0 {
		content := strconv.FormatUint(limits.CPUQuotaUs, 10) + " " + strconv.FormatUint(limits.CPUPeriodUs, 10)
		if err := os.WriteFile(filepath.Join(dir, "cpu.max"), []byte(content), 0644); err != nil {
			return nil, fmt.Errorf("policy: set cpu.max: %w", err)
		}
	}
	if limits.MaxPIDs > 0 {
		if err := writeUint(dir, "pids.max", limits.MaxPIDs); err != nil {
			return nil, fmt.Errorf("policy: set pids.max: %w", err)
		}
	}
	if limits.IOBytesPerSec > 0 {
		if err := l.setIOBandwidth(dir, limits.IOBytesPerSec); err != nil {
			unsupported = append(unsupported, "io_bytes_per_sec")
		}
	}
	if limits.MaxOpenFiles > 0 {
		// cgroup v2 has no fd-count controller; this cap is per-process,
		// not per-cgroup.
		unsupported = append(unsupported, "max_open_files")
	}

	return unsupported, nil
}

// setIOBandwidth applies the same read/write bytes-per-second limit to
// every block device the host reports in /proc/partitions, best-effort:
// io.max addresses devices by major:minor, and a daemon doesn't
// necessarily know which device backs its I/O.
func (l *CgroupLimiter) setIOBandwidth(dir string, bps uint64) error {
	devices, err := blockDeviceIDs()
	if err != nil || len(devices) == 0 {
		return fmt.Errorf("policy: no block devices found for io.max")
	}
	var lastErr error
	applied := 0
	for _, dev := range devices {
		line := fmt.Sprintf("%s rbps=%d wbps=%d", dev, bps, bps)
		if err := os.WriteFile(filepath.Join(dir, "io.max"), []byte(line), 0644); err != nil {
			lastErr = err
			continue
		}
		applied++
	}
	if applied == 0 {
		return lastErr
	}
	return nil
}

func blockDeviceIDs() ([]string, error) {
	f, err := os.Open("/proc/partitions")
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var ids []string
	s := bufio.NewScanner(f)
	for s.Scan() {
		fields := strings.Fields(s.Text())
		if len(fields) != 4 || fields[0] == "major" {
			continue
		}
		ids = append(ids, fields[0]+":"+fields[1])
	}
	return ids, s.Err()
}

func writeUint(dir, name string, v uint64) error {
	return os.WriteFile(filepath.Join(dir, name), []byte(strconv.FormatUint(v, 10)), 0644)
}
