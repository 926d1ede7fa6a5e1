//go:build !linux

package policy

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// RlimitLimiter applies per-process resource caps via setrlimit,
// adapted from criyle-go-sandbox's pkg/rlimit register, for platforms
// with no cgroup v2 hierarchy. Only memory (as an address-space cap)
// and open-file-descriptor count are honored; CPU quota/period,
// I/O bytes-per-second, and process count have no portable rlimit
// equivalent and are reported unsupported.
//
// setrlimit, unlike cgroup v2 writes, only ever applies to the calling
// process: there is no portable way to cap an arbitrary existing pid's
// rlimits from the outside. Apply's pid parameter is accepted for
// interface symmetry with CgroupLimiter but is only meaningful when
// called from within the daemon's own process (e.g. a pre-exec hook).
type RlimitLimiter struct{}

// NewResourceLimiter name is reused across platforms so callers (such
// as cmd/duende's run loop) don't need a build-tagged constructor of
// their own.
func NewResourceLimiter() ResourceLimiter { return &RlimitLimiter{} }

func (l *RlimitLimiter) Apply(pid int, limits Limits) ([]string, error) {
	var unsupported []string

	if limits.MemoryBytes > 0 {
		rl := unix.Rlimit{Cur: limits.MemoryBytes, Max: limits.MemoryBytes}
		if err := unix.Setrlimit(unix.RLIMIT_AS, &rl); err != nil {
			return nil, fmt.Errorf("policy: setrlimit RLIMIT_AS: %w", err)
		}
	}
	if limits.MaxOpenFiles > 0 {
		rl := unix.Rlimit{Cur: limits.MaxOpenFiles, Max: limits.MaxOpenFiles}
		if err := unix.Setrlimit(unix.RLIMIT_NOFILE, &rl); err != nil {
			return nil, fmt.Errorf("policy: setrlimit RLIMIT_NOFILE: %w", err)
		}
	}
	if limits.CPUQuotaUs > 0 || limits.CPUPeriodUs > 0 {
		unsupported = append(unsupported, "cpu_quota")
	}
	if limits.IOBytesPerSec > 0 {
		unsupported = append(unsupported, "io_bytes_per_sec")
	}
	if limits.MaxPIDs > 0 {
		unsupported = append(unsupported, "max_pids")
	}

	return unsupported, nil
}
