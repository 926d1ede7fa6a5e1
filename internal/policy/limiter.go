package policy

// Limits describes the caps a ResourceLimiter applies to one daemon's
// process. A zero field means "leave this limit alone."
type Limits struct {
	MemoryBytes   uint64
	CPUQuotaUs    uint64 // quota per CPUPeriodUs, cgroup v2 cpu.max units
	CPUPeriodUs   uint64
	IOBytesPerSec uint64
	MaxPIDs       uint64
	MaxOpenFiles  uint64
}

// ResourceLimiter applies Limits to a process. Apply returns the names
// of any limit it could not honor on this platform, alongside a hard
// error only when the operation itself failed (as opposed to being
// merely unsupported).
type ResourceLimiter interface {
	Apply(pid int, limits Limits) (unsupported []string, err error)
}
