//go:build !linux

package policy

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRlimitLimiter_Apply(t *testing.T) {
	l := &RlimitLimiter{}
	unsupported, err := l.Apply(os.Getpid(), Limits{
		MemoryBytes:   1 << 30,
		MaxOpenFiles:  256,
		CPUQuotaUs:    50000,
		CPUPeriodUs:   100000,
		IOBytesPerSec: 1 << 20,
		MaxPIDs:       8,
	})
	if err != nil {
		t.Skipf("setrlimit not permitted in this environment: %v", err)
	}
	assert.Contains(t, unsupported, "cpu_quota")
	assert.Contains(t, unsupported, "io_bytes_per_sec")
	assert.Contains(t, unsupported, "max_pids")
}

func TestRlimitLimiter_Apply_NoLimitsNoUnsupported(t *testing.T) {
	l := &RlimitLimiter{}
	unsupported, err := l.Apply(os.Getpid(), Limits{})
	assert.NoError(t, err)
	assert.Empty(t, unsupported)
}
