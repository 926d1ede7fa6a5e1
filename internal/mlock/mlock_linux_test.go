//go:build linux

package mlock

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestLockUnlock exercises the real mlockall/munlockall syscalls. It
// skips rather than fails when the test process lacks CAP_IPC_LOCK or
// sufficient RLIMIT_MEMLOCK, since both are legitimate, permission-
// classified outcomes rather than bugs.
func TestLockUnlock(t *testing.T) {
	err := Lock(Options{Current: true, Future: true})
	if err != nil {
		var mlockErr *Error
		if assertAsError(t, err, &mlockErr) && mlockErr.Kind != FailureOther {
			t.Skipf("mlockall unavailable in this environment: %v", err)
		}
		t.Skipf("mlockall failed in this environment: %v", err)
	}
	defer Unlock()

	status := CurrentStatus()
	assert.Equal(t, SupportFull, status.Support)
}

func assertAsError(t *testing.T, err error, target **Error) bool {
	t.Helper()
	e, ok := err.(*Error)
	if ok {
		*target = e
	}
	return ok
}

func TestClassify_UnknownErrnoIsOther(t *testing.T) {
	assert.Equal(t, FailureOther, classify(nil))
}

// TestLock_NeitherCurrentNorFutureIsNoOp verifies that requesting
// neither pinning mode skips the mlockall syscall entirely rather than
// defaulting to a full lock.
func TestLock_NeitherCurrentNorFutureIsNoOp(t *testing.T) {
	assert.NoError(t, Lock(Options{}))
}
