//go:build linux

package mlock

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// Lock calls mlockall with the flag set built from opts.Current and
// opts.Future (MCL_ONFAULT additionally applied when both opts.OnFault
// and opts.Future are set). A call with neither Current nor Future set
// requests nothing and is a no-op.
func Lock(opts Options) error {
	var flags int
	if opts.Current {
		flags |= unix.MCL_CURRENT
	}
	if opts.Future {
		flags |= unix.MCL_FUTURE
		if opts.OnFault {
			flags |= unix.MCL_ONFAULT
		}
	}
	if flags == 0 {
		return nil
	}

	if err := unix.Mlockall(flags); err != nil {
		return &Error{Kind: classify(err), Op: "mlockall", Err: err}
	}
	return nil
}

// Unlock calls munlockall(), releasing every lock this process holds.
func Unlock() error {
	if err := unix.Munlockall(); err != nil {
		return &Error{Kind: classify(err), Op: "munlockall", Err: err}
	}
	return nil
}

// CurrentStatus reads /proc/self/status's VmLck field to report
// locked-page accounting without needing to track state ourselves.
func CurrentStatus() Status {
	lockedBytes, locked := readVmLck()
	return Status{Support: SupportFull, Locked: locked, LockedBytes: lockedBytes}
}

func readVmLck() (uint64, bool) {
	f, err := os.Open("/proc/self/status")
	if err != nil {
		return 0, false
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "VmLck:") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return 0, false
		}
		kb, err := strconv.ParseUint(fields[1], 10, 64)
		if err != nil {
			return 0, false
		}
		return kb * 1024, kb > 0
	}
	return 0, false
}

func classify(err error) FailureKind {
	switch err {
	case unix.EPERM:
		return FailurePermissionDenied
	case unix.ENOMEM:
		return FailureResourceLimit
	default:
		return FailureOther
	}
}
