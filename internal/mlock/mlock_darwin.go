//go:build darwin

package mlock

import "golang.org/x/sys/unix"

// Lock calls mlockall with the flag set built from opts.Current and
// opts.Future. Darwin has no MCL_ONFAULT, so opts.OnFault is accepted
// but ignored; support is reported as Limited rather than Full. A call
// with neither Current nor Future set requests nothing and is a no-op.
func Lock(opts Options) error {
	var flags int
	if opts.Current {
		flags |= unix.MCL_CURRENT
	}
	if opts.Future {
		flags |= unix.MCL_FUTURE
	}
	if flags == 0 {
		return nil
	}

	if err := unix.Mlockall(flags); err != nil {
		return &Error{Kind: classify(err), Op: "mlockall", Err: err}
	}
	return nil
}

// Unlock calls munlockall().
func Unlock() error {
	if err := unix.Munlockall(); err != nil {
		return &Error{Kind: classify(err), Op: "munlockall", Err: err}
	}
	return nil
}

// CurrentStatus has no equivalent of Linux's /proc/self/status VmLck
// field available; it reports Limited support without a byte count.
func CurrentStatus() Status {
	return Status{Support: SupportLimited}
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
