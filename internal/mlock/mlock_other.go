//go:build !linux && !darwin

package mlock

import "errors"

// ErrUnsupported is returned by Lock/Unlock on platforms with no
// mlockall equivalent wired up.
var ErrUnsupported = errors.New("mlock: not supported on this platform")

func Lock(opts Options) error {
	return &Error{Kind: FailureOther, Op: "mlockall", Err: ErrUnsupported}
}

func Unlock() error {
	return &Error{Kind: FailureOther, Op: "munlockall", Err: ErrUnsupported}
}

func CurrentStatus() Status {
	return Status{Support: SupportUnsupported}
}
