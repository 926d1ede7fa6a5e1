package ublk

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

// Kind classifies why a ublk control operation failed.
type Kind int

const (
	KindControlDeviceNotFound Kind = iota
	KindOpenControl
	KindDeviceNotFound
	KindDeviceBusy
	KindIoUringCreate
	KindIoUringSubmit
	KindIoUringCommand
	KindScanDevDir
	KindTimeout
)

// Error is the error type returned by every Control operation.
type Error struct {
	Kind    Kind
	DevID   uint32
	Errno   int
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindControlDeviceNotFound:
		return "ublk control device not found at " + CtrlDevPath + " (is ublk module loaded?)"
	case KindOpenControl:
		return fmt.Sprintf("failed to open control device: %v", e.Err)
	case KindDeviceNotFound:
		return fmt.Sprintf("ublk device %d not found", e.DevID)
	case KindDeviceBusy:
		return fmt.Sprintf("ublk device %d is busy", e.DevID)
	case KindIoUringCreate:
		return fmt.Sprintf("failed to create io_uring: %v", e.Err)
	case KindIoUringSubmit:
		return fmt.Sprintf("failed to submit io_uring command: %v", e.Err)
	case KindIoUringCommand:
		return fmt.Sprintf("io_uring command failed with error code %d: %s", e.Errno, e.Message)
	case KindScanDevDir:
		return fmt.Sprintf("failed to scan /dev directory: %v", e.Err)
	case KindTimeout:
		return fmt.Sprintf("operation timed out after %s", e.Message)
	default:
		return fmt.Sprintf("ublk error: %v", e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// ErrControlDeviceNotFound is returned by Open when /dev/ublk-control does
// not exist, meaning the ublk kernel module is not loaded.
var ErrControlDeviceNotFound = &Error{Kind: KindControlDeviceNotFound}

// fromErrno builds an IoUringCommand error from a negative completion
// result, with a human-readable message for the common cases the kernel
// actually returns for these three commands.
func fromErrno(errno int) *Error {
	msg := "unknown error"
	switch errno {
	case int(unix.ENOENT):
		msg = "device not found"
	case int(unix.EEXIST):
		msg = "device already exists"
	case int(unix.EBUSY):
		msg = "device is busy"
	case int(unix.EPERM):
		msg = "permission denied"
	case int(unix.EINVAL):
		msg = "invalid argument"
	default:
		msg = fmt.Sprintf("unknown error (%d)", errno)
	}
	return &Error{Kind: KindIoUringCommand, Errno: errno, Message: msg}
}

// IsNotFound reports whether err indicates the addressed device does not
// exist.
func IsNotFound(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == KindDeviceNotFound || (e.Kind == KindIoUringCommand && e.Errno == int(unix.ENOENT))
	}
	return false
}

// IsPermissionDenied reports whether err indicates the caller lacked
// CAP_SYS_ADMIN or root.
func IsPermissionDenied(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == KindIoUringCommand && e.Errno == int(unix.EPERM)
	}
	return false
}
