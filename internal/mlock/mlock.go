// Package mlock wraps the OS memory-locking primitive (mlockall on
// POSIX systems) behind a uniform, platform-gated API: full support on
// Linux, limited support on Darwin (no MCL_ONFAULT), unsupported
// everywhere else. Grounded on the raw golang.org/x/sys/unix syscall
// register used throughout criyle-go-sandbox's cgroup/rlimit packages.
package mlock

import "fmt"

// Support classifies how completely a platform can honor a lock
// request.
type Support int

const (
	// SupportFull means MCL_CURRENT|MCL_FUTURE (and MCL_ONFAULT when
	// requested) are all honored.
	SupportFull Support = iota
	// SupportLimited means locking works but MCL_ONFAULT is not
	// available (Darwin).
	SupportLimited
	// SupportUnsupported means this platform has no mlockall
	// equivalent wired up.
	SupportUnsupported
)

func (s Support) String() string {
	switch s {
	case SupportFull:
		return "full"
	case SupportLimited:
		return "limited"
	case SupportUnsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// FailureKind classifies why a Lock call failed, derived from the
// underlying errno.
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailurePermissionDenied
	FailureResourceLimit
	FailureOther
)

func (k FailureKind) String() string {
	switch k {
	case FailurePermissionDenied:
		return "permission_denied"
	case FailureResourceLimit:
		return "resource_limit"
	case FailureOther:
		return "other"
	default:
		return "none"
	}
}

// Error reports a failed Lock/Unlock call along with its classified
// kind, so callers can distinguish "ask for CAP_IPC_LOCK" from
// "raise RLIMIT_MEMLOCK" from an opaque failure.
type Error struct {
	Kind FailureKind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("mlock: %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Status is a point-in-time report of this process's memory-lock
// state.
type Status struct {
	Support Support
	Locked  bool
	// LockedBytes is the value of /proc/self/status's VmLck field on
	// Linux, in bytes; zero on platforms that cannot report it.
	LockedBytes uint64
}

// Options configures a Lock call.
type Options struct {
	// Current requests MCL_CURRENT: pin every page already mapped into
	// the process's address space.
	Current bool
	// Future requests MCL_FUTURE: pin pages backing allocations made
	// after this call, as they are mapped.
	Future bool
	// OnFault requests MCL_ONFAULT, a modifier of Future that defers
	// pinning newly-mapped pages until they are faulted in rather than
	// immediately; Linux-only, ignored elsewhere, and ignored unless
	// Future is also set.
	OnFault bool
	// Required, when true, means the caller treats a failed lock as
	// fatal rather than a soft warning (spec.md's
	// resources.lock_memory_required).
	Required bool
}
