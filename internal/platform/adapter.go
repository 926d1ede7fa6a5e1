// Package platform defines the PlatformAdapter contract implemented by
// each backend (native, systemd, launchd, container, pepita, wos) and
// the detection/selection logic that picks one at startup, per
// SPEC_FULL.md §4.2.
package platform

import (
	"context"

	"github.com/paiml/duende/internal/core"
)

// Adapter is the uniform spawn/signal/status/reap surface every backend
// implements. A Manager holds exactly one Adapter, selected once at
// startup by Select(Detect()).
type Adapter interface {
	// Name identifies the backend, e.g. "native", "systemd".
	Name() string

	// Spawn starts the daemon described by cfg and returns an opaque
	// handle tagged with this adapter's Platform.
	Spawn(ctx context.Context, cfg *core.DaemonConfig) (core.DaemonHandle, error)

	// Signal delivers sig to the process/unit/container identified by
	// handle. Implementations that cannot express a given signal
	// natively (e.g. launchd's unload-as-stop) translate it to the
	// closest equivalent and document the mapping.
	Signal(ctx context.Context, handle core.DaemonHandle, sig core.Signal) error

	// Status reports whether the backend still considers the handle
	// alive, independent of the manager's own bookkeeping.
	Status(ctx context.Context, handle core.DaemonHandle) (core.DaemonStatus, error)

	// Reap releases any backend-side resources associated with handle
	// once the manager has observed a terminal exit (e.g. removing a
	// transient systemd unit, unloading a launchd job).
	Reap(ctx context.Context, handle core.DaemonHandle) error
}

// Platform enumerates the runtime environments Detect can report.
type Platform int

const (
	// DetectedLinux is a bare Linux host, systemd present or not.
	DetectedLinux Platform = iota
	DetectedDarwin
	DetectedContainer
	DetectedPepita
	DetectedWOS
	DetectedUnknown
)

func (p Platform) String() string {
	switch p {
	case DetectedLinux:
		return "linux"
	case DetectedDarwin:
		return "darwin"
	case DetectedContainer:
		return "container"
	case DetectedPepita:
		return "pepita"
	case DetectedWOS:
		return "wos"
	default:
		return "unknown"
	}
}
