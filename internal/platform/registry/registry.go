// Package registry wires the Platform enum onto a concrete Adapter,
// the select_adapter(detect_platform()) call site from spec.md §4.2.
// It lives outside internal/platform itself so that package can stay
// free of a dependency on every backend implementation.
package registry

import (
	"fmt"
	"os"

	"github.com/paiml/duende/internal/platform"
	"github.com/paiml/duende/internal/platform/container"
	"github.com/paiml/duende/internal/platform/launchd"
	"github.com/paiml/duende/internal/platform/native"
	"github.com/paiml/duende/internal/platform/pepita"
	"github.com/paiml/duende/internal/platform/systemd"
	"github.com/paiml/duende/internal/platform/wos"
)

// Options carries the environment-specific knobs some backends need
// that Detect() alone cannot supply (pepita kernel/rootfs images and
// launcher, WOS base pid, native lock directory).
type Options struct {
	NativeLockDir string

	PepitaKernelPath     string
	PepitaRootfsPath     string
	PepitaLauncherBinary string
	PepitaBaseVsockCID   uint32

	WOSBasePID int
}

// Select returns the concrete Adapter for a detected Platform. Linux
// hosts with systemd present use the systemd backend per spec.md §4.2;
// Detect() folds "Linux without systemd" into DetectedLinux too, so
// Select probes for systemd itself rather than trusting a fourth enum
// value.
func Select(p platform.Platform, opts Options) (platform.Adapter, error) {
	switch p {
	case platform.DetectedLinux:
		if _, err := os.Stat("/run/systemd/system"); err == nil {
			return systemd.New(), nil
		}
		return native.New(opts.NativeLockDir), nil
	case platform.DetectedDarwin:
		return launchd.New(launchd.Detect()), nil
	case platform.DetectedContainer:
		rt, binary, ok := container.Detect()
		if !ok {
			return nil, fmt.Errorf("registry: no container runtime CLI found on PATH")
		}
		return container.New(rt, binary), nil
	case platform.DetectedPepita:
		if opts.PepitaKernelPath == "" || opts.PepitaRootfsPath == "" || opts.PepitaLauncherBinary == "" {
			return nil, fmt.Errorf("registry: pepita backend requires kernel, rootfs, and launcher paths")
		}
		return pepita.New(opts.PepitaKernelPath, opts.PepitaRootfsPath, opts.PepitaLauncherBinary, opts.PepitaBaseVsockCID), nil
	case platform.DetectedWOS:
		return wos.New(opts.WOSBasePID), nil
	default:
		return nil, fmt.Errorf("registry: unknown platform %v", p)
	}
}
