package core

// Platform tags the backend a DaemonHandle or PlatformAdapter belongs to.
type Platform int

const (
	PlatformNative Platform = iota
	PlatformSystemd
	PlatformLaunchd
	PlatformContainer
	PlatformPepita
	PlatformWOS
)

func (p Platform) String() string {
	switch p {
	case PlatformNative:
		return "native"
	case PlatformSystemd:
		return "systemd"
	case PlatformLaunchd:
		return "launchd"
	case PlatformContainer:
		return "container"
	case PlatformPepita:
		return "pepita"
	case PlatformWOS:
		return "wos"
	default:
		return "unknown"
	}
}

// DaemonHandle is the opaque token an adapter returns after Spawn. It
// carries the backend tag and backend-specific identity; typed accessors
// return a value only when the tag matches, and an "ok=false" otherwise,
// so a handle from one adapter can never be silently misused by another.
type DaemonHandle struct {
	platform Platform

	pid int // Native

	unitName string // Systemd

	label string // Launchd

	containerID   string // Container
	containerName string // Container
	runtimeName   string // Container: "docker" | "podman" | "containerd"

	vmID      string // Pepita
	vsockCID  uint32 // Pepita

	wosPID int // WOS
}

// Platform returns the backend tag carried by this handle.
func (h DaemonHandle) Platform() Platform { return h.platform }

// NewNativeHandle constructs a handle for the native backend.
func NewNativeHandle(pid int) DaemonHandle {
	return DaemonHandle{platform: PlatformNative, pid: pid}
}

// PID returns the OS process id when this is a native handle.
func (h DaemonHandle) PID() (int, bool) {
	if h.platform != PlatformNative {
		return 0, false
	}
	return h.pid, true
}

// NewSystemdHandle constructs a handle for the systemd backend.
func NewSystemdHandle(unitName string) DaemonHandle {
	return DaemonHandle{platform: PlatformSystemd, unitName: unitName}
}

// UnitName returns the transient unit name when this is a systemd handle.
func (h DaemonHandle) UnitName() (string, bool) {
	if h.platform != PlatformSystemd {
		return "", false
	}
	return h.unitName, true
}

// NewLaunchdHandle constructs a handle for the launchd backend.
func NewLaunchdHandle(label string) DaemonHandle {
	return DaemonHandle{platform: PlatformLaunchd, label: label}
}

// Label returns the plist label when this is a launchd handle.
func (h DaemonHandle) Label() (string, bool) {
	if h.platform != PlatformLaunchd {
		return "", false
	}
	return h.label, true
}

// NewContainerHandle constructs a handle for the container backend.
func NewContainerHandle(id, name, runtime string) DaemonHandle {
	return DaemonHandle{platform: PlatformContainer, containerID: id, containerName: name, runtimeName: runtime}
}

// Container returns the container id, name, and runtime name when this
// is a container handle.
func (h DaemonHandle) Container() (id, name, runtime string, ok bool) {
	if h.platform != PlatformContainer {
		return "", "", "", false
	}
	return h.containerID, h.containerName, h.runtimeName, true
}

// NewPepitaHandle constructs a handle for the pepita microVM backend.
func NewPepitaHandle(vmID string, vsockCID uint32) DaemonHandle {
	return DaemonHandle{platform: PlatformPepita, vmID: vmID, vsockCID: vsockCID}
}

// VM returns the VM id and vsock context id when this is a pepita handle.
func (h DaemonHandle) VM() (vmID string, vsockCID uint32, ok bool) {
	if h.platform != PlatformPepita {
		return "", 0, false
	}
	return h.vmID, h.vsockCID, true
}

// NewWOSHandle constructs a handle for the WOS backend.
func NewWOSHandle(pid int) DaemonHandle {
	return DaemonHandle{platform: PlatformWOS, wosPID: pid}
}

// WOSPID returns the WOS-assigned pid when this is a WOS handle.
func (h DaemonHandle) WOSPID() (int, bool) {
	if h.platform != PlatformWOS {
		return 0, false
	}
	return h.wosPID, true
}
