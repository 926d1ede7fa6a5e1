package platform

import (
	"os"
	"runtime"
	"strings"
)

// Detect probes the runtime environment in the fixed order required by
// spec.md §4.2 and §6: WOS_KERNEL env, PEPITA_VM/PEPITA_VSOCK_CID env,
// /.dockerenv or a cgroup substring match, /run/systemd/system, then
// runtime.GOOS == "darwin", falling back to native.
func Detect() Platform {
	if os.Getenv("WOS_KERNEL") != "" {
		return DetectedWOS
	}
	if os.Getenv("PEPITA_VM") != "" || os.Getenv("PEPITA_VSOCK_CID") != "" {
		return DetectedPepita
	}
	if inContainer() {
		return DetectedContainer
	}
	if hasSystemd() {
		return DetectedLinux
	}
	if runtime.GOOS == "darwin" {
		return DetectedDarwin
	}
	return DetectedLinux
}

func inContainer() bool {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}
	data, err := os.ReadFile("/proc/1/cgroup")
	if err != nil {
		return false
	}
	s := string(data)
	return strings.Contains(s, "docker") || strings.Contains(s, "kubepods") || strings.Contains(s, "containerd")
}

func hasSystemd() bool {
	_, err := os.Stat("/run/systemd/system")
	return err == nil
}
