// Package wos implements the PlatformAdapter backed by a WASM OS
// guest, shelling out to the guest's control CLI in the same
// CLI-shell-out register as the launchd and container adapters.
package wos

import (
	"bufio"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/paiml/duende/internal/core"
	"github.com/paiml/duende/internal/platform"
)

// DefaultBasePID is the first pid this backend allocates, per
// spec.md's "allocates a pid starting at 2" requirement (pid 1 is
// reserved for the WOS init process).
const DefaultBasePID = 2

// DefaultPriority is the scheduling priority assigned to spawned WASM
// processes when the daemon config does not override it.
const DefaultPriority = 4

// ControlBinary is the control CLI used to manage WASM processes
// inside the guest OS.
const ControlBinary = "woctl"

// Adapter drives WASM processes through the guest's control CLI.
type Adapter struct {
	nextPID atomic.Int64
}

// New constructs a wos adapter. base is the first pid to allocate; a
// zero value falls back to DefaultBasePID.
func New(base int) *Adapter {
	a := &Adapter{}
	if base == 0 {
		base = DefaultBasePID
	}
	a.nextPID.Store(int64(base))
	return a
}

func (a *Adapter) Name() string { return "wos" }

func (a *Adapter) allocatePID() int {
	return int(a.nextPID.Add(1) - 1)
}

// Spawn starts cfg's WASM module via `woctl run`, at DefaultPriority
// unless cfg.Platform["wos_priority"] overrides it (as an int, or as
// the int64 a TOML integer decodes to).
func (a *Adapter) Spawn(ctx context.Context, cfg *core.DaemonConfig) (core.DaemonHandle, error) {
	pid := a.allocatePID()

	priority := DefaultPriority
	switch p := cfg.Platform["wos_priority"].(type) {
	case int:
		priority = p
	case int64:
		priority = int(p)
	}

	args := []string{
		"run",
		"--pid", strconv.Itoa(pid),
		"--priority", strconv.Itoa(priority),
		cfg.BinaryPath,
	}
	args = append(args, cfg.Args...)

	if err := exec.CommandContext(ctx, ControlBinary, args...).Run(); err != nil {
		return core.DaemonHandle{}, core.NewError(core.KindSpawn, cfg.Name, core.DaemonID{}, ControlBinary, err)
	}

	return core.NewWOSHandle(pid), nil
}

// Signal maps Term/Kill onto `woctl stop`/`woctl kill`; any other
// logical signal is forwarded via `woctl signal <pid> <n>`.
func (a *Adapter) Signal(ctx context.Context, handle core.DaemonHandle, sig core.Signal) error {
	pid, ok := handle.WOSPID()
	if !ok {
		return core.NewError(core.KindSignal, "", core.DaemonID{}, "handle", fmt.Errorf("not a wos handle"))
	}

	var args []string
	switch sig {
	case core.SigTerm:
		args = []string{"stop", strconv.Itoa(pid)}
	case core.SigKill:
		args = []string{"kill", strconv.Itoa(pid)}
	default:
		args = []string{"signal", strconv.Itoa(pid), strconv.Itoa(int(sig))}
	}

	if err := exec.CommandContext(ctx, ControlBinary, args...).Run(); err != nil {
		return core.NewError(core.KindSignal, "", core.DaemonID{}, ControlBinary, err)
	}
	return nil
}

// Status runs `woctl ps` and checks whether pid appears in its
// output.
func (a *Adapter) Status(ctx context.Context, handle core.DaemonHandle) (core.DaemonStatus, error) {
	pid, ok := handle.WOSPID()
	if !ok {
		return core.StatusFailed, core.NewError(core.KindStatus, "", core.DaemonID{}, "handle", fmt.Errorf("not a wos handle"))
	}

	out, err := exec.CommandContext(ctx, ControlBinary, "ps").Output()
	if err != nil {
		return core.StatusFailed, core.NewError(core.KindStatus, "", core.DaemonID{}, ControlBinary, err)
	}

	target := strconv.Itoa(pid)
	scanner := bufio.NewScanner(strings.NewReader(string(out)))
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) > 0 && fields[0] == target {
			return core.StatusRunning, nil
		}
	}
	return core.StatusStopped, nil
}

// Reap is a no-op: the guest control CLI releases the pid slot itself
// once the process is no longer listed by `woctl ps`.
func (a *Adapter) Reap(ctx context.Context, handle core.DaemonHandle) error {
	return nil
}

var _ platform.Adapter = (*Adapter)(nil)
