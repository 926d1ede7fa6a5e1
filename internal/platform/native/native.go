// Package native implements the PlatformAdapter for a bare OS process:
// detached spawn, POSIX signal delivery, gopsutil-backed liveness, and
// a flock-guarded single-instance lock per daemon name.
package native

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/paiml/duende/internal/core"
	"github.com/paiml/duende/internal/platform"
)

// WaitPollInterval is how often waitForExit polls for process exit.
const WaitPollInterval = 100 * time.Millisecond

// KillGrace is how long gracefulOrForce waits for a process to exit
// after SIGTERM before escalating to SIGKILL, and again after SIGKILL
// before giving up and reporting an error.
const KillGrace = 5 * time.Second

// Adapter spawns and supervises plain OS processes.
type Adapter struct {
	// LockDir is the directory single-instance lock files are created
	// in, one per daemon name. Defaults to os.TempDir() when empty.
	LockDir string

	mu        sync.Mutex
	locks     map[string]*flock.Flock
	pidToName map[int]string
}

// New constructs a native adapter. lockDir may be empty to use the
// default temp directory.
func New(lockDir string) *Adapter {
	return &Adapter{LockDir: lockDir, locks: make(map[string]*flock.Flock), pidToName: make(map[int]string)}
}

func (a *Adapter) Name() string { return "native" }

// Spawn starts cfg.BinaryPath detached in its own session, after
// acquiring a per-name flock lock to guarantee single-instance
// semantics (adapted from five82-spindle's daemon lock).
func (a *Adapter) Spawn(ctx context.Context, cfg *core.DaemonConfig) (core.DaemonHandle, error) {
	lockPath := filepath.Join(a.lockDir(), fmt.Sprintf("duende-%s.lock", cfg.Name))
	lock := flock.New(lockPath)

	locked, err := lock.TryLock()
	if err != nil {
		return core.DaemonHandle{}, core.NewError(core.KindSpawn, cfg.Name, core.DaemonID{}, "lock", err)
	}
	if !locked {
		return core.DaemonHandle{}, core.NewError(core.KindSpawn, cfg.Name, core.DaemonID{}, "lock",
			fmt.Errorf("another instance of %q is already running", cfg.Name))
	}

	cmd := exec.CommandContext(ctx, cfg.BinaryPath, cfg.Args...)
	cmd.Dir = cfg.WorkingDir
	cmd.Env = mergeEnv(cfg.Env)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		_ = lock.Unlock()
		return core.DaemonHandle{}, core.NewError(core.KindSpawn, cfg.Name, core.DaemonID{}, cfg.BinaryPath, err)
	}

	a.mu.Lock()
	a.locks[cfg.Name] = lock
	a.pidToName[cmd.Process.Pid] = cfg.Name
	a.mu.Unlock()

	// Reap the child when it exits so it does not linger as a zombie that
	// still answers the liveness probes in Status and waitForExit.
	go func() { _ = cmd.Wait() }()

	return core.NewNativeHandle(cmd.Process.Pid), nil
}

// Signal delivers sig natively via the kernel. SigStop/SigCont map
// directly onto their POSIX equivalents.
func (a *Adapter) Signal(ctx context.Context, handle core.DaemonHandle, sig core.Signal) error {
	pid, ok := handle.PID()
	if !ok {
		return core.NewError(core.KindSignal, "", core.DaemonID{}, "handle", fmt.Errorf("not a native handle"))
	}

	if sig == core.SigTerm || sig == core.SigKill {
		return a.gracefulOrForce(pid, sig)
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return core.NewError(core.KindSignal, "", core.DaemonID{}, "pid", err)
	}
	if err := proc.Signal(syscall.Signal(sig)); err != nil {
		return core.NewError(core.KindSignal, "", core.DaemonID{}, "pid", err)
	}
	return nil
}

// gracefulOrForce sends the requested signal; when it is SigTerm it
// additionally escalates to SIGKILL if the process outlives KillGrace,
// mirroring tombee-conductor's GracefulShutdown SIGTERM -> poll ->
// SIGKILL sequence.
func (a *Adapter) gracefulOrForce(pid int, sig core.Signal) error {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return core.NewError(core.KindSignal, "", core.DaemonID{}, "pid", err)
	}

	if err := proc.Signal(syscall.Signal(sig)); err != nil {
		return core.NewError(core.KindSignal, "", core.DaemonID{}, "pid", err)
	}
	if sig == core.SigKill {
		return nil
	}

	if err := waitForExit(pid, KillGrace); err == nil {
		return nil
	}

	if err := proc.Signal(syscall.Signal(core.SigKill)); err != nil {
		return core.NewError(core.KindSignal, "", core.DaemonID{}, "pid", err)
	}
	return waitForExit(pid, KillGrace)
}

func waitForExit(pid int, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if !isRunning(pid) {
			return nil
		}
		time.Sleep(WaitPollInterval)
	}
	if isRunning(pid) {
		return fmt.Errorf("pid %d did not exit within %s", pid, timeout)
	}
	return nil
}

func isRunning(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

// Status reports whether the PID is still alive via gopsutil, matching
// the liveness check shape the teacher uses for its own process
// manager.
func (a *Adapter) Status(ctx context.Context, handle core.DaemonHandle) (core.DaemonStatus, error) {
	pid, ok := handle.PID()
	if !ok {
		return core.StatusFailed, core.NewError(core.KindStatus, "", core.DaemonID{}, "handle", fmt.Errorf("not a native handle"))
	}

	exists, err := process.PidExists(int32(pid))
	if err != nil {
		return core.StatusFailed, core.NewError(core.KindStatus, "", core.DaemonID{}, "pid", err)
	}
	if !exists {
		return core.StatusStopped, nil
	}
	return core.StatusRunning, nil
}

// Reap releases the single-instance lock associated with the daemon
// that owned this handle's pid, once the manager has observed a
// terminal exit. Without this, the next Spawn for the same daemon name
// contends with the still-held lock from this run and fails.
func (a *Adapter) Reap(ctx context.Context, handle core.DaemonHandle) error {
	pid, ok := handle.PID()
	if !ok {
		return nil
	}

	a.mu.Lock()
	name, ok := a.pidToName[pid]
	if ok {
		delete(a.pidToName, pid)
	}
	a.mu.Unlock()
	if !ok {
		return nil
	}
	return a.ReapByName(name)
}

// ReapByName releases the single-instance lock for a daemon name.
func (a *Adapter) ReapByName(name string) error {
	a.mu.Lock()
	lock, ok := a.locks[name]
	if ok {
		delete(a.locks, name)
	}
	a.mu.Unlock()
	if !ok {
		return nil
	}
	return lock.Unlock()
}

func (a *Adapter) lockDir() string {
	if a.LockDir != "" {
		return a.LockDir
	}
	return os.TempDir()
}

func mergeEnv(extra map[string]string) []string {
	env := os.Environ()
	for k, v := range extra {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	return env
}

var _ platform.Adapter = (*Adapter)(nil)
