// Package container implements the PlatformAdapter backed by a
// container runtime CLI (docker, podman, or containerd's ctr), picked
// by probing exec.LookPath in priority order, in the same
// self-detecting-strategy shape as the teacher's BrewStrategy
// (internal/infra/strategy.go).
package container

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/paiml/duende/internal/core"
	"github.com/paiml/duende/internal/platform"
)

// Runtime is one of the container CLIs this adapter knows how to drive.
type Runtime string

const (
	RuntimeDocker     Runtime = "docker"
	RuntimePodman     Runtime = "podman"
	RuntimeContainerd Runtime = "containerd"
)

// runtimeProbeOrder is the fixed priority order used when no runtime is
// pinned explicitly, matching spec.md's Docker/Podman/containerd
// auto-detect precedence.
var runtimeProbeOrder = []struct {
	runtime Runtime
	binary  string
}{
	{RuntimeDocker, "docker"},
	{RuntimePodman, "podman"},
	{RuntimeContainerd, "ctr"},
}

// Adapter drives containers through whichever runtime CLI is
// available on the host.
type Adapter struct {
	runtime Runtime
	binary  string
}

// Detect probes for an available runtime CLI, in the
// docker/podman/containerd priority order. It returns ("", "", false)
// when none is found, in the same IsAvailable() shape as the teacher's
// BrewStrategy.
func Detect() (Runtime, string, bool) {
	for _, candidate := range runtimeProbeOrder {
		if path, err := exec.LookPath(candidate.binary); err == nil {
			return candidate.runtime, path, true
		}
	}
	return "", "", false
}

// New constructs a container adapter bound to one runtime CLI. Callers
// typically pass the result of Detect().
func New(runtime Runtime, binary string) *Adapter {
	return &Adapter{runtime: runtime, binary: binary}
}

func (a *Adapter) Name() string { return "container" }

func containerName(daemonName string) string {
	return "duende-" + daemonName
}

// Spawn starts a detached container named duende-<name> from the image
// in cfg.Platform["container_image"], passing cfg.Args to it.
// cfg.BinaryPath is not used; the image decides what runs.
func (a *Adapter) Spawn(ctx context.Context, cfg *core.DaemonConfig) (core.DaemonHandle, error) {
	name := containerName(cfg.Name)
	image, _ := cfg.Platform["container_image"].(string)
	if image == "" {
		return core.DaemonHandle{}, core.NewError(core.KindSpawn, cfg.Name, core.DaemonID{}, "container_image",
			fmt.Errorf("platform.container_image is required for the container backend"))
	}

	switch a.runtime {
	case RuntimeDocker, RuntimePodman:
		args := []string{"run", "-d", "--name", name}
		for k, v := range cfg.Env {
			args = append(args, "-e", fmt.Sprintf("%s=%s", k, v))
		}
		if cfg.WorkingDir != "" {
			args = append(args, "-w", cfg.WorkingDir)
		}
		args = append(args, image)
		args = append(args, cfg.Args...)

		out, err := exec.CommandContext(ctx, a.binary, args...).Output()
		if err != nil {
			return core.DaemonHandle{}, core.NewError(core.KindSpawn, cfg.Name, core.DaemonID{}, name, err)
		}
		id := strings.TrimSpace(string(out))
		return core.NewContainerHandle(id, name, string(a.runtime)), nil

	case RuntimeContainerd:
		args := append([]string{"run", "-d", "--rm=false", image, name}, cfg.Args...)
		if err := exec.CommandContext(ctx, a.binary, args...).Run(); err != nil {
			return core.DaemonHandle{}, core.NewError(core.KindSpawn, cfg.Name, core.DaemonID{}, name, err)
		}
		return core.NewContainerHandle(name, name, string(a.runtime)), nil

	default:
		return core.DaemonHandle{}, core.NewError(core.KindSpawn, cfg.Name, core.DaemonID{}, "runtime",
			fmt.Errorf("unsupported container runtime %q", a.runtime))
	}
}

// Signal forwards sig by name via `<runtime> kill --signal=<name>`
// (containerd: `ctr tasks kill -s <name>`).
func (a *Adapter) Signal(ctx context.Context, handle core.DaemonHandle, sig core.Signal) error {
	id, _, runtime, ok := handle.Container()
	if !ok {
		return core.NewError(core.KindSignal, "", core.DaemonID{}, "handle", fmt.Errorf("not a container handle"))
	}

	switch Runtime(runtime) {
	case RuntimeDocker, RuntimePodman:
		arg := fmt.Sprintf("--signal=%s", sig.Name())
		return exec.CommandContext(ctx, a.binary, "kill", arg, id).Run()
	case RuntimeContainerd:
		return exec.CommandContext(ctx, a.binary, "tasks", "kill", "-s", sig.Name(), id).Run()
	default:
		return core.NewError(core.KindSignal, "", core.DaemonID{}, "runtime", fmt.Errorf("unsupported container runtime %q", runtime))
	}
}

// Status normalizes the runtime's inspect state string into a
// DaemonStatus.
func (a *Adapter) Status(ctx context.Context, handle core.DaemonHandle) (core.DaemonStatus, error) {
	id, _, runtime, ok := handle.Container()
	if !ok {
		return core.StatusFailed, core.NewError(core.KindStatus, "", core.DaemonID{}, "handle", fmt.Errorf("not a container handle"))
	}

	switch Runtime(runtime) {
	case RuntimeDocker, RuntimePodman:
		out, err := exec.CommandContext(ctx, a.binary, "inspect", "-f", "{{.State.Status}}", id).Output()
		if err != nil {
			return core.StatusStopped, nil
		}
		return inspectStateToStatus(strings.TrimSpace(string(out))), nil
	case RuntimeContainerd:
		out, err := exec.CommandContext(ctx, a.binary, "tasks", "ls").Output()
		if err != nil || !strings.Contains(string(out), id) {
			return core.StatusStopped, nil
		}
		return core.StatusRunning, nil
	default:
		return core.StatusFailed, core.NewError(core.KindStatus, "", core.DaemonID{}, "runtime", fmt.Errorf("unsupported container runtime %q", runtime))
	}
}

func inspectStateToStatus(state string) core.DaemonStatus {
	switch state {
	case "running":
		return core.StatusRunning
	case "created":
		return core.StatusStarting
	case "paused":
		return core.StatusPaused
	case "restarting":
		return core.StatusStarting
	case "exited", "dead":
		return core.StatusStopped
	default:
		return core.StatusFailed
	}
}

// Reap removes the stopped container.
func (a *Adapter) Reap(ctx context.Context, handle core.DaemonHandle) error {
	id, _, runtime, ok := handle.Container()
	if !ok {
		return core.NewError(core.KindInternal, "", core.DaemonID{}, "handle", fmt.Errorf("not a container handle"))
	}

	switch Runtime(runtime) {
	case RuntimeDocker, RuntimePodman:
		return exec.CommandContext(ctx, a.binary, "rm", "-f", id).Run()
	case RuntimeContainerd:
		_ = exec.CommandContext(ctx, a.binary, "tasks", "rm", "-f", id).Run()
		return exec.CommandContext(ctx, a.binary, "containers", "rm", id).Run()
	default:
		return nil
	}
}

var _ platform.Adapter = (*Adapter)(nil)
